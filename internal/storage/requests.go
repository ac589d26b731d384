package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// RequestMembership files a join request for a private group. Secret groups
// are invisible from the outside and public groups are joined directly, so
// only the private level accepts requests.
func (s *Store) RequestMembership(ctx context.Context, groupID, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.PrivacyLevel != PrivacyLevelPrivate {
		return fmt.Errorf("%w: group is not private", ErrRequestNotAllowed)
	}

	memberQ := `SELECT user_id FROM groups_members WHERE group_id = ? AND user_id = ?;`
	var existing int64
	err = s.db.QueryRowContext(ctx, s.rebind(memberQ), groupID, userID).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("%w: membership", ErrAlreadyExists)
	case err != sql.ErrNoRows:
		return err
	}

	q := `INSERT INTO groups_requests (group_id, user_id) VALUES (?, ?);`
	if _, err := s.db.ExecContext(ctx, s.rebind(q), groupID, userID); err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: request", ErrAlreadyExists)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: group or user", ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *Store) ListRequestsForGroup(ctx context.Context, groupID int64) ([]GroupRequestRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT group_id, user_id FROM groups_requests WHERE group_id = ? ORDER BY user_id;`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []GroupRequestRow
	for rows.Next() {
		var request GroupRequestRow
		if err := rows.Scan(&request.GroupID, &request.UserID); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

// AcceptGroupRequest turns a pending request into a plain membership. The
// delete and the insert commit together so the user is never left in both
// states or in neither.
func (s *Store) AcceptGroupRequest(ctx context.Context, groupID, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	deleteQ := `DELETE FROM groups_requests WHERE group_id = ? AND user_id = ?;`
	result, err := tx.ExecContext(ctx, s.rebind(deleteQ), groupID, userID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: request", ErrNotFound)
	}

	insertQ := `INSERT INTO groups_members (group_id, user_id, administrator) VALUES (?, ?, ?);`
	if _, err := tx.ExecContext(ctx, s.rebind(insertQ), groupID, userID, MemberRoleUser); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: membership", ErrAlreadyExists)
		}
		return err
	}

	return tx.Commit()
}

func (s *Store) DeclineGroupRequest(ctx context.Context, groupID, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM groups_requests WHERE group_id = ? AND user_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), groupID, userID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: request", ErrNotFound)
	}
	return nil
}
