package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// AddMemberToGroup enrolls the user as a plain member. Administrators are
// made by promoting an existing member, never by direct insertion.
func (s *Store) AddMemberToGroup(ctx context.Context, groupID, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `INSERT INTO groups_members (group_id, user_id, administrator) VALUES (?, ?, ?);`
	if _, err := s.db.ExecContext(ctx, s.rebind(q), groupID, userID, MemberRoleUser); err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: membership", ErrAlreadyExists)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: group or user", ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *Store) GetMembership(ctx context.Context, groupID, userID int64) (MembershipRow, error) {
	if s == nil || s.db == nil {
		return MembershipRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT group_id, user_id, administrator FROM groups_members
		WHERE group_id = ? AND user_id = ?;`
	var membership MembershipRow
	if err := s.db.QueryRowContext(ctx, s.rebind(q), groupID, userID).Scan(
		&membership.GroupID, &membership.UserID, &membership.Administrator,
	); err != nil {
		if err == sql.ErrNoRows {
			return MembershipRow{}, fmt.Errorf("%w: membership", ErrNotFound)
		}
		return MembershipRow{}, err
	}
	return membership, nil
}

func (s *Store) ListMembersForGroup(ctx context.Context, groupID int64) ([]MembershipRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT group_id, user_id, administrator FROM groups_members
		WHERE group_id = ? ORDER BY user_id;`
	return s.queryMemberships(ctx, q, groupID)
}

func (s *Store) ListMembershipsForUser(ctx context.Context, userID int64) ([]MembershipRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT group_id, user_id, administrator FROM groups_members
		WHERE user_id = ? ORDER BY group_id;`
	return s.queryMemberships(ctx, q, userID)
}

// UpdateMemberRole flips a member between plain member and administrator.
// Assigning the role the member already holds counts as no change and fails.
func (s *Store) UpdateMemberRole(ctx context.Context, groupID, userID, role int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}
	if role != MemberRoleUser && role != MemberRoleAdministrator {
		return fmt.Errorf("%w: role", ErrInvalidValue)
	}

	q := `UPDATE groups_members SET administrator = ?
		WHERE group_id = ? AND user_id = ? AND administrator != ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), role, groupID, userID, role)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: role", ErrInvalidValue)
		}
		return err
	}
	affected, _ := result.RowsAffected()
	if affected > 0 {
		return nil
	}

	if _, err := s.GetMembership(ctx, groupID, userID); err != nil {
		return err
	}
	return fmt.Errorf("%w: role", ErrNoChange)
}

func (s *Store) RemoveMemberFromGroup(ctx context.Context, groupID, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM groups_members WHERE group_id = ? AND user_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), groupID, userID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: membership", ErrNotFound)
	}
	return nil
}

func (s *Store) queryMemberships(ctx context.Context, q string, args ...any) ([]MembershipRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []MembershipRow
	for rows.Next() {
		var membership MembershipRow
		if err := rows.Scan(&membership.GroupID, &membership.UserID, &membership.Administrator); err != nil {
			return nil, err
		}
		memberships = append(memberships, membership)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return memberships, nil
}
