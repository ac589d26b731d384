package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateStatus inserts the status and, when groupID is given, the group link
// row in the same transaction. A status requested for a group must never be
// left un-linked, so a failing link insert rolls the status back too.
func (s *Store) CreateStatus(ctx context.Context, creatorID int64, content string, groupID *int64, nowMs int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var statusID int64
	insertQ := `INSERT INTO statuses (creator_id, content, creation_time)
		VALUES (?, ?, ?) RETURNING status_id;`
	if err := tx.QueryRowContext(ctx, s.rebind(insertQ), creatorID, content, nowMs).Scan(&statusID); err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: creator", ErrNotFound)
		}
		return 0, err
	}

	if groupID != nil {
		linkQ := `INSERT INTO groups_statuses (status_id, group_id) VALUES (?, ?);`
		if _, err := tx.ExecContext(ctx, s.rebind(linkQ), statusID, *groupID); err != nil {
			if isForeignKeyViolation(err) {
				return 0, fmt.Errorf("%w: group", ErrNotFound)
			}
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return statusID, nil
}

func (s *Store) GetStatus(ctx context.Context, statusID int64) (StatusRow, error) {
	if s == nil || s.db == nil {
		return StatusRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT status_id, creator_id, content, creation_time FROM statuses WHERE status_id = ?;`
	var status StatusRow
	if err := s.db.QueryRowContext(ctx, s.rebind(q), statusID).Scan(
		&status.StatusID, &status.CreatorID, &status.Content, &status.CreationTimeMs,
	); err != nil {
		if err == sql.ErrNoRows {
			return StatusRow{}, fmt.Errorf("%w: status", ErrNotFound)
		}
		return StatusRow{}, err
	}
	return status, nil
}

func (s *Store) ListStatusesForUser(ctx context.Context, userID int64) ([]StatusRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT status_id, creator_id, content, creation_time
		FROM statuses WHERE creator_id = ? ORDER BY creation_time DESC;`
	return s.queryStatuses(ctx, q, userID)
}

func (s *Store) ListStatusesForGroup(ctx context.Context, groupID int64) ([]StatusRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT s.status_id, s.creator_id, s.content, s.creation_time
		FROM statuses s
		JOIN groups_statuses gs ON gs.status_id = s.status_id
		WHERE gs.group_id = ?
		ORDER BY s.creation_time DESC, s.status_id DESC;`
	return s.queryStatuses(ctx, q, groupID)
}

// FriendFeedForUser selects statuses authored by the user's accepted friends
// that are not linked to any group, newest first. A negative limit means
// unbounded. A user with no accepted friends gets an empty feed.
func (s *Store) FriendFeedForUser(ctx context.Context, userID int64, limit int) ([]StatusRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT s.status_id, s.creator_id, s.content, s.creation_time
		FROM statuses s
		JOIN friendships f ON (f.user1_id = ? AND f.user2_id = s.creator_id)
			OR (f.user2_id = ? AND f.user1_id = s.creator_id)
		LEFT JOIN groups_statuses gs ON gs.status_id = s.status_id
		WHERE f.friendship_status = ? AND gs.group_id IS NULL
		ORDER BY s.creation_time DESC`
	args := []any{userID, userID, FriendshipStatusAccepted}
	if limit >= 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	q += ";"

	return s.queryStatuses(ctx, q, args...)
}

func (s *Store) UpdateStatusContent(ctx context.Context, statusID int64, content string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `UPDATE statuses SET content = ? WHERE status_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), content, statusID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: status", ErrNotFound)
	}
	return nil
}

// DeleteStatus removes the status; comments, rates, tags, media links and the
// group link cascade away with it.
func (s *Store) DeleteStatus(ctx context.Context, statusID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM statuses WHERE status_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), statusID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: status", ErrNotFound)
	}
	return nil
}

func (s *Store) queryStatuses(ctx context.Context, q string, args ...any) ([]StatusRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []StatusRow
	for rows.Next() {
		var status StatusRow
		if err := rows.Scan(
			&status.StatusID, &status.CreatorID, &status.Content, &status.CreationTimeMs,
		); err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return statuses, nil
}
