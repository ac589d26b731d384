package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateFriendship inserts a pending friendship for the pair. The pair is
// undirected: a row stored as (b, a) counts as an existing relationship for
// (a, b), so the reverse order is checked before inserting and the same order
// is covered by the unique index.
func (s *Store) CreateFriendship(ctx context.Context, user1ID, user2ID int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}

	reverseQ := `SELECT friendship_id FROM friendships WHERE user1_id = ? AND user2_id = ?;`
	var existing int64
	err := s.db.QueryRowContext(ctx, s.rebind(reverseQ), user2ID, user1ID).Scan(&existing)
	switch {
	case err == nil:
		return 0, fmt.Errorf("%w: friendship", ErrAlreadyExists)
	case err != sql.ErrNoRows:
		return 0, err
	}

	insertQ := `INSERT INTO friendships (user1_id, user2_id, friendship_status, friendship_start)
		VALUES (?, ?, ?, NULL) RETURNING friendship_id;`
	var friendshipID int64
	if err := s.db.QueryRowContext(ctx, s.rebind(insertQ),
		user1ID, user2ID, FriendshipStatusPending,
	).Scan(&friendshipID); err != nil {
		switch {
		case isUniqueViolation(err):
			return 0, fmt.Errorf("%w: friendship", ErrAlreadyExists)
		case isForeignKeyViolation(err):
			return 0, fmt.Errorf("%w: user", ErrNotFound)
		}
		return 0, err
	}
	return friendshipID, nil
}

func (s *Store) GetFriendship(ctx context.Context, friendshipID int64) (FriendshipRow, error) {
	if s == nil || s.db == nil {
		return FriendshipRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT friendship_id, user1_id, user2_id, friendship_status, friendship_start
		FROM friendships WHERE friendship_id = ?;`
	row := s.db.QueryRowContext(ctx, s.rebind(q), friendshipID)
	friendship, err := scanFriendship(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return FriendshipRow{}, fmt.Errorf("%w: friendship", ErrNotFound)
		}
		return FriendshipRow{}, err
	}
	return friendship, nil
}

// ListFriendshipsForUser returns every friendship the user is party to,
// accepted ones most-recently-started first and pending ones (with no start
// time yet) after them.
func (s *Store) ListFriendshipsForUser(ctx context.Context, userID int64) ([]FriendshipRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT friendship_id, user1_id, user2_id, friendship_status, friendship_start
		FROM friendships
		WHERE user1_id = ? OR user2_id = ?
		ORDER BY friendship_start DESC NULLS LAST;`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friendships []FriendshipRow
	for rows.Next() {
		friendship, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		friendships = append(friendships, friendship)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return friendships, nil
}

func (s *Store) AcceptFriendship(ctx context.Context, friendshipID, nowMs int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `UPDATE friendships SET friendship_status = ?, friendship_start = ? WHERE friendship_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), FriendshipStatusAccepted, nowMs, friendshipID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: friendship", ErrNotFound)
	}
	return nil
}

// DeleteFriendship removes the row whether it is still pending or accepted.
func (s *Store) DeleteFriendship(ctx context.Context, friendshipID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM friendships WHERE friendship_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), friendshipID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: friendship", ErrNotFound)
	}
	return nil
}

func scanFriendship(r rowScanner) (FriendshipRow, error) {
	var friendship FriendshipRow
	var start sql.NullInt64
	if err := r.Scan(
		&friendship.FriendshipID, &friendship.User1ID, &friendship.User2ID,
		&friendship.Status, &start,
	); err != nil {
		return FriendshipRow{}, err
	}
	if start.Valid {
		friendship.StartMs = &start.Int64
	}
	return friendship, nil
}
