package storage

import (
	"context"
	"fmt"
)

// TagUserInStatus marks the user as tagged in the status. Tagging the same
// user twice in one status is rejected.
func (s *Store) TagUserInStatus(ctx context.Context, statusID, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `INSERT INTO statuses_tags (status_id, user_id) VALUES (?, ?);`
	if _, err := s.db.ExecContext(ctx, s.rebind(q), statusID, userID); err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: tag", ErrAlreadyExists)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: status or user", ErrNotFound)
		}
		return err
	}
	return nil
}

// ListTaggedUsersForStatus resolves the tags on a status to full profiles in
// one query instead of a lookup per tag row.
func (s *Store) ListTaggedUsersForStatus(ctx context.Context, statusID int64) ([]UserProfileRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT p.user_id, p.first_name, p.middle_name, p.surname, p.prof_picture_id, p.age, p.gender
		FROM users_profiles p
		JOIN statuses_tags st ON st.user_id = p.user_id
		WHERE st.status_id = ?
		ORDER BY p.user_id;`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), statusID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []UserProfileRow
	for rows.Next() {
		profile, err := scanUserProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// ListTaggedStatusesForUser returns the statuses the user is tagged in,
// newest first.
func (s *Store) ListTaggedStatusesForUser(ctx context.Context, userID int64) ([]StatusRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT s.status_id, s.creator_id, s.content, s.creation_time
		FROM statuses s
		JOIN statuses_tags st ON st.status_id = s.status_id
		WHERE st.user_id = ?
		ORDER BY s.creation_time DESC, s.status_id DESC;`
	return s.queryStatuses(ctx, q, userID)
}

func (s *Store) RemoveTag(ctx context.Context, statusID, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM statuses_tags WHERE status_id = ? AND user_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), statusID, userID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: tag", ErrNotFound)
	}
	return nil
}
