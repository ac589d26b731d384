package storage

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) CreateMedia(ctx context.Context, mediaType int64, url string, description *string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}
	if mediaType != MediaTypePhoto && mediaType != MediaTypeVideo {
		return 0, fmt.Errorf("%w: media type", ErrInvalidValue)
	}

	q := `INSERT INTO media_items (media_item_type, url, description)
		VALUES (?, ?, ?) RETURNING media_item_id;`
	var mediaID int64
	if err := s.db.QueryRowContext(ctx, s.rebind(q), mediaType, url, description).Scan(&mediaID); err != nil {
		switch {
		case isUniqueViolation(err):
			return 0, fmt.Errorf("%w: url", ErrAlreadyExists)
		case isCheckViolation(err):
			return 0, fmt.Errorf("%w: media type", ErrInvalidValue)
		}
		return 0, err
	}
	return mediaID, nil
}

func (s *Store) GetMediaItem(ctx context.Context, mediaID int64) (MediaItemRow, error) {
	if s == nil || s.db == nil {
		return MediaItemRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT media_item_id, media_item_type, url, description
		FROM media_items WHERE media_item_id = ?;`
	row := s.db.QueryRowContext(ctx, s.rebind(q), mediaID)
	media, err := scanMediaItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return MediaItemRow{}, fmt.Errorf("%w: media item", ErrNotFound)
		}
		return MediaItemRow{}, err
	}
	return media, nil
}

// LastMediaItemID reports the most recently assigned media id, zero when the
// table is empty.
func (s *Store) LastMediaItemID(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}

	q := `SELECT media_item_id FROM media_items ORDER BY media_item_id DESC LIMIT 1;`
	var mediaID int64
	if err := s.db.QueryRowContext(ctx, s.rebind(q)).Scan(&mediaID); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return mediaID, nil
}

// UpdateMediaDescription sets or clears (nil) the description.
func (s *Store) UpdateMediaDescription(ctx context.Context, mediaID int64, description *string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `UPDATE media_items SET description = ? WHERE media_item_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), description, mediaID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: media item", ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteMediaItem(ctx context.Context, mediaID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM media_items WHERE media_item_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), mediaID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: media item", ErrNotFound)
	}
	return nil
}

// AttachMediaToStatus links a media item to a status. Attaching the same
// media twice is rejected rather than silently succeeding.
func (s *Store) AttachMediaToStatus(ctx context.Context, statusID, mediaID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `INSERT INTO statuses_media (status_id, media_item_id) VALUES (?, ?);`
	if _, err := s.db.ExecContext(ctx, s.rebind(q), statusID, mediaID); err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: status media", ErrAlreadyExists)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: status or media item", ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *Store) ListMediaForStatus(ctx context.Context, statusID int64) ([]MediaItemRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT m.media_item_id, m.media_item_type, m.url, m.description
		FROM media_items m
		JOIN statuses_media sm ON sm.media_item_id = m.media_item_id
		WHERE sm.status_id = ?
		ORDER BY m.media_item_id;`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), statusID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MediaItemRow
	for rows.Next() {
		media, err := scanMediaItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, media)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DetachMediaFromStatus(ctx context.Context, statusID, mediaID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM statuses_media WHERE status_id = ? AND media_item_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), statusID, mediaID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: status media", ErrNotFound)
	}
	return nil
}

func scanMediaItem(r rowScanner) (MediaItemRow, error) {
	var media MediaItemRow
	var description sql.NullString
	if err := r.Scan(&media.MediaItemID, &media.Type, &media.URL, &description); err != nil {
		return MediaItemRow{}, err
	}
	if description.Valid {
		media.Description = &description.String
	}
	return media, nil
}
