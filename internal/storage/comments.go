package storage

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) AddCommentToStatus(ctx context.Context, statusID, userID int64, content string, nowMs int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}

	q := `INSERT INTO comments (status_id, user_id, content, creation_time)
		VALUES (?, ?, ?, ?) RETURNING comment_id;`
	var commentID int64
	if err := s.db.QueryRowContext(ctx, s.rebind(q), statusID, userID, content, nowMs).Scan(&commentID); err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: status or user", ErrNotFound)
		}
		return 0, err
	}
	return commentID, nil
}

func (s *Store) GetComment(ctx context.Context, commentID int64) (CommentRow, error) {
	if s == nil || s.db == nil {
		return CommentRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT comment_id, status_id, user_id, content, creation_time
		FROM comments WHERE comment_id = ?;`
	var comment CommentRow
	if err := s.db.QueryRowContext(ctx, s.rebind(q), commentID).Scan(
		&comment.CommentID, &comment.StatusID, &comment.UserID, &comment.Content, &comment.CreationTimeMs,
	); err != nil {
		if err == sql.ErrNoRows {
			return CommentRow{}, fmt.Errorf("%w: comment", ErrNotFound)
		}
		return CommentRow{}, err
	}
	return comment, nil
}

func (s *Store) ListCommentsForStatus(ctx context.Context, statusID int64) ([]CommentRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT comment_id, status_id, user_id, content, creation_time
		FROM comments WHERE status_id = ? ORDER BY creation_time DESC;`
	return s.queryComments(ctx, q, statusID)
}

func (s *Store) ListCommentsForUser(ctx context.Context, userID int64) ([]CommentRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT comment_id, status_id, user_id, content, creation_time
		FROM comments WHERE user_id = ? ORDER BY creation_time DESC;`
	return s.queryComments(ctx, q, userID)
}

func (s *Store) UpdateCommentContent(ctx context.Context, commentID int64, content string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `UPDATE comments SET content = ? WHERE comment_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), content, commentID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: comment", ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, commentID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM comments WHERE comment_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), commentID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: comment", ErrNotFound)
	}
	return nil
}

func (s *Store) queryComments(ctx context.Context, q string, args ...any) ([]CommentRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []CommentRow
	for rows.Next() {
		var comment CommentRow
		if err := rows.Scan(
			&comment.CommentID, &comment.StatusID, &comment.UserID, &comment.Content, &comment.CreationTimeMs,
		); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}
