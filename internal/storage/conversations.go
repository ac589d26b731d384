package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateConversation opens a conversation between two users. Like friendships
// the pair is undirected, so an existing (b, a) conversation blocks (a, b).
func (s *Store) CreateConversation(ctx context.Context, user1ID, user2ID, nowMs int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}

	reverseQ := `SELECT conversation_id FROM conversations WHERE user1_id = ? AND user2_id = ?;`
	var existing int64
	err := s.db.QueryRowContext(ctx, s.rebind(reverseQ), user2ID, user1ID).Scan(&existing)
	switch {
	case err == nil:
		return 0, fmt.Errorf("%w: conversation", ErrAlreadyExists)
	case err != sql.ErrNoRows:
		return 0, err
	}

	insertQ := `INSERT INTO conversations (user1_id, user2_id, time_last_message)
		VALUES (?, ?, ?) RETURNING conversation_id;`
	var conversationID int64
	if err := s.db.QueryRowContext(ctx, s.rebind(insertQ), user1ID, user2ID, nowMs).Scan(&conversationID); err != nil {
		switch {
		case isUniqueViolation(err):
			return 0, fmt.Errorf("%w: conversation", ErrAlreadyExists)
		case isForeignKeyViolation(err):
			return 0, fmt.Errorf("%w: user", ErrNotFound)
		}
		return 0, err
	}
	return conversationID, nil
}

func (s *Store) GetConversation(ctx context.Context, conversationID int64) (ConversationRow, error) {
	if s == nil || s.db == nil {
		return ConversationRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT conversation_id, user1_id, user2_id, time_last_message
		FROM conversations WHERE conversation_id = ?;`
	var conversation ConversationRow
	if err := s.db.QueryRowContext(ctx, s.rebind(q), conversationID).Scan(
		&conversation.ConversationID, &conversation.User1ID,
		&conversation.User2ID, &conversation.TimeLastMessageMs,
	); err != nil {
		if err == sql.ErrNoRows {
			return ConversationRow{}, fmt.Errorf("%w: conversation", ErrNotFound)
		}
		return ConversationRow{}, err
	}
	return conversation, nil
}

// ListConversationsForUser orders by most recent activity, so the
// conversation with the newest message comes first.
func (s *Store) ListConversationsForUser(ctx context.Context, userID int64) ([]ConversationRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT conversation_id, user1_id, user2_id, time_last_message
		FROM conversations
		WHERE user1_id = ? OR user2_id = ?
		ORDER BY time_last_message DESC;`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []ConversationRow
	for rows.Next() {
		var conversation ConversationRow
		if err := rows.Scan(
			&conversation.ConversationID, &conversation.User1ID,
			&conversation.User2ID, &conversation.TimeLastMessageMs,
		); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (s *Store) UpdateConversationLastMessageTime(ctx context.Context, conversationID, nowMs int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `UPDATE conversations SET time_last_message = ? WHERE conversation_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), nowMs, conversationID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: conversation", ErrNotFound)
	}
	return nil
}

// DeleteConversation removes the conversation and, through the cascade, its
// message history.
func (s *Store) DeleteConversation(ctx context.Context, conversationID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM conversations WHERE conversation_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), conversationID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: conversation", ErrNotFound)
	}
	return nil
}
