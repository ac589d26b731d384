package storage

import (
	"context"
	"fmt"
)

// CreateMessage appends a message to a conversation and bumps the
// conversation's last-message time in the same transaction. Only the two
// conversation participants may send into it.
func (s *Store) CreateMessage(ctx context.Context, conversationID, senderID int64, content string, nowMs int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}

	conversation, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if senderID != conversation.User1ID && senderID != conversation.User2ID {
		return 0, fmt.Errorf("%w: sender %d", ErrNotParticipant, senderID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var messageID int64
	insertQ := `INSERT INTO messages (conversation_id, sender_id, content, time_sent)
		VALUES (?, ?, ?, ?) RETURNING message_id;`
	if err := tx.QueryRowContext(ctx, s.rebind(insertQ),
		conversationID, senderID, content, nowMs,
	).Scan(&messageID); err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: conversation or sender", ErrNotFound)
		}
		return 0, err
	}

	bumpQ := `UPDATE conversations SET time_last_message = ? WHERE conversation_id = ?;`
	if _, err := tx.ExecContext(ctx, s.rebind(bumpQ), nowMs, conversationID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return messageID, nil
}

// ListMessagesForConversation returns the history newest first.
func (s *Store) ListMessagesForConversation(ctx context.Context, conversationID int64) ([]MessageRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT message_id, conversation_id, sender_id, content, time_sent
		FROM messages WHERE conversation_id = ? ORDER BY time_sent DESC;`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []MessageRow
	for rows.Next() {
		var message MessageRow
		if err := rows.Scan(
			&message.MessageID, &message.ConversationID, &message.SenderID,
			&message.Content, &message.TimeSentMs,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
