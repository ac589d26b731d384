package storage

import (
	"context"
	"database/sql"
	"fmt"
)

func initSchema(ctx context.Context, db *sql.DB, driver string) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "pgx" {
		id = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users_credentials (
			user_id %s,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			registration_time BIGINT NOT NULL
		);`, id),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS media_items (
			media_item_id %s,
			media_item_type INTEGER NOT NULL CHECK (media_item_type IN (0, 1)),
			url TEXT NOT NULL UNIQUE,
			description TEXT
		);`, id),

		`CREATE TABLE IF NOT EXISTS users_profiles (
			user_id BIGINT PRIMARY KEY,
			first_name TEXT NOT NULL,
			middle_name TEXT,
			surname TEXT NOT NULL,
			prof_picture_id BIGINT,
			age INTEGER NOT NULL,
			gender INTEGER NOT NULL CHECK (gender BETWEEN 0 AND 2),
			FOREIGN KEY(user_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE,
			FOREIGN KEY(prof_picture_id) REFERENCES media_items(media_item_id) ON DELETE SET NULL
		);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS friendships (
			friendship_id %s,
			user1_id BIGINT NOT NULL,
			user2_id BIGINT NOT NULL,
			friendship_status INTEGER NOT NULL CHECK (friendship_status IN (0, 1)),
			friendship_start BIGINT,
			UNIQUE(user1_id, user2_id),
			FOREIGN KEY(user1_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE,
			FOREIGN KEY(user2_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`, id),
		`CREATE INDEX IF NOT EXISTS idx_friendships_user2 ON friendships(user2_id);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS statuses (
			status_id %s,
			creator_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			creation_time BIGINT NOT NULL,
			FOREIGN KEY(creator_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`, id),
		`CREATE INDEX IF NOT EXISTS idx_statuses_creator_creation_time ON statuses(creator_id, creation_time);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS comments (
			comment_id %s,
			status_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			creation_time BIGINT NOT NULL,
			FOREIGN KEY(status_id) REFERENCES statuses(status_id) ON DELETE CASCADE,
			FOREIGN KEY(user_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`, id),
		`CREATE INDEX IF NOT EXISTS idx_comments_status_creation_time ON comments(status_id, creation_time);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rates (
			rate_id %s,
			status_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			rate INTEGER NOT NULL CHECK (rate BETWEEN 0 AND 5),
			UNIQUE(status_id, user_id),
			FOREIGN KEY(status_id) REFERENCES statuses(status_id) ON DELETE CASCADE,
			FOREIGN KEY(user_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`, id),

		`CREATE TABLE IF NOT EXISTS statuses_media (
			status_id BIGINT NOT NULL,
			media_item_id BIGINT NOT NULL,
			PRIMARY KEY(status_id, media_item_id),
			FOREIGN KEY(status_id) REFERENCES statuses(status_id) ON DELETE CASCADE,
			FOREIGN KEY(media_item_id) REFERENCES media_items(media_item_id) ON DELETE CASCADE
		);`,

		`CREATE TABLE IF NOT EXISTS statuses_tags (
			status_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			PRIMARY KEY(status_id, user_id),
			FOREIGN KEY(status_id) REFERENCES statuses(status_id) ON DELETE CASCADE,
			FOREIGN KEY(user_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS groups (
			group_id %s,
			name TEXT NOT NULL,
			prof_picture_id BIGINT,
			privacy_level INTEGER NOT NULL CHECK (privacy_level BETWEEN 0 AND 2),
			description TEXT,
			FOREIGN KEY(prof_picture_id) REFERENCES media_items(media_item_id) ON DELETE SET NULL
		);`, id),

		`CREATE TABLE IF NOT EXISTS groups_members (
			group_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			administrator INTEGER NOT NULL DEFAULT 0 CHECK (administrator IN (0, 1)),
			PRIMARY KEY(group_id, user_id),
			FOREIGN KEY(group_id) REFERENCES groups(group_id) ON DELETE CASCADE,
			FOREIGN KEY(user_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`,

		`CREATE TABLE IF NOT EXISTS groups_requests (
			group_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			PRIMARY KEY(group_id, user_id),
			FOREIGN KEY(group_id) REFERENCES groups(group_id) ON DELETE CASCADE,
			FOREIGN KEY(user_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`,

		// A status belongs to at most one group, so the link table is keyed by
		// the status alone.
		`CREATE TABLE IF NOT EXISTS groups_statuses (
			status_id BIGINT PRIMARY KEY,
			group_id BIGINT NOT NULL,
			FOREIGN KEY(status_id) REFERENCES statuses(status_id) ON DELETE CASCADE,
			FOREIGN KEY(group_id) REFERENCES groups(group_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_groups_statuses_group ON groups_statuses(group_id);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id %s,
			user1_id BIGINT NOT NULL,
			user2_id BIGINT NOT NULL,
			time_last_message BIGINT NOT NULL,
			UNIQUE(user1_id, user2_id),
			FOREIGN KEY(user1_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE,
			FOREIGN KEY(user2_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`, id),
		`CREATE INDEX IF NOT EXISTS idx_conversations_user2 ON conversations(user2_id);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS messages (
			message_id %s,
			conversation_id BIGINT NOT NULL,
			sender_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			time_sent BIGINT NOT NULL,
			FOREIGN KEY(conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE,
			FOREIGN KEY(sender_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`, id),
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_time_sent ON messages(conversation_id, time_sent);`,

		`CREATE TABLE IF NOT EXISTS auth_tokens (
			token TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			created_at_ms BIGINT NOT NULL,
			expires_at_ms BIGINT NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users_credentials(user_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_auth_tokens_user ON auth_tokens(user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
