package store

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      VARCHAR(30)  NOT NULL UNIQUE,
		email         VARCHAR(120) NOT NULL UNIQUE,
		password_hash VARCHAR(128) NOT NULL,
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT      NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		public_id   VARCHAR(50) NOT NULL UNIQUE,
		bio         VARCHAR(140) NOT NULL DEFAULT '',
		avatar_path VARCHAR(255) NOT NULL DEFAULT 'base.jpg',
		last_seen   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS friends (
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		friend_id  BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, friend_id),
		CHECK (user_id <> friend_id)
	)`,
	`CREATE TABLE IF NOT EXISTS friend_requests (
		sender_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		receiver_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (sender_id, receiver_id),
		CHECK (sender_id <> receiver_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_friends_friend_id ON friends(friend_id)`,
	`CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver_id ON friend_requests(receiver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users(LOWER(username))`,
}

// Migrate applies the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
