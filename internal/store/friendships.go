package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"noxchatAPI/internal/friendship"
	"noxchatAPI/internal/user"
)

// edges runs friendship queries against either the pool or a transaction.
type edges struct {
	q querier
}

func (e edges) edgeExists(ctx context.Context, query string, a, b int64) (bool, error) {
	var ok bool
	if err := e.q.QueryRow(ctx, query, a, b).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to read edge: %w", err)
	}
	return ok, nil
}

func (e edges) IsFriend(ctx context.Context, a, b int64) (bool, error) {
	return e.edgeExists(ctx, `SELECT EXISTS(SELECT 1 FROM friends WHERE user_id = $1 AND friend_id = $2)`, a, b)
}

func (e edges) HasRequest(ctx context.Context, from, to int64) (bool, error) {
	return e.edgeExists(ctx, `SELECT EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = $1 AND receiver_id = $2)`, from, to)
}

func (e edges) AddFriendship(ctx context.Context, a, b int64) error {
	_, err := e.q.Exec(ctx, `
		INSERT INTO friends (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING`, a, b)
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

func (e edges) RemoveFriendship(ctx context.Context, a, b int64) (bool, error) {
	tag, err := e.q.Exec(ctx, `
		DELETE FROM friends
		WHERE (user_id = $1 AND friend_id = $2)
		   OR (user_id = $2 AND friend_id = $1)`, a, b)
	if err != nil {
		return false, fmt.Errorf("failed to remove friendship: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (e edges) AddRequest(ctx context.Context, from, to int64) error {
	_, err := e.q.Exec(ctx, `
		INSERT INTO friend_requests (sender_id, receiver_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, from, to)
	if err != nil {
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

func (e edges) RemoveRequest(ctx context.Context, from, to int64) (bool, error) {
	tag, err := e.q.Exec(ctx, `DELETE FROM friend_requests WHERE sender_id = $1 AND receiver_id = $2`, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to remove friend request: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// WithPair locks both user rows in id order before calling fn, so concurrent
// transitions on the same pair run one after the other.
func (s *Store) WithPair(ctx context.Context, a, b int64, fn func(tx friendship.Edges) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`, []int64{a, b})
		if err != nil {
			return fmt.Errorf("failed to lock users: %w", err)
		}
		locked, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return fmt.Errorf("failed to lock users: %w", err)
		}
		if len(locked) != 2 {
			return user.ErrNotFound
		}

		return fn(edges{q: tx})
	})
}

func (s *Store) Counts(ctx context.Context, userID int64) (friendship.Counts, error) {
	var c friendship.Counts
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM friends WHERE user_id = $1),
			(SELECT COUNT(*) FROM friend_requests WHERE sender_id = $1),
			(SELECT COUNT(*) FROM friend_requests WHERE receiver_id = $1)`,
		userID,
	).Scan(&c.Friends, &c.Outgoing, &c.Incoming)
	if err != nil {
		return c, fmt.Errorf("failed to count relations: %w", err)
	}
	return c, nil
}

func (s *Store) IDsInView(ctx context.Context, actorID int64, view friendship.View) ([]int64, error) {
	var query string
	switch view {
	case friendship.ViewFriends:
		query = `SELECT friend_id FROM friends WHERE user_id = $1`
	case friendship.ViewOutgoing:
		query = `SELECT receiver_id FROM friend_requests WHERE sender_id = $1`
	case friendship.ViewIncoming:
		query = `SELECT sender_id FROM friend_requests WHERE receiver_id = $1`
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}

	rows, err := s.pool.Query(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list view ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to list view ids: %w", err)
	}
	return ids, nil
}
