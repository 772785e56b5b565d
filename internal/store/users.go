package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"noxchatAPI/internal/friendship"
	"noxchatAPI/internal/user"
)

const (
	userColumns = `u.id, u.username, u.email, u.password_hash, p.id, p.public_id, p.bio, p.avatar_path, p.last_seen`
	userFrom    = `FROM users u JOIN profiles p ON p.user_id = u.id`
)

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Profile.ID,
		&u.Profile.PublicID,
		&u.Profile.Bio,
		&u.Profile.AvatarPath,
		&u.Profile.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	u.Profile.UserID = u.ID
	return u, nil
}

func collectUsers(rows pgx.Rows) ([]*user.User, error) {
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return users, nil
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*user.User, error) {
	query := `SELECT ` + userColumns + ` ` + userFrom + ` WHERE ` + where

	u, err := scanUser(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *Store) Create(ctx context.Context, u *user.User) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, password_hash)
			VALUES ($1, $2, $3)
			RETURNING id`,
			u.Username, u.Email, u.PasswordHash,
		).Scan(&u.ID)
		if err != nil {
			return err
		}

		u.Profile.UserID = u.ID
		u.Profile.PublicID = user.DefaultPublicID(u.Username, u.ID)
		if u.Profile.Bio == "" {
			u.Profile.Bio = user.DefaultBio
		}
		if u.Profile.AvatarPath == "" {
			u.Profile.AvatarPath = user.DefaultAvatar
		}

		return tx.QueryRow(ctx, `
			INSERT INTO profiles (user_id, public_id, bio, avatar_path)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			u.ID, u.Profile.PublicID, u.Profile.Bio, u.Profile.AvatarPath,
		).Scan(&u.Profile.ID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return s.getOne(ctx, `u.id = $1`, id)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getOne(ctx, `u.username = $1`, username)
}

func (s *Store) GetByPublicID(ctx context.Context, publicID string) (*user.User, error) {
	return s.getOne(ctx, `p.public_id = $1`, publicID)
}

// GetByIDs returns the users that exist among ids, in no particular order.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) ([]*user.User, error) {
	if len(ids) == 0 {
		return []*user.User{}, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return collectUsers(rows)
}

func (s *Store) ListAfter(ctx context.Context, afterID int64, limit int) ([]*user.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` `+userFrom+` WHERE u.id > $1 ORDER BY u.id LIMIT $2`,
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return collectUsers(rows)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Store) UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $2)`, username, exceptID)
}

func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email)
}

func (s *Store) PublicIDTaken(ctx context.Context, publicID string, exceptID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE public_id = $1 AND user_id <> $2)`, publicID, exceptID)
}

func (s *Store) UpdateProfile(ctx context.Context, u *user.User) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET username = $2 WHERE id = $1`, u.ID, u.Username)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		_, err = tx.Exec(ctx, `
			UPDATE profiles
			SET public_id = $2, bio = $3, avatar_path = $4
			WHERE user_id = $1`,
			u.ID, u.Profile.PublicID, u.Profile.Bio, u.Profile.AvatarPath,
		)
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, user.ErrNotFound):
		return err
	case isUniqueViolation(err):
		return user.ErrDuplicate
	}
	return fmt.Errorf("failed to update profile: %w", err)
}

func (s *Store) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.pool.Exec(ctx, `UPDATE profiles SET last_seen = $2 WHERE user_id = $1`, id, at); err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// MatchUsers runs the relational user query: substring match on username or
// public id, restricted to the actor's view, ordered by username.
func (s *Store) MatchUsers(ctx context.Context, m friendship.Match) ([]*user.User, error) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString(`SELECT ` + userColumns + ` ` + userFrom)

	switch m.View {
	case friendship.ViewAll:
	case friendship.ViewFriends:
		args = append(args, m.ActorID)
		sb.WriteString(` JOIN friends f ON f.friend_id = u.id AND f.user_id = $1`)
	case friendship.ViewOutgoing:
		args = append(args, m.ActorID)
		sb.WriteString(` JOIN friend_requests r ON r.receiver_id = u.id AND r.sender_id = $1`)
	case friendship.ViewIncoming:
		args = append(args, m.ActorID)
		sb.WriteString(` JOIN friend_requests r ON r.sender_id = u.id AND r.receiver_id = $1`)
	default:
		return nil, fmt.Errorf("unknown view %q", m.View)
	}

	if m.Text != "" {
		args = append(args, "%"+likeEscaper.Replace(m.Text)+"%")
		n := len(args)
		fmt.Fprintf(&sb, ` WHERE (u.username ILIKE $%d OR p.public_id ILIKE $%d)`, n, n)
	}

	args = append(args, m.Limit, m.Offset)
	fmt.Fprintf(&sb, ` ORDER BY u.username COLLATE "C", u.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to match users: %w", err)
	}
	return collectUsers(rows)
}
