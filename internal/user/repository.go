package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("duplicate username, email or public id")
)

// Repository is the relational store contract for users and profiles.
// Lookups return ErrNotFound when no row matches and writes return
// ErrDuplicate on unique constraint violations.
type Repository interface {
	// Create inserts the user and its profile in one transaction and fills in
	// the generated ids and default public id.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByPublicID(ctx context.Context, publicID string) (*User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*User, error)
	ListAfter(ctx context.Context, afterID int64, limit int) ([]*User, error)

	UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	PublicIDTaken(ctx context.Context, publicID string, exceptID int64) (bool, error)

	// UpdateProfile writes username, bio, public id and avatar path in one
	// transaction.
	UpdateProfile(ctx context.Context, u *User) error
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}
