package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"noxchatAPI/internal/auth"
	"noxchatAPI/internal/search"
	"noxchatAPI/internal/user"
	"noxchatAPI/utils/apperrors"
)

const invalidIdentifierMsg = "may only contain letters, digits and underscores, and cannot start or end with an underscore"

// ProfileCache is an optional read-through cache for public id lookups.
type ProfileCache interface {
	Get(ctx context.Context, publicID string) (*user.User, error)
	Set(ctx context.Context, u *user.User) error
	Invalidate(ctx context.Context, publicIDs ...string) error
}

type UserService struct {
	repo   user.Repository
	index  *search.Adapter
	hasher auth.PasswordHasher
	cache  ProfileCache
	policy *bluemonday.Policy
	logger *zap.SugaredLogger
}

func NewUserService(repo user.Repository, index *search.Adapter, hasher auth.PasswordHasher, logger *zap.SugaredLogger) *UserService {
	return &UserService{
		repo:   repo,
		index:  index,
		hasher: hasher,
		policy: bluemonday.StrictPolicy(),
		logger: logger,
	}
}

func (s *UserService) SetCache(c ProfileCache) {
	s.cache = c
}

func documentFor(u *user.User) search.Document {
	return search.Document{ID: u.ID, Username: u.Username, PublicID: u.Profile.PublicID}
}

// Register creates the user with a default profile and indexes it.
func (s *UserService) Register(ctx context.Context, req *user.RegisterRequest) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if !user.ValidIdentifier(username) {
		return nil, apperrors.ErrInvalidInput.WithMessage("Username " + invalidIdentifierMsg)
	}

	taken, err := s.repo.UsernameTaken(ctx, username, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, apperrors.ErrConflict.WithMessage("Please use a different username.").WithDetails("username")
	}

	taken, err = s.repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, apperrors.ErrConflict.WithMessage("Please use a different email address.").WithDetails("email")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, apperrors.ErrConflict.WithMessage("Username or email already registered.")
		}
		return nil, err
	}

	s.index.Index(ctx, documentFor(u))
	s.logger.Infow("user registered", "user_id", u.ID, "public_id", u.Profile.PublicID)
	return u, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords fail
// the same way.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	invalid := apperrors.ErrUnauthorized.WithMessage("Invalid username or password")

	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, user.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, invalid
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, user.ErrNotFound) {
		return nil, apperrors.ErrNotFound.WithMessage("User not found.")
	}
	return u, err
}

// LookupByPublicID resolves the external identifier used in URLs.
func (s *UserService) LookupByPublicID(ctx context.Context, publicID string) (*user.User, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, publicID)
		if err != nil {
			s.logger.Warnw("profile cache read failed", "public_id", publicID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	u, err := s.repo.GetByPublicID(ctx, publicID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, apperrors.ErrNotFound.WithMessage(fmt.Sprintf("User %s not found.", publicID))
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, u); err != nil {
			s.logger.Warnw("profile cache write failed", "public_id", publicID, "error", err)
		}
	}
	return u, nil
}

// UpdateProfile validates everything before writing, so a rejected edit
// leaves both this profile and any conflicting one untouched.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, req *user.UpdateProfileRequest) (*user.User, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	publicID := strings.ToLower(strings.TrimSpace(req.PublicID))
	bio := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(req.Bio)))

	if !user.ValidIdentifier(username) {
		return nil, apperrors.ErrInvalidInput.WithMessage("Username " + invalidIdentifierMsg).WithDetails("username")
	}
	if !user.ValidIdentifier(publicID) {
		return nil, apperrors.ErrInvalidInput.WithMessage("Public ID " + invalidIdentifierMsg).WithDetails("public_id")
	}
	if user.BioTooLong(bio) {
		return nil, apperrors.ErrInvalidInput.WithMessage(fmt.Sprintf("Bio must be at most %d characters.", user.MaxBioLength)).WithDetails("bio")
	}

	if username != current.Username {
		taken, err := s.repo.UsernameTaken(ctx, username, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, apperrors.ErrConflict.WithMessage("Please use a different username.").WithDetails("username")
		}
	}

	oldPublicID := current.Profile.PublicID
	if publicID != oldPublicID {
		taken, err := s.repo.PublicIDTaken(ctx, publicID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check public id: %w", err)
		}
		if taken {
			return nil, apperrors.ErrConflict.WithMessage("Please use a different public ID.").WithDetails("public_id")
		}
	}

	updated := *current
	updated.Username = username
	updated.Profile.Bio = bio
	updated.Profile.PublicID = publicID
	updated.Profile.AvatarPath = user.RelocateAvatar(current.Profile.AvatarPath, oldPublicID, publicID)

	if err := s.repo.UpdateProfile(ctx, &updated); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, apperrors.ErrConflict.WithMessage("Username or public ID already in use.")
		}
		if errors.Is(err, user.ErrNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("User not found.")
		}
		return nil, err
	}

	s.invalidate(ctx, oldPublicID, publicID)
	s.index.Index(ctx, documentFor(&updated))
	s.logger.Infow("profile updated", "user_id", id, "public_id", publicID)
	return &updated, nil
}

func (s *UserService) TouchLastSeen(ctx context.Context, id int64) error {
	return s.repo.TouchLastSeen(ctx, id, time.Now().UTC())
}

// DeleteAccount removes the user; friendships and requests go with it.
func (s *UserService) DeleteAccount(ctx context.Context, id int64) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperrors.ErrNotFound.WithMessage("User not found.")
		}
		return err
	}

	s.invalidate(ctx, u.Profile.PublicID)
	s.index.Remove(ctx, id)
	s.logger.Infow("account deleted", "user_id", id)
	return nil
}

func (s *UserService) invalidate(ctx context.Context, publicIDs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, publicIDs...); err != nil {
		s.logger.Warnw("profile cache invalidation failed", "public_ids", publicIDs, "error", err)
	}
}
