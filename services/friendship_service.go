package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"noxchatAPI/internal/friendship"
	"noxchatAPI/internal/user"
	"noxchatAPI/utils/apperrors"
)

// FriendshipService owns the friend request state machine. Every transition
// runs inside repo.WithPair, so the read-check-write on a pair is never
// interleaved with another transition on the same pair.
type FriendshipService struct {
	repo   friendship.Repository
	logger *zap.SugaredLogger
}

func NewFriendshipService(repo friendship.Repository, logger *zap.SugaredLogger) *FriendshipService {
	return &FriendshipService{repo: repo, logger: logger}
}

func (s *FriendshipService) IsFriend(ctx context.Context, actorID, otherID int64) (bool, error) {
	return s.repo.IsFriend(ctx, actorID, otherID)
}

func (s *FriendshipService) HasSentRequest(ctx context.Context, actorID, otherID int64) (bool, error) {
	return s.repo.HasRequest(ctx, actorID, otherID)
}

func (s *FriendshipService) HasReceivedRequest(ctx context.Context, actorID, otherID int64) (bool, error) {
	return s.repo.HasRequest(ctx, otherID, actorID)
}

// State reports the relationship from actor's side.
func (s *FriendshipService) State(ctx context.Context, actorID, otherID int64) (friendship.State, error) {
	if actorID == otherID {
		return friendship.StateSelf, nil
	}

	isFriend, err := s.repo.IsFriend(ctx, actorID, otherID)
	if err != nil {
		return "", err
	}
	if isFriend {
		return friendship.StateFriends, nil
	}

	sent, err := s.repo.HasRequest(ctx, actorID, otherID)
	if err != nil {
		return "", err
	}
	if sent {
		return friendship.StateRequestSent, nil
	}

	received, err := s.repo.HasRequest(ctx, otherID, actorID)
	if err != nil {
		return "", err
	}
	if received {
		return friendship.StateRequestReceived, nil
	}
	return friendship.StateNone, nil
}

// SendFriendRequest creates a pending request, or accepts the pending
// request in the other direction when there is one. Friending oneself
// returns OutcomeNone with ErrSelfReference and touches nothing.
func (s *FriendshipService) SendFriendRequest(ctx context.Context, actorID, otherID int64) (friendship.Outcome, error) {
	if actorID == otherID {
		return friendship.OutcomeNone, apperrors.ErrSelfReference
	}

	outcome := friendship.OutcomeNone
	err := s.withPair(ctx, actorID, otherID, func(tx friendship.Edges) error {
		isFriend, err := tx.IsFriend(ctx, actorID, otherID)
		if err != nil || isFriend {
			return err
		}

		received, err := tx.RemoveRequest(ctx, otherID, actorID)
		if err != nil {
			return err
		}
		if received {
			if _, err := tx.RemoveRequest(ctx, actorID, otherID); err != nil {
				return err
			}
			if err := tx.AddFriendship(ctx, actorID, otherID); err != nil {
				return err
			}
			outcome = friendship.OutcomeAccepted
			return nil
		}

		sent, err := tx.HasRequest(ctx, actorID, otherID)
		if err != nil || sent {
			return err
		}
		if err := tx.AddRequest(ctx, actorID, otherID); err != nil {
			return err
		}
		outcome = friendship.OutcomeSent
		return nil
	})
	if err != nil {
		return friendship.OutcomeNone, err
	}

	s.logger.Infow("friend request sent", "actor_id", actorID, "other_id", otherID, "outcome", outcome)
	return outcome, nil
}

// CancelFriendRequest withdraws actor's pending request to other.
func (s *FriendshipService) CancelFriendRequest(ctx context.Context, actorID, otherID int64) error {
	if actorID == otherID {
		return apperrors.ErrSelfReference
	}
	return s.withPair(ctx, actorID, otherID, func(tx friendship.Edges) error {
		_, err := tx.RemoveRequest(ctx, actorID, otherID)
		return err
	})
}

// AcceptFriendRequest turns other's pending request into a friendship.
func (s *FriendshipService) AcceptFriendRequest(ctx context.Context, actorID, otherID int64) error {
	if actorID == otherID {
		return apperrors.ErrSelfReference
	}
	return s.withPair(ctx, actorID, otherID, func(tx friendship.Edges) error {
		removed, err := tx.RemoveRequest(ctx, otherID, actorID)
		if err != nil || !removed {
			return err
		}
		if _, err := tx.RemoveRequest(ctx, actorID, otherID); err != nil {
			return err
		}
		return tx.AddFriendship(ctx, actorID, otherID)
	})
}

// DeclineFriendRequest drops other's pending request to actor.
func (s *FriendshipService) DeclineFriendRequest(ctx context.Context, actorID, otherID int64) error {
	if actorID == otherID {
		return apperrors.ErrSelfReference
	}
	return s.withPair(ctx, actorID, otherID, func(tx friendship.Edges) error {
		_, err := tx.RemoveRequest(ctx, otherID, actorID)
		return err
	})
}

// RemoveFriend deletes both directions of the friendship.
func (s *FriendshipService) RemoveFriend(ctx context.Context, actorID, otherID int64) error {
	if actorID == otherID {
		return apperrors.ErrSelfReference
	}
	return s.withPair(ctx, actorID, otherID, func(tx friendship.Edges) error {
		_, err := tx.RemoveFriendship(ctx, actorID, otherID)
		return err
	})
}

func (s *FriendshipService) Counts(ctx context.Context, actorID int64) (friendship.Counts, error) {
	return s.repo.Counts(ctx, actorID)
}

func (s *FriendshipService) FriendsCount(ctx context.Context, actorID int64) (int, error) {
	c, err := s.repo.Counts(ctx, actorID)
	return c.Friends, err
}

func (s *FriendshipService) OutgoingRequestsCount(ctx context.Context, actorID int64) (int, error) {
	c, err := s.repo.Counts(ctx, actorID)
	return c.Outgoing, err
}

func (s *FriendshipService) IncomingRequestsCount(ctx context.Context, actorID int64) (int, error) {
	c, err := s.repo.Counts(ctx, actorID)
	return c.Incoming, err
}

func (s *FriendshipService) withPair(ctx context.Context, actorID, otherID int64, fn func(tx friendship.Edges) error) error {
	err := s.repo.WithPair(ctx, actorID, otherID, fn)
	if errors.Is(err, user.ErrNotFound) {
		return apperrors.ErrNotFound.WithMessage("User not found.")
	}
	if err != nil {
		return fmt.Errorf("friendship transition %d->%d: %w", actorID, otherID, err)
	}
	return nil
}
