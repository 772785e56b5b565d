package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"noxchatAPI/internal/friendship"
	"noxchatAPI/services"
	"noxchatAPI/utils/apperrors"
)

type FriendshipHandler struct {
	userService       *services.UserService
	friendshipService *services.FriendshipService
	searchService     *services.SearchService
	pageSize          int
	logger            *zap.SugaredLogger
}

func NewFriendshipHandler(
	userService *services.UserService,
	friendshipService *services.FriendshipService,
	searchService *services.SearchService,
	pageSize int,
	logger *zap.SugaredLogger,
) *FriendshipHandler {
	return &FriendshipHandler{
		userService:       userService,
		friendshipService: friendshipService,
		searchService:     searchService,
		pageSize:          pageSize,
		logger:            logger,
	}
}

type transitionResponse struct {
	Outcome friendship.Outcome `json:"outcome,omitempty"`
	Status  string             `json:"status,omitempty"`
	State   friendship.State   `json:"state"`
}

type friendsPage struct {
	*services.Page
	View friendship.View `json:"view"`
}

// transition is the shared request flow: resolve the target by public id,
// apply fn, then report the resulting relationship state.
func (h *FriendshipHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, otherID int64) (friendship.Outcome, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	actorID, err := currentUserID(ctx)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	target, err := h.userService.LookupByPublicID(ctx, mux.Vars(r)["public_id"])
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	outcome, err := fn(ctx, actorID, target.ID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	state, err := h.friendshipService.State(ctx, actorID, target.ID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	resp := transitionResponse{Outcome: outcome, State: state}
	if outcome == "" {
		resp.Status = "ok"
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// noOutcome adapts the transitions that only report success.
func noOutcome(fn func(ctx context.Context, actorID, otherID int64) error) func(ctx context.Context, actorID, otherID int64) (friendship.Outcome, error) {
	return func(ctx context.Context, actorID, otherID int64) (friendship.Outcome, error) {
		return "", fn(ctx, actorID, otherID)
	}
}

func (h *FriendshipHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.friendshipService.SendFriendRequest)
}

func (h *FriendshipHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, noOutcome(h.friendshipService.CancelFriendRequest))
}

func (h *FriendshipHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, noOutcome(h.friendshipService.AcceptFriendRequest))
}

func (h *FriendshipHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, noOutcome(h.friendshipService.DeclineFriendRequest))
}

func (h *FriendshipHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, noOutcome(h.friendshipService.RemoveFriend))
}

// ListFriends pages through one of the caller's relationship views,
// optionally filtered by q.
func (h *FriendshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	actorID, err := currentUserID(ctx)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	view, err := friendship.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		respondWithError(w, h.logger, apperrors.ErrInvalidInput.WithMessage(err.Error()))
		return
	}

	page, pageSize, err := parsePaging(r, h.pageSize)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	result, err := h.searchService.FriendsView(ctx, actorID, view, r.URL.Query().Get("q"), page, pageSize)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	result.Users = publicUsers(result.Users)
	respondWithJSON(w, http.StatusOK, friendsPage{Page: result, View: view})
}
