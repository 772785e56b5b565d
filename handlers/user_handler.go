package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"noxchatAPI/internal/friendship"
	"noxchatAPI/internal/user"
	"noxchatAPI/services"
	"noxchatAPI/utils/apperrors"
)

type UserHandler struct {
	userService       *services.UserService
	friendshipService *services.FriendshipService
	searchService     *services.SearchService
	pageSize          int
	logger            *zap.SugaredLogger
}

func NewUserHandler(
	userService *services.UserService,
	friendshipService *services.FriendshipService,
	searchService *services.SearchService,
	pageSize int,
	logger *zap.SugaredLogger,
) *UserHandler {
	return &UserHandler{
		userService:       userService,
		friendshipService: friendshipService,
		searchService:     searchService,
		pageSize:          pageSize,
		logger:            logger,
	}
}

type meResponse struct {
	User   *user.User        `json:"user"`
	Counts friendship.Counts `json:"counts"`
}

type profileResponse struct {
	User  *user.User       `json:"user"`
	State friendship.State `json:"state"`
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := currentUserID(ctx)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	u, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	counts, err := h.friendshipService.Counts(ctx, userID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, meResponse{User: u, Counts: counts})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := currentUserID(ctx)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req user.UpdateProfileRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	u, err := h.userService.UpdateProfile(ctx, userID, &req)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := currentUserID(ctx)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	if err := h.userService.DeleteAccount(ctx, userID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

// GetUser shows another user's public profile and how the caller relates to them.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := currentUserID(ctx)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	target, err := h.userService.LookupByPublicID(ctx, mux.Vars(r)["public_id"])
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	state, err := h.friendshipService.State(ctx, userID, target.ID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profileResponse{User: target.Public(), State: state})
}

func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondWithError(w, h.logger, apperrors.ErrInvalidInput.WithMessage("Search query parameter 'q' is required"))
		return
	}

	page, pageSize, err := parsePaging(r, h.pageSize)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	result, err := h.searchService.Search(ctx, query, page, pageSize)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	result.Users = publicUsers(result.Users)
	respondWithJSON(w, http.StatusOK, result)
}
