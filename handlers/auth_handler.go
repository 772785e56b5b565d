package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"noxchatAPI/internal/auth"
	"noxchatAPI/internal/user"
	"noxchatAPI/services"
)

type AuthHandler struct {
	userService *services.UserService
	tokens      *auth.TokenManager
	logger      *zap.SugaredLogger
}

func NewAuthHandler(userService *services.UserService, tokens *auth.TokenManager, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req user.RegisterRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	u, err := h.userService.Register(ctx, &req)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	h.respondWithToken(w, http.StatusCreated, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req user.LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	u, err := h.userService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	h.respondWithToken(w, http.StatusOK, u)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, code int, u *user.User) {
	token, err := h.tokens.Generate(u.ID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, code, user.AuthResponse{Token: token, User: u})
}
