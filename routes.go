package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"noxchatAPI/handlers"
	"noxchatAPI/middleware"
)

type routeHandlers struct {
	auth       *handlers.AuthHandler
	users      *handlers.UserHandler
	friendship *handlers.FriendshipHandler
	health     *handlers.HealthHandler
	metrics    http.Handler
}

func newRouter(h routeHandlers, tokens middleware.TokenValidator, lastSeen middleware.LastSeenToucher, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", h.metrics).Methods("GET")
	r.HandleFunc("/health", h.health.Health).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", h.auth.Register).Methods("POST")
	api.HandleFunc("/auth/login", h.auth.Login).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(tokens))
	protected.Use(middleware.LastSeenMiddleware(lastSeen, logger.Sugar()))

	protected.HandleFunc("/me", h.users.GetMe).Methods("GET")
	protected.HandleFunc("/me", h.users.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/me/profile", h.users.UpdateProfile).Methods("PUT")

	// registered before /users/{public_id} so "search" is not taken as an id
	protected.HandleFunc("/users/search", h.users.SearchUsers).Methods("GET")
	protected.HandleFunc("/users/{public_id}", h.users.GetUser).Methods("GET")

	protected.HandleFunc("/friends", h.friendship.ListFriends).Methods("GET")
	protected.HandleFunc("/friends/{public_id}/request", h.friendship.SendRequest).Methods("POST")
	protected.HandleFunc("/friends/{public_id}/cancel", h.friendship.CancelRequest).Methods("POST")
	protected.HandleFunc("/friends/{public_id}/accept", h.friendship.AcceptRequest).Methods("POST")
	protected.HandleFunc("/friends/{public_id}/decline", h.friendship.DeclineRequest).Methods("POST")
	protected.HandleFunc("/friends/{public_id}", h.friendship.RemoveFriend).Methods("DELETE")

	return r
}
