package handlers

import (
	"context"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	search ReadinessChecker
}

// NewHealthHandler takes a nil search checker when no index is configured.
func NewHealthHandler(db Pinger, search ReadinessChecker) *HealthHandler {
	return &HealthHandler{db: db, search: search}
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Search  string `json:"search"`
	Error   string `json:"error,omitempty"`
}

// Health fails only when the database is unreachable. A degraded search
// index is reported but still healthy since queries fall back to the store.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Service: "noxchat-api", Search: "disabled"}
	if h.search != nil {
		resp.Search = "ok"
		if err := h.search.Ready(ctx); err != nil {
			resp.Search = "degraded"
		}
	}

	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Error = "database connection failed"
		respondWithJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
