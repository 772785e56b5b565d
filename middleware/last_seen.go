package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type LastSeenToucher interface {
	TouchLastSeen(ctx context.Context, userID int64) error
}

// LastSeenMiddleware records activity for authenticated requests. It must
// run after AuthMiddleware. A failed write never fails the request.
func LastSeenMiddleware(toucher LastSeenToucher, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := GetUserID(r.Context()); ok {
				if err := toucher.TouchLastSeen(r.Context(), userID); err != nil {
					logger.Warnw("failed to update last seen", "user_id", userID, "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
