package middleware

import (
	"context"
	"net/http"
	"strings"

	"noxchatAPI/internal/auth"
	"noxchatAPI/utils/apperrors"
)

type contextKey string

const UserIDKey contextKey = "userID"

type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// AuthMiddleware validates the bearer token and puts the user id in the
// request context.
func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apperrors.Write(w, apperrors.ErrUnauthorized.WithMessage("Authorization header required"))
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				apperrors.Write(w, apperrors.ErrUnauthorized.WithMessage("Invalid authorization format. Use 'Bearer <token>'"))
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				apperrors.Write(w, apperrors.ErrUnauthorized.WithMessage("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the authenticated user id from context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
