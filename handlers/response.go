package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"noxchatAPI/internal/user"
	"noxchatAPI/middleware"
	"noxchatAPI/utils/apperrors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return user.ValidIdentifier(fl.Field().String())
	})
	return v
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes err through the apperrors taxonomy and logs the
// ones that end up as server errors.
func respondWithError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	apiErr := apperrors.Write(w, err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "error", err)
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.ErrInvalidInput.WithMessage("Invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperrors.ErrInvalidInput
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
		return apperrors.ErrInvalidInput.
			WithMessage("Validation failed").
			WithDetails(strings.Join(fields, "; "))
	}
	return nil
}

// parsePaging reads page and page_size. Missing values fall back to page 1
// and defaultSize; clamping happens in the search service.
func parsePaging(r *http.Request, defaultSize int) (int, int, error) {
	page, pageSize := 1, defaultSize

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, apperrors.ErrInvalidInput.WithMessage("Query parameter 'page' must be a number")
		}
		page = n
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, apperrors.ErrInvalidInput.WithMessage("Query parameter 'page_size' must be a number")
		}
		pageSize = n
	}
	return page, pageSize, nil
}

func currentUserID(ctx context.Context) (int64, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		return 0, apperrors.ErrUnauthorized.WithMessage("User not authenticated")
	}
	return userID, nil
}

func publicUsers(users []*user.User) []*user.User {
	out := make([]*user.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
