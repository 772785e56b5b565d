package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs_MatchesCopies(t *testing.T) {
	err := ErrConflict.WithMessage("public id already taken").WithDetails("public_id")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Resource conflict", ErrConflict.Message, "sentinel must not be mutated")
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("update profile: %w", ErrNotFound)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, ErrNotFound.Status, From(err).Status)
}

func TestFrom_HidesPlainErrors(t *testing.T) {
	cause := errors.New("pq: connection refused")

	apiErr := From(cause)

	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.True(t, errors.Is(apiErr, cause))
	assert.NotContains(t, apiErr.Message, "connection refused")
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", ErrInvalidInput.WithMessage("bio too long"), http.StatusBadRequest, "INVALID_INPUT"},
		{"self reference", ErrSelfReference, http.StatusBadRequest, "SELF_REFERENCE"},
		{"not found", ErrNotFound.WithMessage("User bob not found."), http.StatusNotFound, "NOT_FOUND"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			Write(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.NotContains(t, rr.Body.String(), "boom")
		})
	}
}
