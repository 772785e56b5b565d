package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is the client-visible error shape returned by every endpoint.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Details string `json:"details,omitempty"`

	cause error
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Is matches on Code so copies made with WithMessage/WithDetails still compare
// equal to the package sentinels.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput  = New("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrUnauthorized  = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrNotFound      = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrConflict      = New("CONFLICT", "Resource conflict", http.StatusConflict)
	ErrSelfReference = New("SELF_REFERENCE", "You cannot add yourself as a friend!", http.StatusBadRequest)
	ErrInternal      = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

func (e *APIError) WithDetails(details string) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// Wrap keeps an existing APIError as is, otherwise it hides err behind a
// generic error with the given code and keeps it reachable through Unwrap.
func Wrap(err error, code, message string, status int) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Code: code, Message: message, Status: status, cause: err}
}

// From returns the APIError in err's chain, or ErrInternal wrapping err.
func From(err error) *APIError {
	return Wrap(err, ErrInternal.Code, ErrInternal.Message, ErrInternal.Status)
}

type errorBody struct {
	Error *APIError `json:"error"`
}

// Write renders err as {"error": {...}}. Internal causes are never written.
func Write(w http.ResponseWriter, err error) *APIError {
	apiErr := From(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(errorBody{Error: apiErr})
	return apiErr
}
