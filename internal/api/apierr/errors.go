package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/services/submission"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidValue         = "INVALID_VALUE"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeNameTaken            = "NAME_TAKEN"
	CodeSubmissionInProgress = "SUBMISSION_IN_PROGRESS"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, submission.ErrInvalidValue):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidValue, "Please enter a valid portfolio value"}}
	case errors.Is(err, submission.ErrSubmissionInProgress):
		return &httpError{http.StatusConflict, APIError{CodeSubmissionInProgress, "A submission for this name is already in progress"}}
	// Checked before the generic write failure it is wrapped in
	case errors.Is(err, model.ErrNameTaken):
		return &httpError{http.StatusConflict, APIError{CodeNameTaken, "Player name is already taken"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewUnavailableError reports that the player store cannot be reached
func NewUnavailableError() error {
	return &httpError{http.StatusServiceUnavailable, APIError{CodeStoreUnavailable, "Player store is unavailable"}}
}
