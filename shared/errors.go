package shared

import (
	"errors"
	"net/http"
)

// Error kinds returned to clients alongside the HTTP status. Conflict-family
// kinds all map to 409 but stay distinct so callers can tell a benign
// retry (ALREADY_ANSWERED) from a real state race.
const (
	KindValidation          = "VALIDATION_ERROR"
	KindNotFound            = "NOT_FOUND"
	KindConflict            = "CONFLICT"
	KindConflictingSession  = "CONFLICTING_SESSION"
	KindSessionNotActive    = "SESSION_NOT_ACTIVE"
	KindAlreadyAnswered     = "ALREADY_ANSWERED"
	KindResumeWindowExpired = "RESUME_WINDOW_EXPIRED"
	KindUnauthorized        = "UNAUTHORIZED"
	KindRateLimited         = "RATE_LIMITED"
	KindInternal            = "INTERNAL_ERROR"
)

type AppError struct {
	StatusCode int
	Kind       string
	Message    string
	Data       interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Kind + ": " + e.Err.Error()
	}
	return e.Kind + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// GetAppError unwraps err into an *AppError if one is anywhere in the chain.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func newAppError(statusCode int, kind string, err error, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Kind:       kind,
		Message:    message,
		Err:        err,
	}
}

func NewValidationError(err error, message string) *AppError {
	return newAppError(http.StatusBadRequest, KindValidation, err, message)
}

// NewBadRequestError is an alias kept for parity with handler call sites;
// a malformed body is a validation failure.
func NewBadRequestError(err error, message string) *AppError {
	return NewValidationError(err, message)
}

func NewNotFoundError(err error, message string) *AppError {
	return newAppError(http.StatusNotFound, KindNotFound, err, message)
}

func NewConflictError(err error, message string) *AppError {
	return newAppError(http.StatusConflict, KindConflict, err, message)
}

func NewConflictingSessionError(message string) *AppError {
	return newAppError(http.StatusConflict, KindConflictingSession, nil, message)
}

func NewSessionNotActiveError(message string) *AppError {
	return newAppError(http.StatusConflict, KindSessionNotActive, nil, message)
}

func NewAlreadyAnsweredError(message string) *AppError {
	return newAppError(http.StatusConflict, KindAlreadyAnswered, nil, message)
}

func NewResumeWindowExpiredError(message string) *AppError {
	return newAppError(http.StatusGone, KindResumeWindowExpired, nil, message)
}

func NewUnauthorizedError(err error, message string) *AppError {
	return newAppError(http.StatusUnauthorized, KindUnauthorized, err, message)
}

func NewRateLimitedError(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, KindRateLimited, nil, message)
}

func NewInternalError(err error, message string) *AppError {
	return newAppError(http.StatusInternalServerError, KindInternal, err, message)
}
