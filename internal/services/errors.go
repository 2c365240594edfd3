package services

import "errors"

type ErrorCode string

const (
	ErrorUnauthorized             ErrorCode = "unauthorized"
	ErrorNotFound                 ErrorCode = "not_found"
	ErrorInvalid                  ErrorCode = "invalid_input"
	ErrorInsufficientParticipants ErrorCode = "insufficient_participants"
	ErrorConflict                 ErrorCode = "conflict"
	// ErrorUpstream marks a failed external-generator call. It is always
	// absorbed by the deterministic fallback and never reaches a caller;
	// it exists so the absorption can be logged with a stable code.
	ErrorUpstream          ErrorCode = "upstream_unavailable"
	ErrorStoreWriteFailure ErrorCode = "store_write_failure"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewInvalidError(msg string) error  { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewInsufficientParticipantsError(msg string) error {
	return &ServiceError{Code: ErrorInsufficientParticipants, Message: msg}
}
func NewConflictError(msg string) error { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUpstreamError(msg string) error { return &ServiceError{Code: ErrorUpstream, Message: msg} }
func NewStoreWriteError(msg string) error {
	return &ServiceError{Code: ErrorStoreWriteFailure, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
