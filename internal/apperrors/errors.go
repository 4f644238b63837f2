package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that the requested change is not compatible with the
// entity's current state (e.g. an illegal status transition).
var ErrConflict = errors.New("conflicting state")

// ErrForbidden indicates that the acting user or requester role is not
// eligible for the requested operation.
var ErrForbidden = errors.New("operation forbidden")

// ErrInsufficientVolume indicates a deduction larger than the volume left in a blood unit.
var ErrInsufficientVolume = errors.New("insufficient remaining volume")

// ErrVolumeExceeded indicates a requested allocation above a permitted physical bound.
var ErrVolumeExceeded = errors.New("volume exceeds permitted bound")

// ErrInvalidTransition indicates a status change that is not reachable from
// the current status, including re-setting the current status.
var ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrConflict)

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// AppError carries a status code alongside a message and the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError wrapping the given cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError that matches errors.Is(err, ErrNotFound).
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}
