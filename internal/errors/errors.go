package errors

import "fmt"

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeSessionState = "SESSION_STATE"
	ErrCodeConcurrency  = "CONCURRENCY_CONFLICT"
	ErrCodeTransient    = "TRANSIENT_FAILURE"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "SESSION_STATE")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewSessionStateError creates a new SESSION_STATE error for operations
// that are invalid in the session's current state.
func NewSessionStateError(state string, op string) *AppError {
	return &AppError{
		Code:    ErrCodeSessionState,
		Message: fmt.Sprintf("cannot %s while session is %s", op, state),
		Status:  409,
	}
}

// NewConcurrencyConflictError creates a new CONCURRENCY_CONFLICT error.
// Callers are expected to refresh state and retry a bounded number of times.
func NewConcurrencyConflictError(resource string, id interface{}, err error) *AppError {
	return &AppError{
		Code:    ErrCodeConcurrency,
		Message: fmt.Sprintf("lost update race on %s: %v", resource, id),
		Status:  409,
		Err:     err,
	}
}

// NewTransientFailureError creates a new TRANSIENT_FAILURE error, surfaced
// when bounded retries on a concurrency conflict are exhausted.
func NewTransientFailureError(resource string, id interface{}, err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransient,
		Message: fmt.Sprintf("update to %s %v did not converge, try again", resource, id),
		Status:  503,
		Err:     err,
	}
}

// NewConflictError creates a new CONFLICT error
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Status:  409,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}
