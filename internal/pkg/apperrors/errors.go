package apperrors

import "errors"

// Workflow error kinds. Every error returned by the clearance engine wraps exactly
// one of these so the presentation layer can map it with errors.Is.
var (
	// ErrValidation is returned for missing or malformed required input
	ErrValidation = errors.New("validation failed")
	// ErrReferenceNotFound is returned when a department or hostel code does not exist
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrActiveRequestExists is returned when the student already has a non-terminal request
	ErrActiveRequestExists = errors.New("active request already exists")
	// ErrInvalidTransition is returned for a track transition from a terminal state
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidState is returned for a query operation against an incompatible state
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound is returned when a lookup by id/student/unit found nothing
	ErrNotFound = errors.New("not found")
	// ErrStoreFailure is returned when the underlying persistence call failed or timed out
	ErrStoreFailure = errors.New("store failure")
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrInvalidFormat      = errors.New("invalid token format")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrConflict           = errors.New("conflict")
)

// NewValidationError creates a validation error with a message
func NewValidationError(message string) *CustomError {
	return NewCustomError(ErrValidation, message)
}

// NewReferenceNotFoundError creates a reference error carrying the offending code
func NewReferenceNotFoundError(kind, code string) *CustomError {
	return NewCustomError(ErrReferenceNotFound, kind+" with code '"+code+"' not found").
		WithDetails(map[string]interface{}{kind: code})
}

// NewNotFoundError creates a not found error with a message
func NewNotFoundError(message string) *CustomError {
	return NewCustomError(ErrNotFound, message)
}

// NewInvalidTransitionError creates an invalid transition error with a message
func NewInvalidTransitionError(message string) *CustomError {
	return NewCustomError(ErrInvalidTransition, message)
}

// NewInvalidStateError creates an invalid state error with a message
func NewInvalidStateError(message string) *CustomError {
	return NewCustomError(ErrInvalidState, message)
}

// NewStoreFailure wraps a persistence error
func NewStoreFailure(op string, err error) *CustomError {
	return &CustomError{
		Err:     ErrStoreFailure,
		Message: op + ": " + err.Error(),
		Cause:   err,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) *CustomError {
	return NewCustomError(ErrConflict, message)
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
	// Cause is the lower-level error, if any. It is not part of the errors.Is chain
	// of Err but is reachable through Unwrap.
	Cause error
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements the multi-error form of errors.Unwrap
func (e *CustomError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// DetailsOf returns the details attached to the first CustomError in the chain
func DetailsOf(err error) map[string]interface{} {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}

// MessageOf returns the message of the first CustomError in the chain, or err.Error()
func MessageOf(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
