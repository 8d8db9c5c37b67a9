package middleware

import "errors"

// PermissionError is raised by authorization-style middleware: access guard, rate
// limiting, field permissions. The final wire formatting belongs to the execution
// layer; middleware only classifies.
type PermissionError struct {
	Code    string
	Message string
}

func (e *PermissionError) Error() string {
	return e.Message
}

// NewPermissionError creates a PermissionError.
func NewPermissionError(code, message string) *PermissionError {
	return &PermissionError{Code: code, Message: message}
}

// ValidationError is raised by validation-style middleware: input validation and
// query complexity.
type ValidationError struct {
	Code       string
	Message    string
	Violations []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError.
func NewValidationError(code, message string, violations ...string) *ValidationError {
	return &ValidationError{Code: code, Message: message, Violations: violations}
}

// IsPermissionError reports whether err is (or wraps) a PermissionError.
func IsPermissionError(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
