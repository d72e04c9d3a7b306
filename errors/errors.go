package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// Configuration creates a new AppError for an unusable provider environment.
func Configuration(reason string) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: reason,
		Retryable: false,
	}
}

// ConfigurationWrap creates a new AppError wrapping a failure reported by
// the underlying lookup mechanism. The cause is preserved for Unwrap, never
// swallowed.
func ConfigurationWrap(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: reason,
		Retryable: false, Cause: cause,
	}
}

// InvalidArgument creates a new AppError for an unusable caller-supplied value.
func InvalidArgument(argument, reason string) *AppError {
	details := make(map[string]any)
	if argument != "" {
		details["argument"] = argument
	}
	return &AppError{
		Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("Invalid argument: %s", reason),
		Retryable: false, Details: details,
	}
}

// IllegalState creates a new AppError for an operation forbidden in the
// current state.
func IllegalState(reason string) *AppError {
	return &AppError{
		Code: ErrCodeIllegalState, Message: reason,
		Retryable: false,
	}
}

// --- Predicates ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return HasCode(err, ErrCodeConfiguration)
}

// IsInvalidArgument reports whether err is an invalid-argument error.
func IsInvalidArgument(err error) bool {
	return HasCode(err, ErrCodeInvalidArgument)
}

// IsIllegalState reports whether err is an illegal-state error.
func IsIllegalState(err error) bool {
	return HasCode(err, ErrCodeIllegalState)
}
