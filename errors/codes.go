package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Bootstrap/resolution errors
const (
	// ErrCodeConfiguration indicates the provider environment is unusable:
	// no provider is registered, every discovered provider declined to
	// produce a container, or the lookup mechanism itself is broken.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeInvalidArgument indicates a caller passed an unusable value,
	// such as a nil provider override.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeIllegalState indicates an operation was invoked in a state
	// that forbids it, such as shutting down without an active container.
	ErrCodeIllegalState ErrorCode = "ILLEGAL_STATE"
)

var retryableCodes = map[ErrorCode]bool{
	// Configuration errors are fatal for the current environment. A caller
	// may still re-attempt resolution after registering a provider, since a
	// failed resolution caches nothing.
	ErrCodeConfiguration:   false,
	ErrCodeInvalidArgument: false,
	ErrCodeIllegalState:    false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
