// Package errors provides unified error handling for containerkit.
// It implements structured error types with error codes, cause wrapping,
// and retryable detection for the provider access taxonomy.
package errors
