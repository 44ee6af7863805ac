// Package errors provides foundational, type-safe error primitives used across ReportBuilder.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (missing_file, task_not_found, corrupt_state, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for error presentation and exit codes
//
// Example usage:
//
//	err := errors.CorruptStateError("status.json is not valid JSON").
//		WithContext("path", statusPath).
//		WithCause(parseErr).
//		Build()
package errors
