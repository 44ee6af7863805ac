package errors

import "fmt"

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
// This makes error creation consistent and discoverable throughout the codebase.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError, // Default severity
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		cause:    err,
		context:  make(ErrorContext),
	}
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithCause sets the underlying cause.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.cause = cause
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// WithContextMap adds multiple context values.
func (b *ErrorBuilder) WithContextMap(ctx ErrorContext) *ErrorBuilder {
	b.context = b.context.Merge(ctx)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Info sets the severity to info.
func (b *ErrorBuilder) Info() *ErrorBuilder {
	return b.WithSeverity(SeverityInfo)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for the state-engine error taxonomy

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message)
}

// SchemaError creates a schema-violation error (well-formed file, wrong shape).
func SchemaError(message string) *ErrorBuilder {
	return NewError(CategorySchema, message)
}

// ParseError creates a parse error for a syntactically invalid file.
func ParseError(message string) *ErrorBuilder {
	return NewError(CategoryParse, message)
}

// MissingFileError creates an error for a required file that does not exist.
func MissingFileError(path string) *ErrorBuilder {
	return NewError(CategoryMissingFile, fmt.Sprintf("required file missing: %s", path)).
		WithContext("path", path)
}

// EmptyFileError creates an error for a file that exists but has no content.
func EmptyFileError(path string) *ErrorBuilder {
	return NewError(CategoryEmptyFile, fmt.Sprintf("file is empty: %s", path)).
		WithContext("path", path)
}

// NoProjectStateError creates an error for operations that need an initialized project.
func NoProjectStateError() *ErrorBuilder {
	return NewError(CategoryNoProjectState, "no project state found; initialize the project first")
}

// TaskNotFoundError creates an error for an unknown task id.
func TaskNotFoundError(id string) *ErrorBuilder {
	return NewError(CategoryTaskNotFound, fmt.Sprintf("task %q not found", id)).
		WithContext("task_id", id)
}

// ArchiveNotFoundError creates an error for a named archive that does not exist.
func ArchiveNotFoundError(name string) *ErrorBuilder {
	return NewError(CategoryArchiveNotFound, fmt.Sprintf("archive %q not found", name)).
		WithContext("archive", name)
}

// CorruptStateError creates an error for unreadable or undecodable state.
// State is never silently dropped; callers surface this and leave the file as-is.
func CorruptStateError(message string) *ErrorBuilder {
	return NewError(CategoryCorruptState, message).Fatal()
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

// AuditError creates an audit-log error.
func AuditError(message string) *ErrorBuilder {
	return NewError(CategoryAudit, message).Warning()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
