package errors

import stdErrors "errors"

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *TexError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *TexError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *TexError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// UnsupportedBuilder is reported before any invocation when the configured
// builder name is not one of the known strategies.
func UnsupportedBuilder(name string) *TexError {
	return New(CategoryConfig, SeverityFatal, "unsupported builder").
		WithContext("builder", name)
}

// Build errors

// Unsupported marks an operation a builder does not implement.
func Unsupported(builder, operation string) *TexError {
	return Wrap(stdErrors.ErrUnsupported, CategoryUnsupported, SeverityInfo, "operation not supported").
		WithContext("builder", builder).
		WithContext("operation", operation)
}

func DirectoryCreateFailed(dir string, cause error) *TexError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "could not create directory").
		WithContext("directory", dir)
}

func ExecutableNotFound(program string, cause error) *TexError {
	return Wrap(cause, CategoryExecutable, SeverityFatal, "executable not found").
		WithContext("program", program)
}

func InvocationFailed(program string, exitCode int, cause error) *TexError {
	return Wrap(cause, CategoryProcess, SeverityError, "invocation failed").
		WithContext("program", program).
		WithContext("exit_code", exitCode)
}

func BuilderFailed(builder string, cause error) *TexError {
	return Wrap(cause, CategoryBuilder, SeverityFatal, "builder failed").
		WithContext("builder", builder)
}

// Storage errors

func HistoryError(operation string, cause error) *TexError {
	return Wrap(cause, CategoryStorage, SeverityError, "build history operation failed").
		WithContext("operation", operation)
}

// Internal errors

func InternalError(message string, cause error) *TexError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
