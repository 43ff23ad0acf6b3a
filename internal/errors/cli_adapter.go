package errors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if te, ok := As(err); ok {
		return a.exitCodeFromTexError(te)
	}

	return 1
}

// exitCodeFromTexError maps TexError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromTexError(err *TexError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryUnsupported:
		return 3 // Not available
	case CategoryExecutable:
		return 4 // Toolchain missing
	case CategoryProcess:
		return 8 // External tool error
	case CategoryBuilder, CategoryFileSystem:
		return 11 // Build error
	case CategoryStorage:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if te, ok := As(err); ok {
		return a.formatTexError(te)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatTexError formats a TexError for display.
func (a *CLIErrorAdapter) formatTexError(err *TexError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryConfig, CategoryValidation, CategoryUnsupported:
		return err.Message
	default:
		return fmt.Sprintf("%s: %s", err.Category, err.Message)
	}
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	if te, ok := As(err); ok {
		return te.Category == CategoryInternal ||
			te.Category == CategoryStorage ||
			te.Severity == SeverityFatal
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if te, ok := As(err); ok {
		level := a.slogLevelFromSeverity(te.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(te.Category)),
		}
		for k, v := range te.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		if te.Cause != nil {
			attrs = append(attrs, slog.String("cause", te.Cause.Error()))
		}

		a.logger.LogAttrs(context.Background(), level, te.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts TexError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityFatal:
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
