package errors

import (
	"context"
	stderrors "errors"
	"log/slog"
)

// Process exit codes reported by the command line.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ErrorHandler provides centralized reporting of run failures
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError logs err with its type and context and returns the exit code
// the process should terminate with.
func (h *ErrorHandler) HandleError(ctx context.Context, err error) int {
	if err == nil {
		return ExitOK
	}

	attrs := []any{slog.String("error", err.Error())}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		attrs = append(attrs, slog.String("error_type", string(appErr.Type)))
		for k, v := range appErr.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
	}

	h.logger.ErrorContext(ctx, "run failed", attrs...)
	return ExitCode(err)
}

// ExitCode maps an error to a process exit code. Malformed arguments are
// usage errors; everything else is a failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsType(err, ErrTypeMalformedArgument):
		return ExitUsage
	default:
		return ExitFailure
	}
}
