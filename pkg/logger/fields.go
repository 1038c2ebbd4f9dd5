package logger

import (
	"github.com/socialgouv/companion-launcher/pkg/types"
)

// Standard field names for structured logging
const (
	// Component fields
	FieldComponent = "component"
	FieldOperation = "operation"

	// Request fields
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldDuration  = "duration_ms"
	FieldStatus    = "status"

	// Launch fields
	FieldLaunchID = "launch_id"
	FieldState    = "state"

	// Layout fields
	FieldExecutable = "executable"
	FieldEntryPath  = "entry_path"
	FieldWorkDir    = "work_dir"

	// Error fields
	FieldError      = "error"
	FieldErrorCode  = "error_code"
	FieldStackTrace = "stack_trace"

	// Process fields
	FieldInterpreter = "interpreter"
	FieldPID         = "pid"
	FieldSignal      = "signal"
	FieldStream      = "stream"
)

// WithLayout adds resolved layout information to the logger
func WithLayout(logger Logger, layout *types.ResolvedLayout) Logger {
	if layout == nil {
		return logger
	}
	return logger.WithFields(layout.ToFields())
}

// WithComponent adds component information to the logger
func WithComponent(logger Logger, component string) Logger {
	return logger.WithField(FieldComponent, component)
}

// WithOperation adds operation information to the logger
func WithOperation(logger Logger, operation string) Logger {
	return logger.WithField(FieldOperation, operation)
}

// WithError adds error information to the logger
func WithError(logger Logger, err error) Logger {
	if err == nil {
		return logger
	}
	return logger.WithField(FieldError, err.Error())
}
