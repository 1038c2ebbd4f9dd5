package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Field names for structured logging
const (
	FieldError      = "error"
	FieldErrorCode  = "error_code"
	FieldStackTrace = "stack_trace"
)

// Error codes reported by the launcher
const (
	// ErrorCodeUnknown is used when the error type is unknown
	ErrorCodeUnknown = "ERR_UNKNOWN"
	// ErrorCodeInvalidInput is used when configuration or arguments are invalid
	ErrorCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrorCodeInterpreterNotFound is used when the interpreter is not on the search path
	ErrorCodeInterpreterNotFound = "ERR_INTERPRETER_NOT_FOUND"
	// ErrorCodeSpawnFailed is used when the companion process could not be started
	ErrorCodeSpawnFailed = "ERR_SPAWN_FAILED"
	// ErrorCodeSignalFailed is used when the termination signal could not be delivered
	ErrorCodeSignalFailed = "ERR_SIGNAL_FAILED"
	// ErrorCodeAlreadyStarted is used when a second start is attempted in one run
	ErrorCodeAlreadyStarted = "ERR_ALREADY_STARTED"
	// ErrorCodeTimeout is used when an operation times out
	ErrorCodeTimeout = "ERR_TIMEOUT"
	// ErrorCodeInternalError is used for internal errors
	ErrorCodeInternalError = "ERR_INTERNAL"
)

// ContextualError is an error with additional context
type ContextualError struct {
	// Original is the original error
	Original error
	// Message is the contextual message
	Message string
	// Code is the error code
	Code string
	// Fields contains additional fields for logging
	Fields map[string]interface{}
	// Stack contains the stack trace
	Stack string
}

// Error returns the error message
func (e *ContextualError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Original)
	}
	return e.Message
}

// Unwrap returns the original error
func (e *ContextualError) Unwrap() error {
	return e.Original
}

// ToFields converts the error to a map of logger fields
func (e *ContextualError) ToFields() map[string]interface{} {
	fields := make(map[string]interface{}, len(e.Fields)+3)
	fields[FieldError] = e.Error()

	if e.Code != "" {
		fields[FieldErrorCode] = e.Code
	}
	if e.Stack != "" {
		fields[FieldStackTrace] = e.Stack
	}
	for k, v := range e.Fields {
		fields[k] = v
	}

	return fields
}

// wrap builds a ContextualError around err, merging with an existing one
func wrap(err error, code, message string, extra map[string]interface{}) error {
	var contextualErr *ContextualError
	if errors.As(err, &contextualErr) {
		fields := make(map[string]interface{}, len(contextualErr.Fields)+len(extra))
		for k, v := range contextualErr.Fields {
			fields[k] = v
		}
		for k, v := range extra {
			fields[k] = v
		}
		if code == "" {
			code = contextualErr.Code
		}
		return &ContextualError{
			Original: contextualErr.Original,
			Message:  fmt.Sprintf("%s: %s", message, contextualErr.Message),
			Code:     code,
			Fields:   fields,
			Stack:    contextualErr.Stack,
		}
	}

	if code == "" {
		code = ErrorCodeUnknown
	}
	fields := make(map[string]interface{}, len(extra))
	for k, v := range extra {
		fields[k] = v
	}
	return &ContextualError{
		Original: err,
		Message:  message,
		Code:     code,
		Fields:   fields,
		Stack:    captureStack(4), // runtime.Callers, captureStack, wrap, exported wrapper
	}
}

// Wrap wraps an error with a message and returns a ContextualError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return wrap(err, "", message, nil)
}

// WrapWithCode wraps an error with a message and error code
func WrapWithCode(err error, code, message string) error {
	if err == nil {
		return nil
	}
	return wrap(err, code, message, nil)
}

// WrapWithField wraps an error with a message and additional field
func WrapWithField(err error, key string, value interface{}, message string) error {
	if err == nil {
		return nil
	}
	return wrap(err, "", message, map[string]interface{}{key: value})
}

// New creates a new error with a message
func New(message string) error {
	return &ContextualError{
		Message: message,
		Code:    ErrorCodeUnknown,
		Fields:  make(map[string]interface{}),
		Stack:   captureStack(3),
	}
}

// NewWithCode creates a new error with a message and error code
func NewWithCode(code, message string) error {
	return &ContextualError{
		Message: message,
		Code:    code,
		Fields:  make(map[string]interface{}),
		Stack:   captureStack(3),
	}
}

// GetCode returns the error code from an error
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var contextualErr *ContextualError
	if errors.As(err, &contextualErr) {
		return contextualErr.Code
	}

	return ErrorCodeUnknown
}

// GetFields returns the fields from an error
func GetFields(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	var contextualErr *ContextualError
	if errors.As(err, &contextualErr) {
		return contextualErr.ToFields()
	}

	return map[string]interface{}{
		FieldError: err.Error(),
	}
}

// captureStack captures the current stack trace
func captureStack(skip int) string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()

		// Skip runtime and testing packages
		if !strings.Contains(frame.Function, "runtime.") && !strings.Contains(frame.Function, "testing.") {
			fmt.Fprintf(&builder, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}

		if builder.Len() > 4096 {
			builder.WriteString("...\n")
			break
		}
		if !more {
			break
		}
	}

	return builder.String()
}
