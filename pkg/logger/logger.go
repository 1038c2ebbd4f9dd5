package logger

// Logger is the interface that wraps the basic logging methods
type Logger interface {
	// Debug logs a message at level Debug
	Debug(args ...interface{})
	// Debugf logs a formatted message at level Debug
	Debugf(format string, args ...interface{})
	// Info logs a message at level Info
	Info(args ...interface{})
	// Infof logs a formatted message at level Info
	Infof(format string, args ...interface{})
	// Warn logs a message at level Warn
	Warn(args ...interface{})
	// Warnf logs a formatted message at level Warn
	Warnf(format string, args ...interface{})
	// Error logs a message at level Error
	Error(args ...interface{})
	// Errorf logs a formatted message at level Error
	Errorf(format string, args ...interface{})
	// Fatal logs a message at level Fatal then the process will exit with status set to 1
	Fatal(args ...interface{})
	// Fatalf logs a formatted message at level Fatal then the process will exit with status set to 1
	Fatalf(format string, args ...interface{})
	// WithField adds a field to the logger
	WithField(key string, value interface{}) Logger
	// WithFields adds multiple fields to the logger
	WithFields(fields map[string]interface{}) Logger
}

// nopLogger discards everything
type nopLogger struct{}

// NewNopLogger returns a Logger that discards all output
func NewNopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(args ...interface{})                 {}
func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Info(args ...interface{})                  {}
func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Warn(args ...interface{})                  {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Error(args ...interface{})                 {}
func (nopLogger) Errorf(format string, args ...interface{}) {}
func (nopLogger) Fatal(args ...interface{})                 {}
func (nopLogger) Fatalf(format string, args ...interface{}) {}

func (n nopLogger) WithField(key string, value interface{}) Logger  { return n }
func (n nopLogger) WithFields(fields map[string]interface{}) Logger { return n }
