package logger

import (
	"context"

	pkgcontext "github.com/socialgouv/companion-launcher/pkg/context"
)

// LoggerFromContext creates a logger with context information
func LoggerFromContext(ctx context.Context, baseLogger Logger) Logger {
	if ctx == nil {
		return baseLogger
	}

	if launchID := pkgcontext.GetLaunchID(ctx); launchID != "" {
		baseLogger = baseLogger.WithField(FieldLaunchID, launchID)
	}

	if layout := pkgcontext.GetLayout(ctx); layout != nil {
		baseLogger = WithLayout(baseLogger, layout)
	}

	return baseLogger
}
