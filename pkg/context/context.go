package context

import (
	"context"

	"github.com/socialgouv/companion-launcher/pkg/types"
)

type contextKey string

const (
	// layoutKey is the key for the resolved layout in the context
	layoutKey contextKey = "resolved-layout"
	// launchIDKey is the key for the launch ID in the context
	launchIDKey contextKey = "launch-id"
)

// WithLayout adds the resolved layout to the context
func WithLayout(ctx context.Context, layout *types.ResolvedLayout) context.Context {
	if layout == nil {
		return ctx
	}
	return context.WithValue(ctx, layoutKey, layout)
}

// GetLayout retrieves the resolved layout from the context
func GetLayout(ctx context.Context) *types.ResolvedLayout {
	if ctx == nil {
		return nil
	}
	layout, ok := ctx.Value(layoutKey).(*types.ResolvedLayout)
	if !ok {
		return nil
	}
	return layout
}

// WithLaunchID adds a launch ID to the context
func WithLaunchID(ctx context.Context, launchID string) context.Context {
	if launchID == "" {
		return ctx
	}
	return context.WithValue(ctx, launchIDKey, launchID)
}

// GetLaunchID retrieves the launch ID from the context
func GetLaunchID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	launchID, ok := ctx.Value(launchIDKey).(string)
	if !ok {
		return ""
	}
	return launchID
}
