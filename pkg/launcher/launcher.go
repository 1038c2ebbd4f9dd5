package launcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	pkgcontext "github.com/socialgouv/companion-launcher/pkg/context"
	"github.com/socialgouv/companion-launcher/pkg/logger"
	"github.com/socialgouv/companion-launcher/pkg/types"
)

// DefaultStartupGrace is how long Startup waits after issuing the background start
const DefaultStartupGrace = 2 * time.Second

// Host is the application whose main loop the companion lives alongside
type Host interface {
	// Run blocks until the host application exits
	Run(ctx context.Context) error
}

// HostFunc adapts a function to Host
type HostFunc func(ctx context.Context) error

// Run calls f(ctx)
func (f HostFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Resolver finds the companion layout for the running executable
type Resolver interface {
	ResolveCurrent() types.ResolvedLayout
}

// Service starts and stops the companion process
type Service interface {
	StartService(ctx context.Context, layout types.ResolvedLayout) error
	StopService()
}

// Launcher connects the host's startup and shutdown to the companion lifecycle
type Launcher struct {
	resolver Resolver
	service  Service

	autoStart    bool
	startupGrace time.Duration
	clock        clock.Clock
	logger       logger.Logger

	launchID     string
	shutdownOnce sync.Once
}

// Option configures a Launcher
type Option func(*Launcher)

// WithAutoStart controls whether Startup spawns the companion
func WithAutoStart(enabled bool) Option {
	return func(l *Launcher) {
		l.autoStart = enabled
	}
}

// WithStartupGrace sets the wait after issuing the background start
func WithStartupGrace(d time.Duration) Option {
	return func(l *Launcher) {
		l.startupGrace = d
	}
}

// WithClock sets the clock used for the startup grace period
func WithClock(c clock.Clock) Option {
	return func(l *Launcher) {
		l.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(l *Launcher) {
		l.logger = log
	}
}

// New creates a Launcher
func New(resolver Resolver, service Service, opts ...Option) *Launcher {
	l := &Launcher{
		resolver:     resolver,
		service:      service,
		autoStart:    true,
		startupGrace: DefaultStartupGrace,
		clock:        clock.RealClock{},
		logger:       logger.NewNopLogger(),
		launchID:     uuid.New().String(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logger.WithComponent(l.logger, "launcher").WithField(logger.FieldLaunchID, l.launchID)
	return l
}

// LaunchID identifies this run in logs and status output
func (l *Launcher) LaunchID() string {
	return l.launchID
}

// Startup resolves the layout and starts the companion on a background goroutine,
// then waits for the startup grace period. Spawn errors never reach the caller.
func (l *Launcher) Startup(ctx context.Context) {
	if !l.autoStart {
		l.logger.Info("Companion auto-start disabled, expecting it to be started externally")
		return
	}

	startCtx := pkgcontext.WithLaunchID(context.WithoutCancel(ctx), l.launchID)
	go func() {
		layout := l.resolver.ResolveCurrent()
		startCtx := pkgcontext.WithLayout(startCtx, &layout)
		// the service logs its own failures
		_ = l.service.StartService(startCtx, layout)
	}()

	if l.startupGrace <= 0 {
		return
	}

	l.logger.WithField("grace", l.startupGrace.String()).Debug("Waiting for companion startup grace period")
	select {
	case <-l.clock.After(l.startupGrace):
	case <-ctx.Done():
	}
}

// Shutdown stops the companion. Only the first call has any effect.
func (l *Launcher) Shutdown() {
	l.shutdownOnce.Do(func() {
		l.logger.Info("Shutting down companion")
		l.service.StopService()
	})
}

// Run performs Startup, runs the host until it returns and then always performs Shutdown
func (l *Launcher) Run(ctx context.Context, host Host) error {
	l.Startup(ctx)
	defer l.Shutdown()

	l.logger.Debug("Handing control to host")
	return host.Run(ctx)
}
