package supervisor

import (
	"time"

	"k8s.io/utils/clock"
	utilexec "k8s.io/utils/exec"

	"github.com/socialgouv/companion-launcher/pkg/logger"
)

// Option configures a Supervisor
type Option func(*Supervisor)

// WithSpawner replaces the default exec-based spawner
func WithSpawner(spawner Spawner) Option {
	return func(s *Supervisor) {
		s.spawner = spawner
	}
}

// WithInterpreter sets the interpreter used by the default spawner
func WithInterpreter(name string) Option {
	return func(s *Supervisor) {
		s.interpreter = name
	}
}

// WithOutputMode sets how the default spawner wires the companion's stdout and stderr
func WithOutputMode(mode string) Option {
	return func(s *Supervisor) {
		s.outputMode = mode
	}
}

// WithExec sets the exec interface the default spawner uses for search-path lookups
func WithExec(execer utilexec.Interface) Option {
	return func(s *Supervisor) {
		s.exec = execer
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(m *Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// WithStopTimeout makes StopService wait up to timeout for the process to exit.
// Zero disables waiting.
func WithStopTimeout(timeout time.Duration) Option {
	return func(s *Supervisor) {
		s.stopTimeout = timeout
	}
}

// WithClock sets the clock used for start timestamps
func WithClock(c clock.PassiveClock) Option {
	return func(s *Supervisor) {
		s.clock = c
	}
}

// WithStateChangeCallback registers fn to be called after every state change.
// Callbacks run outside the slot lock, one at a time, with the latest state.
func WithStateChangeCallback(fn func(State)) Option {
	return func(s *Supervisor) {
		s.onStateChange = append(s.onStateChange, fn)
	}
}
