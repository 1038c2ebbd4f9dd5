package supervisor

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"
	utilexec "k8s.io/utils/exec"

	pkgcontext "github.com/socialgouv/companion-launcher/pkg/context"
	pkgerrors "github.com/socialgouv/companion-launcher/pkg/errors"
	"github.com/socialgouv/companion-launcher/pkg/logger"
	"github.com/socialgouv/companion-launcher/pkg/types"
)

// Supervisor owns the single companion process of a launcher run.
// It starts it at most once, never restarts it and terminates it on StopService.
type Supervisor struct {
	slot slot

	spawner     Spawner
	interpreter string
	outputMode  string
	exec        utilexec.Interface

	logger        logger.Logger
	metrics       *Metrics
	clock         clock.PassiveClock
	stopTimeout   time.Duration
	onStateChange []func(State)

	// notifyMu serializes state change callbacks
	notifyMu sync.Mutex
}

// Status is a point-in-time view of the supervisor
type Status struct {
	State     string     `json:"state"`
	PID       int        `json:"pid,omitempty"`
	LaunchID  string     `json:"launchId,omitempty"`
	EntryPath string     `json:"entryPath,omitempty"`
	WorkDir   string     `json:"workDir,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	Exited    bool       `json:"exited"`
	ExitError string     `json:"exitError,omitempty"`
}

// New creates a Supervisor in the NotStarted state
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		interpreter: DefaultInterpreter,
		outputMode:  OutputInherit,
		logger:      logger.NewNopLogger(),
		clock:       clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = logger.WithComponent(s.logger, "supervisor")
	if s.spawner == nil {
		s.spawner = NewExecSpawner(s.interpreter, s.outputMode, s.exec, s.logger)
	}
	s.metrics.recordState(StateNotStarted)

	return s
}

// State returns the current lifecycle state
func (s *Supervisor) State() State {
	return s.slot.current()
}

// StartService spawns the companion for layout and stores its handle.
// It returns ErrAlreadyStarted without spawning unless the state is NotStarted.
// On failure nothing is stored and the state returns to NotStarted.
func (s *Supervisor) StartService(ctx context.Context, layout types.ResolvedLayout) error {
	startLogger := logger.WithLayout(logger.LoggerFromContext(ctx, s.logger), &layout)
	startLogger = logger.WithOperation(startLogger, "start")

	if state, err := s.slot.begin(); err != nil {
		startLogger.WithField(logger.FieldState, state.String()).Debug("Companion start ignored")
		return err
	}
	s.notifyStateChange()

	startLogger.WithFields(map[string]interface{}{
		logger.FieldEntryPath: layout.EntryPath,
		logger.FieldWorkDir:   layout.WorkDir,
	}).Info("Starting companion process")

	h, err := s.spawner.Spawn(ctx, layout)
	s.metrics.recordSpawn(err)
	if err != nil {
		s.slot.abort()
		s.notifyStateChange()
		startLogger.WithFields(pkgerrors.GetFields(err)).Error("Failed to start companion process")
		return err
	}

	info := launchInfo{
		launchID:  pkgcontext.GetLaunchID(ctx),
		layout:    layout,
		startedAt: s.clock.Now(),
	}
	pidLogger := startLogger.WithField(logger.FieldPID, h.PID())

	if err := s.slot.store(h, info); err != nil {
		// Shutdown won the race; the process is ours to end
		pidLogger.Warn("Shutdown happened while the companion was starting, terminating it")
		s.terminate(pidLogger, h)
		return err
	}
	s.notifyStateChange()

	pidLogger.Info("Companion process started")
	return nil
}

// StartServiceAsync runs StartService on a new goroutine. The outcome is only
// observable through State, Status and the logs.
func (s *Supervisor) StartServiceAsync(ctx context.Context, layout types.ResolvedLayout) {
	go func() {
		_ = s.StartService(ctx, layout)
	}()
}

// StopService takes the handle out of the slot and asks the process to exit.
// Without a handle it does nothing. It is safe to call more than once.
func (s *Supervisor) StopService() {
	stopLogger := logger.WithOperation(s.logger, "stop")

	h, changed := s.slot.take()
	if changed {
		s.notifyStateChange()
	}
	if h == nil {
		stopLogger.Debug("No companion process to stop")
		return
	}

	stopLogger = stopLogger.WithField(logger.FieldPID, h.PID())
	stopLogger.WithField(logger.FieldSignal, terminationSignal).Info("Stopping companion process")
	s.terminate(stopLogger, h)

	if s.stopTimeout > 0 {
		if err := waitForExit(h, s.stopTimeout); err != nil {
			err = pkgerrors.WrapWithField(
				pkgerrors.WrapWithCode(err, pkgerrors.ErrorCodeTimeout, "companion still running"),
				"timeout", s.stopTimeout.String(), "stop")
			stopLogger.WithFields(pkgerrors.GetFields(err)).Warn("Companion process did not exit within stop timeout")
			return
		}
		stopLogger.Info("Companion process exited")
	}
}

// terminate sends the termination request. Failures are logged and otherwise ignored.
func (s *Supervisor) terminate(l logger.Logger, h Handle) {
	s.metrics.recordStop()
	if err := h.Terminate(); err != nil {
		err = pkgerrors.WrapWithCode(err, pkgerrors.ErrorCodeSignalFailed, "termination signal not delivered")
		l.WithFields(pkgerrors.GetFields(err)).Debug("Termination signal not delivered")
	}
}

// Status returns a snapshot of the supervisor
func (s *Supervisor) Status() Status {
	state, h, info := s.slot.snapshot()

	st := Status{
		State:     state.String(),
		LaunchID:  info.launchID,
		EntryPath: info.layout.EntryPath,
		WorkDir:   info.layout.WorkDir,
	}
	if !info.startedAt.IsZero() {
		startedAt := info.startedAt
		st.StartedAt = &startedAt
	}
	if h != nil {
		st.PID = h.PID()
		st.Exited = exited(h)
		if st.Exited {
			if err := h.ExitErr(); err != nil {
				st.ExitError = err.Error()
			}
		}
	}

	return st
}

// notifyStateChange reports the current state to metrics and callbacks
func (s *Supervisor) notifyStateChange() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	state := s.slot.current()
	s.metrics.recordState(state)
	s.logger.WithField(logger.FieldState, state.String()).Debug("Supervisor state changed")
	for _, fn := range s.onStateChange {
		fn(state)
	}
}
