package supervisor

import (
	"context"
	"errors"
	"os"
	"os/exec"

	utilexec "k8s.io/utils/exec"

	pkgerrors "github.com/socialgouv/companion-launcher/pkg/errors"
	"github.com/socialgouv/companion-launcher/pkg/logger"
	"github.com/socialgouv/companion-launcher/pkg/types"
)

const (
	// DefaultInterpreter is the program used to run the companion entry point
	DefaultInterpreter = "node"

	interpreterHint = "install Node.js and make sure `node` is on the PATH"
)

// Output modes for the companion's standard streams
const (
	OutputInherit = "inherit"
	OutputLog     = "log"
)

// Spawner starts a companion process for a resolved layout
type Spawner interface {
	Spawn(ctx context.Context, layout types.ResolvedLayout) (Handle, error)
}

// ExecSpawner starts the companion as `<interpreter> <entry>` in the resolved working directory.
// The child inherits the environment and, by default, stdout and stderr.
type ExecSpawner struct {
	interpreter string
	outputMode  string
	exec        utilexec.Interface
	logger      logger.Logger
}

// NewExecSpawner creates a spawner. A nil execer uses the OS search path.
func NewExecSpawner(interpreter, outputMode string, execer utilexec.Interface, l logger.Logger) *ExecSpawner {
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	if outputMode == "" {
		outputMode = OutputInherit
	}
	if execer == nil {
		execer = utilexec.New()
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &ExecSpawner{
		interpreter: interpreter,
		outputMode:  outputMode,
		exec:        execer,
		logger:      l,
	}
}

// Spawn starts the process and returns as soon as it is running.
// The context only carries log fields; cancelling it does not affect the child.
func (s *ExecSpawner) Spawn(ctx context.Context, layout types.ResolvedLayout) (Handle, error) {
	spawnLogger := logger.LoggerFromContext(ctx, s.logger).WithField(logger.FieldInterpreter, s.interpreter)

	path, err := s.exec.LookPath(s.interpreter)
	if err != nil {
		return nil, pkgerrors.WrapWithField(
			pkgerrors.WrapWithCode(err, pkgerrors.ErrorCodeInterpreterNotFound, "interpreter not found"),
			"hint", interpreterHint, "failed to spawn companion")
	}

	cmd := exec.Command(path, layout.EntryPath)
	cmd.Dir = layout.WorkDir

	var writers []*logWriter
	switch s.outputMode {
	case OutputLog:
		stdout := newLogWriter(spawnLogger, streamStdout)
		stderr := newLogWriter(spawnLogger, streamStderr)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		writers = append(writers, stdout, stderr)
	default:
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		code := pkgerrors.ErrorCodeSpawnFailed
		if errors.Is(err, exec.ErrNotFound) {
			code = pkgerrors.ErrorCodeInterpreterNotFound
		}
		return nil, pkgerrors.WrapWithField(
			pkgerrors.WrapWithCode(err, code, "failed to start process"),
			"hint", interpreterHint, "failed to spawn companion")
	}

	h := newProcessHandle(cmd)
	exitLogger := spawnLogger.WithField(logger.FieldPID, h.PID())
	go h.reap(func(err error) {
		for _, w := range writers {
			w.Flush()
		}
		if err != nil {
			logger.WithError(exitLogger, err).Info("Companion process exited")
			return
		}
		exitLogger.Info("Companion process exited")
	})

	return h, nil
}
