package supervisor

import (
	"os/exec"
	"sync"
)

// Handle is the OS-level ownership of a spawned companion
type Handle interface {
	// PID returns the process ID
	PID() int
	// Terminate asks the process to exit. It does not wait.
	Terminate() error
	// Done is closed once the process has exited
	Done() <-chan struct{}
	// ExitErr returns the result of waiting on the process once Done is closed
	ExitErr() error
}

// processHandle wraps a started exec.Cmd. A reaper goroutine waits on it so
// exit is observed and the process is not left as a zombie.
type processHandle struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu      sync.RWMutex
	exitErr error
}

func newProcessHandle(cmd *exec.Cmd) *processHandle {
	return &processHandle{
		cmd:  cmd,
		done: make(chan struct{}),
	}
}

func (h *processHandle) PID() int {
	if h.cmd.Process == nil {
		return -1
	}
	return h.cmd.Process.Pid
}

func (h *processHandle) Terminate() error {
	return terminateProcess(h.cmd.Process)
}

func (h *processHandle) Done() <-chan struct{} {
	return h.done
}

func (h *processHandle) ExitErr() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exitErr
}

// reap waits for the process to exit, runs onExit and then closes Done
func (h *processHandle) reap(onExit func(error)) {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.exitErr = err
	h.mu.Unlock()

	if onExit != nil {
		onExit(err)
	}
	close(h.done)
}

// exited reports whether h has exited without blocking
func exited(h Handle) bool {
	select {
	case <-h.Done():
		return true
	default:
		return false
	}
}
