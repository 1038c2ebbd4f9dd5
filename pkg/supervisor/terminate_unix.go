//go:build unix

package supervisor

import (
	"os"
	"syscall"
)

// terminateProcess sends SIGTERM. There is no fallback to SIGKILL.
func terminateProcess(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return p.Signal(syscall.SIGTERM)
}

// terminationSignal names the signal used for logging
const terminationSignal = "SIGTERM"
