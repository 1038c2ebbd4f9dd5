//go:build windows

package supervisor

import "os"

// terminateProcess kills the process; os.Process cannot deliver SIGTERM on Windows.
func terminateProcess(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return p.Kill()
}

const terminationSignal = "KILL"
