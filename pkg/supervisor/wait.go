package supervisor

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

const exitPollInterval = 50 * time.Millisecond

// waitForExit polls until h exits or timeout elapses. It never escalates.
func waitForExit(h Handle, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(context.Background(), exitPollInterval, timeout, true,
		func(context.Context) (bool, error) {
			return exited(h), nil
		})
}
