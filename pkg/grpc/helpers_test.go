package grpc

import (
	"context"

	"github.com/socialgouv/companion-launcher/pkg/supervisor"
	"github.com/socialgouv/companion-launcher/pkg/types"
)

var testLayout = types.ResolvedLayout{EntryPath: "/opt/x/server.js", WorkDir: "/opt/x"}

type spawnerFunc func() (supervisor.Handle, error)

func (f spawnerFunc) Spawn(context.Context, types.ResolvedLayout) (supervisor.Handle, error) {
	return f()
}

type stubHandle struct {
	done chan struct{}
}

func (h *stubHandle) PID() int              { return 1234 }
func (h *stubHandle) Terminate() error      { return nil }
func (h *stubHandle) Done() <-chan struct{} { return h.done }
func (h *stubHandle) ExitErr() error        { return nil }
