package supervisor

import (
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/socialgouv/companion-launcher/pkg/errors"
	"github.com/socialgouv/companion-launcher/pkg/types"
)

var (
	// ErrAlreadyStarted is returned when a start is requested outside the NotStarted state
	ErrAlreadyStarted = pkgerrors.NewWithCode(pkgerrors.ErrorCodeAlreadyStarted, "companion already started for this run")

	// ErrSlotClosed is returned when a spawn completes after shutdown took the slot
	ErrSlotClosed = errors.New("process slot closed")
)

// launchInfo describes the process currently held in the slot
type launchInfo struct {
	launchID  string
	layout    types.ResolvedLayout
	startedAt time.Time
}

// slot holds at most one process handle together with the lifecycle state.
// The mutex is only held to read or update these fields, never across a
// spawn or a signal.
type slot struct {
	mu     sync.Mutex
	state  State
	handle Handle
	info   launchInfo
}

// begin moves NotStarted to Starting
func (s *slot) begin() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return s.state, ErrAlreadyStarted
	}
	s.state = StateStarting
	return s.state, nil
}

// abort returns to NotStarted after a failed spawn unless shutdown already closed the slot
func (s *slot) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStarting {
		s.state = StateNotStarted
	}
}

// store places h in the slot. It fails if shutdown closed the slot while the spawn was in flight.
func (s *slot) store(h Handle, info launchInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return ErrSlotClosed
	}
	s.handle = h
	s.info = info
	s.state = StateRunning
	return nil
}

// take empties the slot and reports whether the state changed.
// With nothing started it is a no-op; an in-flight spawn closes the slot.
func (s *slot) take() (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStarting, StateRunning:
		h := s.handle
		s.handle = nil
		s.state = StateStopped
		return h, true
	default:
		return nil, false
	}
}

func (s *slot) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// snapshot returns the state together with the held handle, if any
func (s *slot) snapshot() (State, Handle, launchInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.handle, s.info
}
