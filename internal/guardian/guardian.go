// Package guardian enforces the call-order discipline of a single Input handler invocation.
//
// A Guardian is owned by exactly one HandlerScope. A stale scope reference may still be
// used from another goroutine after the Input finished, so the flags are mutex guarded.
package guardian

import (
	"sync"

	"github.com/aretw0/spindle/pkg/domain"
)

// Guardian tracks what a handler has done so far.
type Guardian struct {
	mu sync.Mutex

	stateAccessed  bool
	sideJobsPosted bool
	usedProperly   bool
	closed         bool

	violation error
}

// New creates a Guardian for one handler invocation.
func New() *Guardian {
	return &Guardian{}
}

// CheckStateAccess is called before reading the state.
func (g *Guardian) CheckStateAccess() error {
	return g.checkState("CurrentState")
}

// CheckStateUpdate is called before replacing the state.
func (g *Guardian) CheckStateUpdate() error {
	return g.checkState("UpdateState")
}

// CheckPostEvent is called before posting an event.
func (g *Guardian) CheckPostEvent() error {
	return g.checkEvent("PostEvent")
}

// CheckNoOp is called when the handler explicitly declares it did nothing.
func (g *Guardian) CheckNoOp() error {
	return g.checkEvent("NoOp")
}

// CheckSideJob is called before registering a side-job. Several side-jobs may be
// registered in a row; only state and event operations are forbidden afterwards.
func (g *Guardian) CheckSideJob() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return g.fail(domain.UsageScopeClosed, "SideJob")
	}
	g.sideJobsPosted = true
	g.usedProperly = true
	return nil
}

// Close marks the invocation finished. It fails if the guardian was already closed,
// if an earlier check failed, or if the handler did nothing observable.
func (g *Guardian) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return &domain.UsageError{Code: domain.UsageAlreadyClosed, Op: "Close"}
	}
	g.closed = true

	if g.violation != nil {
		return g.violation
	}
	if !g.usedProperly {
		return &domain.UsageError{Code: domain.UsageNotHandled, Op: "Close"}
	}
	return nil
}

// Closed reports whether Close has been called.
func (g *Guardian) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// StateAccessed reports whether the handler read or wrote the state.
func (g *Guardian) StateAccessed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateAccessed
}

// SideJobsPosted reports whether at least one side-job was registered.
func (g *Guardian) SideJobsPosted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sideJobsPosted
}

// Violation returns the first failed check, if any.
func (g *Guardian) Violation() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.violation
}

func (g *Guardian) checkState(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return g.fail(domain.UsageScopeClosed, op)
	}
	if g.sideJobsPosted {
		return g.fail(domain.UsageStateAfterSideJob, op)
	}
	g.stateAccessed = true
	g.usedProperly = true
	return nil
}

func (g *Guardian) checkEvent(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return g.fail(domain.UsageScopeClosed, op)
	}
	if g.sideJobsPosted {
		return g.fail(domain.UsageEventAfterSideJob, op)
	}
	g.usedProperly = true
	return nil
}

// fail must be called with mu held.
func (g *Guardian) fail(code domain.UsageCode, op string) error {
	err := &domain.UsageError{Code: code, Op: op}
	if g.violation == nil && !g.closed {
		g.violation = err
	}
	return err
}
