package viewmodel

import (
	"fmt"
	"sync"

	"github.com/aretw0/spindle/pkg/domain"
)

// lifecycle tracks the ViewModel phase and, while shutting down, which subsystems
// still accept work. Every mutating operation checks its gate first.
type lifecycle struct {
	mu     sync.Mutex
	phase  domain.Phase
	closed map[domain.Subsystem]bool
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		phase:  domain.PhaseNotStarted,
		closed: make(map[domain.Subsystem]bool),
	}
}

func (l *lifecycle) Phase() domain.Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

func (l *lifecycle) start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase != domain.PhaseNotStarted {
		return fmt.Errorf("viewmodel cannot start: already %s", l.phase)
	}
	l.phase = domain.PhaseRunning
	return nil
}

// beginShutdown moves Running to ShuttingDown. It reports false when the ViewModel
// is not running (never started, already shutting down, or cleared).
func (l *lifecycle) beginShutdown() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase != domain.PhaseRunning {
		return false
	}
	l.phase = domain.PhaseShuttingDown
	return true
}

func (l *lifecycle) closeSubsystem(s domain.Subsystem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed[s] = true
}

func (l *lifecycle) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phase = domain.PhaseCleared
}

func (l *lifecycle) check(s domain.Subsystem, op string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.phase {
	case domain.PhaseRunning:
		return nil
	case domain.PhaseShuttingDown:
		if !l.closed[s] {
			return nil
		}
	}
	return &domain.GateError{Phase: l.phase, Subsystem: s, Op: op}
}

func (l *lifecycle) checkStateChangeOpen(op string) error {
	return l.check(domain.SubsystemStateChange, op)
}

func (l *lifecycle) checkMainQueueOpen(op string) error {
	return l.check(domain.SubsystemMainQueue, op)
}

func (l *lifecycle) checkEventsOpen(op string) error {
	return l.check(domain.SubsystemEvents, op)
}

func (l *lifecycle) checkSideJobsOpen(op string) error {
	return l.check(domain.SubsystemSideJobs, op)
}

func (l *lifecycle) checkSideJobCancellationOpen(op string) error {
	return l.check(domain.SubsystemSideJobCancellation, op)
}
