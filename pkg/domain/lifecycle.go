package domain

// Phase is the lifecycle position of a ViewModel.
type Phase string

const (
	PhaseNotStarted   Phase = "not_started"
	PhaseRunning      Phase = "running"
	PhaseShuttingDown Phase = "shutting_down" // Subsystems close one by one
	PhaseCleared      Phase = "cleared"       // Terminal
)

// Subsystem names a part of the ViewModel that can be closed independently during shutdown.
type Subsystem string

const (
	SubsystemStateChange         Subsystem = "state changes"
	SubsystemMainQueue           Subsystem = "main input queue"
	SubsystemEvents              Subsystem = "events"
	SubsystemSideJobs            Subsystem = "side-jobs"
	SubsystemSideJobCancellation Subsystem = "side-job cancellation"
)

// RestartState tells a side-job whether it is the first instance at its key.
type RestartState int

const (
	// Initial: no job was running at this key when it was started.
	Initial RestartState = iota
	// Restarted: a previous job at this key was cancelled to make room for this one.
	Restarted
)

func (r RestartState) String() string {
	if r == Restarted {
		return "restarted"
	}
	return "initial"
}

// FilterResult is the verdict of an InputFilter.
type FilterResult int

const (
	Accept FilterResult = iota
	Reject
)

// SendResult is the immediate outcome of a non-blocking send.
type SendResult int

const (
	// SendAccepted: the Input was placed on the queue.
	SendAccepted SendResult = iota
	// SendRejected: the queue was full and the Input was not enqueued.
	SendRejected
	// SendClosed: the ViewModel is not accepting Inputs.
	SendClosed
)

func (r SendResult) String() string {
	switch r {
	case SendAccepted:
		return "accepted"
	case SendRejected:
		return "rejected"
	case SendClosed:
		return "closed"
	}
	return "unknown"
}
