package viewmodel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/spindle/pkg/domain"
)

// RunningSideJob is one started instance of a side-job.
type RunningSideJob struct {
	ID           uint64
	Key          string
	RestartState domain.RestartState

	ctx    context.Context
	cancel context.CancelFunc

	stopping chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	grace    atomic.Int64
}

// stop asks the job to finish: Stopping closes now, the context is cancelled once
// the job's grace period has passed.
func (j *RunningSideJob) stop() {
	j.stopOnce.Do(func() {
		close(j.stopping)
		d := time.Duration(j.grace.Load())
		if d <= 0 {
			j.cancel()
			return
		}
		t := time.AfterFunc(d, j.cancel)
		go func() {
			<-j.done
			t.Stop()
		}()
	})
}

func (j *RunningSideJob) finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// SideJobList holds every job ever started under one key that has not been pruned.
// At most one of them is active: starting a new job stops all the others first.
type SideJobList struct {
	key    string
	nextID uint64
	jobs   []*RunningSideJob
}

func newSideJobList(key string) *SideJobList {
	return &SideJobList{key: key}
}

// addNewRunningJob stops whatever is still running for the key and registers a new
// job whose context derives from parent.
func (l *SideJobList) addNewRunningJob(parent context.Context, grace time.Duration) *RunningSideJob {
	restart := domain.Initial
	kept := l.jobs[:0]
	for _, j := range l.jobs {
		if j.finished() {
			continue
		}
		restart = domain.Restarted
		j.stop()
		kept = append(kept, j)
	}
	l.jobs = kept

	l.nextID++
	ctx, cancel := context.WithCancel(parent)
	job := &RunningSideJob{
		ID:           l.nextID,
		Key:          l.key,
		RestartState: restart,
		ctx:          ctx,
		cancel:       cancel,
		stopping:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	job.grace.Store(int64(grace))
	l.jobs = append(l.jobs, job)
	return job
}

func (l *SideJobList) removeCompletedJob(id uint64) {
	for i, j := range l.jobs {
		if j.ID == id {
			j.cancel()
			l.jobs = append(l.jobs[:i], l.jobs[i+1:]...)
			return
		}
	}
}

func (l *SideJobList) cancelSideJobs() {
	for _, j := range l.jobs {
		j.stop()
	}
}

func (l *SideJobList) active() int {
	n := 0
	for _, j := range l.jobs {
		if !j.finished() {
			select {
			case <-j.stopping:
			default:
				n++
			}
		}
	}
	return n
}

// supervisor owns every SideJobList. One mutex serializes all registry changes,
// whichever InputStrategy feeds it, so concurrent Inputs registering the same key
// still leave exactly one active job.
type supervisor[I, E, S any] struct {
	vm *ViewModel[I, E, S]

	mu     sync.Mutex
	lists  map[string]*SideJobList
	closed bool
	wg     sync.WaitGroup
}

func newSupervisor[I, E, S any](vm *ViewModel[I, E, S]) *supervisor[I, E, S] {
	return &supervisor[I, E, S]{
		vm:    vm,
		lists: make(map[string]*SideJobList),
	}
}

// start materializes the requests of one handler invocation, in registration order.
func (sv *supervisor[I, E, S]) start(ctx context.Context, requests []SideJobRequest[I, E, S]) {
	if len(requests) == 0 {
		return
	}
	if err := sv.vm.life.checkSideJobsOpen("SideJob"); err != nil {
		sv.vm.notify.unhandled(ctx, err)
		return
	}

	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.closed {
		return
	}
	for _, req := range requests {
		list, ok := sv.lists[req.Key]
		if !ok {
			list = newSideJobList(req.Key)
			sv.lists[req.Key] = list
		}
		job := list.addNewRunningJob(sv.vm.ctx, sv.vm.grace)
		sv.wg.Add(1)
		go sv.run(job, req.Fn)
	}
}

func (sv *supervisor[I, E, S]) run(job *RunningSideJob, fn SideJobFunc[I, E, S]) {
	defer sv.wg.Done()
	defer func() {
		close(job.done)
		sv.mu.Lock()
		if list, ok := sv.lists[job.Key]; ok {
			list.removeCompletedJob(job.ID)
		}
		sv.mu.Unlock()
	}()

	hookCtx := sv.vm.baseContext()
	sv.vm.notify.sideJobStarted(hookCtx, job.Key, job.RestartState)

	scope := &SideJobScope[I, E, S]{vm: sv.vm, job: job}
	err := sv.invoke(job, fn, scope)

	switch {
	case err == nil:
		sv.vm.notify.sideJobCompleted(hookCtx, job.Key, job.RestartState)
	case job.ctx.Err() != nil && !panicked(err):
		sv.vm.notify.sideJobCancelled(hookCtx, job.Key, job.RestartState)
	default:
		sv.vm.logger.Warn("Side-job failed", "key", job.Key, "err", err)
		sv.vm.notify.sideJobFailed(hookCtx, job.Key, job.RestartState, err)
	}
}

func (sv *supervisor[I, E, S]) invoke(job *RunningSideJob, fn SideJobFunc[I, E, S], scope *SideJobScope[I, E, S]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewPanicError(r)
		}
	}()
	return fn(job.ctx, scope)
}

// panicked reports whether err is a recovered panic. A job whose context is done
// when it returns counts as cancelled unless it panicked.
func panicked(err error) bool {
	var he *domain.HandlerError
	return errors.As(err, &he) && he.Panic != nil
}

// stopAll asks every running job to stop, honouring grace periods.
func (sv *supervisor[I, E, S]) stopAll() {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.closed = true
	for _, list := range sv.lists {
		list.cancelSideJobs()
	}
}

// cancelAll cancels every running job immediately.
func (sv *supervisor[I, E, S]) cancelAll() {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.closed = true
	for _, list := range sv.lists {
		for _, j := range list.jobs {
			j.cancel()
		}
	}
}

// wait blocks until every job returned or ctx is done.
func (sv *supervisor[I, E, S]) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		sv.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// activeCount returns the number of jobs running for key and not asked to stop.
func (sv *supervisor[I, E, S]) activeCount(key string) int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	list, ok := sv.lists[key]
	if !ok {
		return 0
	}
	return list.active()
}

// SideJobScope is handed to a running side-job.
type SideJobScope[I, E, S any] struct {
	vm  *ViewModel[I, E, S]
	job *RunningSideJob
}

// Key returns the key the job was registered under.
func (s *SideJobScope[I, E, S]) Key() string { return s.job.Key }

// RestartState reports whether an earlier job with the same key was still running
// when this one started.
func (s *SideJobScope[I, E, S]) RestartState() domain.RestartState { return s.job.RestartState }

// Context is cancelled when the job is superseded (after its grace period) or the
// ViewModel is torn down.
func (s *SideJobScope[I, E, S]) Context() context.Context { return s.job.ctx }

// Stopping is closed as soon as the job is asked to stop, before Context is cancelled.
func (s *SideJobScope[I, E, S]) Stopping() <-chan struct{} { return s.job.stopping }

// SetGracePeriod sets how long the job may keep running after Stopping closes.
func (s *SideJobScope[I, E, S]) SetGracePeriod(d time.Duration) {
	s.job.grace.Store(int64(d))
}

// CurrentState returns the latest State. Side-jobs are not bound by the Guardian.
func (s *SideJobScope[I, E, S]) CurrentState() S {
	return s.vm.state.Value()
}

// PostInput sends an Input to the ViewModel, waiting for queue acceptance.
func (s *SideJobScope[I, E, S]) PostInput(ctx context.Context, input I) error {
	return s.vm.Send(ctx, input)
}

// PostEvent queues an Event, blocking while the event buffer is full.
func (s *SideJobScope[I, E, S]) PostEvent(ctx context.Context, event E) error {
	return s.vm.emitEvent(ctx, event)
}

// Logger returns the ViewModel logger with the job key attached.
func (s *SideJobScope[I, E, S]) Logger() *slog.Logger {
	return s.vm.logger.With("key", s.job.Key)
}
