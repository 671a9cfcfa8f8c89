package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownType is returned by Enqueue for job types with no runner.
	ErrUnknownType = errors.New("unknown job type")
	// ErrNoCurrentJob is returned by CancelCurrent when nothing is running.
	ErrNoCurrentJob = errors.New("no job is running")
	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.New("queue is stopped")
)

// Queue runs jobs one at a time in FIFO order. State lives in memory only;
// a restart forgets everything that was queued.
type Queue struct {
	mu       sync.Mutex
	pending  []*Job
	current  *Job
	cancel   context.CancelFunc
	paused   bool
	stopped  bool
	wake     chan struct{}
	done     chan struct{}
	runners  map[Type]Runner
	notifier Notifier
	logger   zerolog.Logger
}

// NewQueue creates a queue. Runners are registered per job type before
// Start; notifier may be nil.
func NewQueue(notifier Notifier, logger zerolog.Logger) *Queue {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Queue{
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		runners:  make(map[Type]Runner),
		notifier: notifier,
		logger:   logger.With().Str("component", "jobs").Logger(),
	}
}

// Register binds a runner to a job type. Must be called before Start.
func (q *Queue) Register(t Type, r Runner) {
	q.runners[t] = r
}

// Start launches the worker goroutine. The worker exits when ctx is
// cancelled and the running job, if any, has wound down.
func (q *Queue) Start(ctx context.Context) {
	go q.work(ctx)
}

// Enqueue validates a spec and appends it to the queue.
func (q *Queue) Enqueue(spec Spec) (*Job, error) {
	if _, ok := q.runners[spec.Type]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, spec.Type)
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil, ErrStopped
	}
	job := &Job{
		ID:         uuid.New().String(),
		Spec:       spec,
		State:      StatePending,
		EnqueuedAt: time.Now(),
	}
	q.pending = append(q.pending, job)
	state := q.snapshotLocked()
	q.mu.Unlock()

	q.notifier.QueueChanged(state)
	q.poke()

	q.logger.Info().
		Str("jobId", job.ID).
		Str("type", string(spec.Type)).
		Msg("Job enqueued")

	return copyJob(job), nil
}

// CancelCurrent cancels the running job's context. Cancellation is
// cooperative; the job winds down at its next checkpoint.
func (q *Queue) CancelCurrent() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil || q.cancel == nil {
		return ErrNoCurrentJob
	}
	q.cancel()
	return nil
}

// Pause stops the worker from picking up new jobs. The running job, if any,
// continues.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	state := q.snapshotLocked()
	q.mu.Unlock()
	q.notifier.QueueChanged(state)
}

// Resume lets the worker pick up jobs again.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	state := q.snapshotLocked()
	q.mu.Unlock()
	q.notifier.QueueChanged(state)
	q.poke()
}

// GetState returns an immutable snapshot of the queue.
func (q *Queue) GetState() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Stop rejects further enqueues, cancels the running job, and waits for the
// worker to drain.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()
	q.poke()
	<-q.done
}

func (q *Queue) poke() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// snapshotLocked builds a QueueState copy. Caller holds q.mu.
func (q *Queue) snapshotLocked() QueueState {
	state := QueueState{
		Queue:  make([]Job, 0, len(q.pending)),
		Paused: q.paused,
	}
	if q.current != nil {
		state.Current = copyJob(q.current)
	}
	for _, job := range q.pending {
		state.Queue = append(state.Queue, *copyJob(job))
	}
	return state
}

func copyJob(job *Job) *Job {
	c := *job
	return &c
}

func (q *Queue) work(ctx context.Context) {
	defer close(q.done)
	for {
		job := q.next()
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				q.mu.Lock()
				stopped := q.stopped
				q.mu.Unlock()
				if stopped {
					return
				}
				continue
			}
		}
		q.run(ctx, job)
	}
}

// next pops the head of the queue if the worker may run. Returns nil when
// paused, stopped, or empty.
func (q *Queue) next() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.paused || q.stopped || len(q.pending) == 0 {
		return nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job
}

// run executes one job, recovering panics into failures so the worker
// survives any runner.
func (q *Queue) run(ctx context.Context, job *Job) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	now := time.Now()
	q.mu.Lock()
	job.State = StateRunning
	job.StartedAt = &now
	q.current = job
	q.cancel = cancel
	state := q.snapshotLocked()
	q.mu.Unlock()
	q.notifier.QueueChanged(state)

	q.logger.Info().
		Str("jobId", job.ID).
		Str("type", string(job.Spec.Type)).
		Msg("Job started")

	report := func(current, total int, phase, item string) {
		p := Progress{
			JobID:       job.ID,
			Current:     current,
			Total:       total,
			Phase:       phase,
			CurrentItem: item,
		}
		if total > 0 {
			p.Percentage = float64(current) / float64(total) * 100
		}
		q.notifier.JobProgress(p)
	}

	summary, err := q.safeRun(jobCtx, job, report)

	finished := time.Now()
	q.mu.Lock()
	job.FinishedAt = &finished
	job.Summary = summary
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		job.State = StateCancelled
	case err != nil:
		job.State = StateFailed
		job.Error = err.Error()
	default:
		job.State = StateCompleted
	}
	q.current = nil
	q.cancel = nil
	state = q.snapshotLocked()
	q.mu.Unlock()

	q.notifier.JobFinished(*copyJob(job))
	q.notifier.QueueChanged(state)

	event := q.logger.Info()
	if job.State == StateFailed {
		event = q.logger.Error().Str("error", job.Error)
	}
	event.
		Str("jobId", job.ID).
		Str("type", string(job.Spec.Type)).
		Str("state", string(job.State)).
		Dur("duration", finished.Sub(*job.StartedAt)).
		Msg("Job finished")
}

func (q *Queue) safeRun(ctx context.Context, job *Job, report ReportFunc) (summary string, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Str("jobId", job.ID).
				Msg("Job panicked")
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	runner := q.runners[job.Spec.Type]
	return runner.Run(ctx, job, report)
}
