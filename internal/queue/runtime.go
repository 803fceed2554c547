package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownJob    = errors.New("unknown job kind")
	ErrUnknownQueue  = errors.New("unknown queue")
	ErrDuplicateJob  = errors.New("duplicate job")
	ErrQueueStopped  = errors.New("queue stopped")
	ErrJobTimeout    = errors.New("job timed out")
	ErrDuplicateKind = errors.New("job kind already registered")
)

const failedHookTimeout = 30 * time.Second

// Recorder observes job execution.
type Recorder interface {
	JobStarted(queue, kind string)
	JobFinished(queue, kind, outcome string, elapsed time.Duration)
	JobRetried(queue, kind string)
}

// Job outcomes reported to the Recorder.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeRetried     = "retried"
	OutcomeExhausted   = "exhausted"
	OutcomeInterrupted = "interrupted"
)

type nopRecorder struct{}

func (nopRecorder) JobStarted(string, string)                        {}
func (nopRecorder) JobFinished(string, string, string, time.Duration) {}
func (nopRecorder) JobRetried(string, string)                        {}

type registration struct {
	handler Handler
	policy  Policy
}

type pool struct {
	name    string
	workers int
	jobs    chan *Job
}

type delayed struct {
	job   *Job
	timer *time.Timer
}

// Runtime runs registered handlers on named worker pools.
type Runtime struct {
	logger   *zap.Logger
	locker   Locker
	recorder Recorder

	pools    map[string]*pool
	handlers map[string]registration

	mu      sync.Mutex
	wg      sync.WaitGroup
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stopped bool
	retries map[*delayed]struct{}
}

// NewRuntime creates pools for every queue in workers, each buffering up to buffer jobs.
func NewRuntime(workers map[string]int, buffer int, locker Locker, recorder Recorder, logger *zap.Logger) *Runtime {
	if buffer <= 0 {
		buffer = 1
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	r := &Runtime{
		logger:   logger,
		locker:   locker,
		recorder: recorder,
		pools:    make(map[string]*pool, len(workers)),
		handlers: make(map[string]registration),
		done:     make(chan struct{}),
		retries:  make(map[*delayed]struct{}),
	}
	for name, n := range workers {
		if n <= 0 {
			n = 1
		}
		r.pools[name] = &pool{name: name, workers: n, jobs: make(chan *Job, buffer)}
	}
	return r
}

// Register binds a handler and its policy to a job kind.
func (r *Runtime) Register(kind string, h Handler, p Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	if p.Queue == "" {
		p.Queue = Default
	}
	if _, ok := r.pools[p.Queue]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQueue, p.Queue)
	}
	if p.Tries <= 0 {
		p.Tries = 1
	}
	if p.Backoff == nil {
		p.Backoff = Fixed(0)
	}
	r.handlers[kind] = registration{handler: h, policy: p}
	return nil
}

// Dispatch serializes payload and enqueues a job of kind. It blocks while the
// queue buffer is full.
func (r *Runtime) Dispatch(ctx context.Context, kind string, payload any, opts ...DispatchOption) (string, error) {
	r.mu.Lock()
	reg, ok := r.handlers[kind]
	stopped := r.stopped
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, kind)
	}
	if stopped {
		return "", ErrQueueStopped
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", kind, err)
	}

	job := &Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Queue:      reg.policy.Queue,
		Payload:    data,
		Attempt:    1,
		EnqueuedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(job)
	}

	if job.UniqueID != "" {
		ttl := reg.policy.UniqueFor
		if ttl <= 0 {
			ttl = reg.policy.Timeout * time.Duration(reg.policy.Tries)
		}
		acquired, err := r.locker.Acquire(ctx, lockKey(job.UniqueID), ttl)
		if err != nil {
			return "", fmt.Errorf("acquire unique lock: %w", err)
		}
		if !acquired {
			return "", fmt.Errorf("%w: %s", ErrDuplicateJob, job.UniqueID)
		}
	}

	if err := r.enqueue(ctx, job); err != nil {
		r.release(job)
		return "", err
	}

	r.logger.Debug("job dispatched",
		zap.String("job_id", job.ID),
		zap.String("kind", kind),
		zap.String("queue", job.Queue),
		zap.Strings("tags", job.Tags),
	)
	return job.ID, nil
}

func (r *Runtime) enqueue(ctx context.Context, job *Job) error {
	p, ok := r.pools[job.Queue]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQueue, job.Queue)
	}
	select {
	case p.jobs <- job:
		return nil
	case <-r.done:
		return ErrQueueStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the worker pools.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}
	r.started = true
	r.runCtx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))

	for _, p := range r.pools {
		for i := 0; i < p.workers; i++ {
			r.wg.Add(1)
			go r.worker(p)
		}
		r.logger.Info("queue started", zap.String("queue", p.name), zap.Int("workers", p.workers))
	}
	return nil
}

// Stop cancels running attempts, drops pending retries and waits for workers.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	for d := range r.retries {
		if d.timer.Stop() {
			r.logger.Warn("pending retry dropped on shutdown",
				zap.String("job_id", d.job.ID),
				zap.String("kind", d.job.Kind),
				zap.Int("attempt", d.job.Attempt),
			)
			r.release(d.job)
		}
	}
	r.retries = nil
	close(r.done)
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		return fmt.Errorf("stop queue: %w", ctx.Err())
	}

	for _, p := range r.pools {
		if n := len(p.jobs); n > 0 {
			r.logger.Warn("queued jobs dropped on shutdown", zap.String("queue", p.name), zap.Int("jobs", n))
		}
	}
	return nil
}

func (r *Runtime) worker(p *pool) {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case job := <-p.jobs:
			r.execute(job)
		}
	}
}

func (r *Runtime) execute(job *Job) {
	r.mu.Lock()
	reg, ok := r.handlers[job.Kind]
	r.mu.Unlock()
	log := r.logger.With(
		zap.String("job_id", job.ID),
		zap.String("kind", job.Kind),
		zap.String("queue", job.Queue),
		zap.Int("attempt", job.Attempt),
	)
	if !ok {
		log.Error("no handler registered for job")
		return
	}

	ctx, cancel := r.attemptContext(reg.policy.Timeout)
	r.recorder.JobStarted(job.Queue, job.Kind)
	start := time.Now()
	err := invoke(ctx, reg.handler, job)
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	cancel()
	elapsed := time.Since(start)

	if err == nil {
		r.recorder.JobFinished(job.Queue, job.Kind, OutcomeSucceeded, elapsed)
		r.release(job)
		log.Debug("job succeeded", zap.Duration("elapsed", elapsed))
		return
	}

	if r.runCtx.Err() != nil {
		r.recorder.JobFinished(job.Queue, job.Kind, OutcomeInterrupted, elapsed)
		log.Warn("job interrupted by shutdown", zap.Error(err))
		r.release(job)
		return
	}

	if timedOut {
		err = fmt.Errorf("%w after %s: %w", ErrJobTimeout, reg.policy.Timeout, err)
	}

	var permanent *backoff.PermanentError
	isPermanent := errors.As(err, &permanent)
	if isPermanent || job.Attempt >= reg.policy.Tries {
		cause := err
		if isPermanent {
			cause = permanent.Unwrap()
		}
		r.recorder.JobFinished(job.Queue, job.Kind, OutcomeExhausted, elapsed)
		log.Error("job exhausted",
			zap.Error(cause),
			zap.Int("max_attempts", reg.policy.Tries),
			zap.Bool("permanent", isPermanent),
			zap.Bool("timed_out", timedOut),
		)
		r.fail(reg.handler, job, Failure{Cause: cause, Attempts: job.Attempt, TimedOut: timedOut})
		r.release(job)
		return
	}

	delay := reg.policy.Backoff.Delay(job.Attempt)
	r.recorder.JobFinished(job.Queue, job.Kind, OutcomeRetried, elapsed)
	r.recorder.JobRetried(job.Queue, job.Kind)
	log.Warn("job attempt failed, retrying",
		zap.Error(err),
		zap.Int("max_attempts", reg.policy.Tries),
		zap.Duration("retry_in", delay),
	)

	next := *job
	next.Attempt++
	r.retry(&next, delay)
}

func (r *Runtime) attemptContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(r.runCtx)
	}
	return context.WithTimeout(r.runCtx, timeout)
}

func invoke(ctx context.Context, h Handler, job *Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	return h.Handle(ctx, job)
}

func (r *Runtime) fail(h Handler, job *Job, failure Failure) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.runCtx), failedHookTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("failed hook panicked", zap.String("job_id", job.ID), zap.Any("panic", rec))
		}
	}()
	h.Failed(ctx, job, failure)
}

func (r *Runtime) retry(job *Job, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		r.release(job)
		return
	}

	d := &delayed{job: job}
	d.timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		stopped := r.stopped
		if !stopped {
			delete(r.retries, d)
		}
		r.mu.Unlock()
		if stopped {
			r.release(job)
			return
		}

		if err := r.enqueue(r.runCtx, job); err != nil {
			r.logger.Warn("retry not enqueued", zap.String("job_id", job.ID), zap.Error(err))
			r.release(job)
		}
	})
	r.retries[d] = struct{}{}
}

func (r *Runtime) release(job *Job) {
	if job.UniqueID == "" {
		return
	}
	if err := r.locker.Release(context.Background(), lockKey(job.UniqueID)); err != nil {
		r.logger.Warn("release unique lock failed", zap.String("unique_id", job.UniqueID), zap.Error(err))
	}
}

func lockKey(uniqueID string) string {
	return "queue:unique:" + uniqueID
}
