package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/commenthub/internal/logger"
)

// RecordProvider resolves the candidate records for a claimed job: scoped to
// the job's resource key and owner, restricted to the optional
// [DateFrom, DateTo] window, ordered by creation time.
type RecordProvider interface {
	Records(ctx context.Context, job Job) (RecordIterator, error)
}

// FileSink persists a finished document. The reader hands over a fully
// serialized file; implementations decide where it lives (local disk, object
// store) and return the reference stored on the job.
type FileSink interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// Worker executes export jobs in the background, decoupled from the
// requests that created them. Each tick it claims at most one job per free
// slot; jobs run concurrently up to the configured limit, each owning its
// own temp file, so they share no mutable state.
type Worker struct {
	storage  Storage
	provider RecordProvider
	sink     FileSink

	sem chan struct{}
	wg  sync.WaitGroup
	mu  sync.Mutex

	pullInterval    time.Duration
	jobTimeout      time.Duration
	shutdownTimeout time.Duration
	log             *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	jobsSucceeded atomic.Int64
	jobsFailed    atomic.Int64
	activeJobs    atomic.Int32
}

// WorkerStats provides observability counters for monitoring and tests.
type WorkerStats struct {
	JobsSucceeded int64
	JobsFailed    int64
	ActiveJobs    int32
	IsRunning     bool
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithPullInterval sets how often the worker polls for claimable jobs.
func WithPullInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		if interval > 0 {
			w.pullInterval = interval
		}
	}
}

// WithJobTimeout bounds a single job's execution.
func WithJobTimeout(timeout time.Duration) WorkerOption {
	return func(w *Worker) {
		if timeout > 0 {
			w.jobTimeout = timeout
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for active jobs.
func WithShutdownTimeout(timeout time.Duration) WorkerOption {
	return func(w *Worker) {
		if timeout > 0 {
			w.shutdownTimeout = timeout
		}
	}
}

// WithMaxConcurrentJobs sets the number of jobs that may run at once.
func WithMaxConcurrentJobs(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.sem = make(chan struct{}, n)
		}
	}
}

// WithWorkerLogger sets the logger for job lifecycle events.
func WithWorkerLogger(log *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWorker creates an export worker.
func NewWorker(storage Storage, provider RecordProvider, sink FileSink, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if provider == nil {
		return nil, ErrProviderNil
	}
	if sink == nil {
		return nil, ErrSinkNil
	}

	w := &Worker{
		storage:         storage,
		provider:        provider,
		sink:            sink,
		sem:             make(chan struct{}, 1),
		pullInterval:    time.Second,
		jobTimeout:      10 * time.Minute,
		shutdownTimeout: 30 * time.Second,
		log:             logger.Discard(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start begins claiming and executing jobs. Blocks until the context is
// cancelled; use Run for errgroup lifecycles or call in a goroutine.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("export: worker already started")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.log.InfoContext(w.ctx, "export worker started",
		logger.ID("max_concurrent", cap(w.sem)),
		logger.ID("pull_interval", w.pullInterval.String()))

	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Guard the shutdown race: verify the worker is still
				// running and add to the waitgroup under the same lock,
				// otherwise Stop could wait on an incomplete count.
				w.mu.Lock()
				if w.cancel == nil {
					w.mu.Unlock()
					<-w.sem
					return nil
				}
				w.wg.Add(1)
				w.mu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()
					w.claimAndExecute()
				}()
			default:
				// All slots busy; skip this tick.
			}
		}
	}
}

// Stop gracefully shuts down, waiting up to the shutdown timeout for active
// jobs to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("export: worker not started")
	}
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer ctxCancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.InfoContext(context.Background(), "export worker stopped")
		return nil
	case <-ctx.Done():
		w.log.WarnContext(context.Background(), "export worker shutdown timeout exceeded")
		return fmt.Errorf("export: shutdown timeout exceeded after %s", w.shutdownTimeout)
	}
}

// Run provides errgroup compatibility: the returned function starts the
// worker and shuts it down when the context is cancelled.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- w.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = w.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Stats returns current worker counters.
func (w *Worker) Stats() WorkerStats {
	w.mu.Lock()
	isRunning := w.cancel != nil
	w.mu.Unlock()

	return WorkerStats{
		JobsSucceeded: w.jobsSucceeded.Load(),
		JobsFailed:    w.jobsFailed.Load(),
		ActiveJobs:    w.activeJobs.Load(),
		IsRunning:     isRunning,
	}
}

// Healthcheck reports whether the worker is running. Suitable for readiness
// endpoints.
func (w *Worker) Healthcheck(ctx context.Context) error {
	if !w.Stats().IsRunning {
		return ErrWorkerNotRunning
	}
	return nil
}

func (w *Worker) claimAndExecute() {
	job, err := w.storage.ClaimJob(w.ctx)
	if err != nil {
		if !errors.Is(err, ErrNoJobToClaim) && !errors.Is(err, context.Canceled) {
			w.log.ErrorContext(w.ctx, "failed to claim export job", logger.Error(err))
		}
		return
	}

	w.log.InfoContext(w.ctx, "claimed export job",
		logger.JobID(job.ID.String()),
		logger.ID("resource", job.Resource.String()),
		logger.ID("format", string(job.Format)))

	w.executeJob(job)
}

// executeJob runs the full export pipeline for a claimed job and finalizes
// its status. Jobs survive worker shutdown: execution gets an independent
// context bounded only by the job timeout.
func (w *Worker) executeJob(job *Job) {
	start := time.Now()

	w.activeJobs.Add(1)
	defer w.activeJobs.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	// A panicking serializer or record source must fail the job like any
	// other fault, not crash the worker.
	defer func() {
		if r := recover(); r != nil {
			w.finalizeFailure(ctx, job, fmt.Errorf("panic during export: %v", r), start)
		}
	}()

	ref, err := w.produce(ctx, job)
	if err != nil {
		w.finalizeFailure(ctx, job, err, start)
		return
	}

	if err := w.storage.CompleteJob(ctx, job.ID, ref); err != nil {
		w.log.ErrorContext(ctx, "failed to mark export job successful",
			logger.JobID(job.ID.String()), logger.Error(err))
		return
	}

	w.jobsSucceeded.Add(1)
	w.log.InfoContext(ctx, "export job completed",
		logger.JobID(job.ID.String()),
		logger.ID("file", ref),
		logger.Elapsed(start))
}

// produce streams the job's records into a private temp file and, only when
// the document is complete, hands it to the file sink. The temp file is
// always removed, so a failed export never leaves partial output behind.
func (w *Worker) produce(ctx context.Context, job *Job) (string, error) {
	serializer, err := NewSerializer(job.Format)
	if err != nil {
		return "", err
	}

	records, err := w.provider.Records(ctx, *job)
	if err != nil {
		return "", fmt.Errorf("export: failed to read records: %w", err)
	}
	if closer, ok := records.(io.Closer); ok {
		defer closer.Close()
	}

	tmp, err := os.CreateTemp("", "export-*."+string(job.Format))
	if err != nil {
		return "", fmt.Errorf("export: failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if err := serializer.Serialize(ctx, tmp, records); err != nil {
		return "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("export: failed to rewind temp file: %w", err)
	}

	ref, err := w.sink.Save(ctx, job.FileName(), job.Format.ContentType(), tmp)
	if err != nil {
		return "", fmt.Errorf("export: failed to persist document: %w", err)
	}
	return ref, nil
}

func (w *Worker) finalizeFailure(ctx context.Context, job *Job, execErr error, start time.Time) {
	w.jobsFailed.Add(1)

	w.log.ErrorContext(ctx, "export job failed",
		logger.JobID(job.ID.String()),
		logger.ID("resource", job.Resource.String()),
		logger.Elapsed(start),
		logger.Error(execErr))

	if err := w.storage.FailJob(ctx, job.ID, execErr.Error()); err != nil {
		w.log.ErrorContext(ctx, "failed to mark export job as failed",
			logger.JobID(job.ID.String()), logger.Error(err))
	}
}
