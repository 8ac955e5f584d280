package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidconv/internal/capacity"
	"vidconv/internal/config"
	"vidconv/internal/encoding"
	"vidconv/internal/ingest"
	"vidconv/internal/logging"
	"vidconv/internal/notifications"
	"vidconv/internal/preset"
	"vidconv/internal/publish"
	"vidconv/internal/queue"
	"vidconv/internal/services"
)

// ErrStopped rejects work submitted after Stop.
var ErrStopped = errors.New("engine stopped")

// Runner executes one dispatch of a job.
type Runner interface {
	Run(ctx context.Context, jobID string, attempt int)
}

// Settings is the global resolution and quality selection.
type Settings struct {
	Resolution preset.Resolution
	Quality    preset.Quality
}

// SubmitOptions overrides the global selection for one submission. Zero
// fields fall back to the current Settings.
type SubmitOptions struct {
	Resolution preset.Resolution
	Quality    preset.Quality
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces the conversion worker.
func WithRunner(r Runner) Option {
	return func(e *Engine) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithWorkerOptions passes options to the default encoding worker.
func WithWorkerOptions(opts ...encoding.Option) Option {
	return func(e *Engine) {
		e.workerOpts = append(e.workerOpts, opts...)
	}
}

// WithPublisher sets the publisher for finished outputs.
func WithPublisher(p *publish.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithNotifier sets the service told about finished jobs.
func WithNotifier(n notifications.Service) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

type dispatch struct {
	attempt int
	cancel  context.CancelFunc
}

// Engine coordinates jobs, workers, and capacity.
type Engine struct {
	cfg        *config.Config
	store      *queue.Store
	stager     *ingest.Stager
	pending    ingest.Pending
	runner     Runner
	workerOpts []encoding.Option
	publisher  *publish.Publisher
	notifier   notifications.Service
	logger     *slog.Logger

	mu       sync.Mutex
	settings Settings
	running  map[string]dispatch
	stopped  bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// New constructs an engine from cfg. The engine accepts work immediately;
// Start only ties its lifetime to a context.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine: config required")
	}
	res, err := preset.ParseResolution(cfg.Defaults.Resolution)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "defaults", "Invalid defaults.resolution", err)
	}
	q, err := preset.ParseQuality(cfg.Defaults.Quality)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "defaults", "Invalid defaults.quality", err)
	}

	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NewNop()
	}
	store := queue.NewStore(cfg.CapacityBytes(), baseLogger)
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:        cfg,
		store:      store,
		stager:     ingest.NewStager(cfg.Paths.StagingDir, store, baseLogger),
		logger:     logging.NewComponentLogger(baseLogger, "engine"),
		settings:   Settings{Resolution: res, Quality: q},
		running:    make(map[string]dispatch),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		worker, err := encoding.NewWorker(cfg, store, baseLogger, e.workerOpts...)
		if err != nil {
			cancel()
			store.Close()
			return nil, err
		}
		e.runner = worker
	}
	return e, nil
}

// Start stops the engine when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			e.Stop()
		case <-e.baseCtx.Done():
		}
	}()
}

// Stop cancels running conversions, waits for their workers, and closes the
// store. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.stopped = true
		e.mu.Unlock()
		e.baseCancel()
		e.wg.Wait()
		e.store.Close()
		e.logger.Info("engine stopped")
	})
}

// Wait blocks until every dispatched worker has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Store exposes the job store for read-mostly collaborators.
func (e *Engine) Store() *queue.Store {
	return e.store
}

// Enqueue records a queued job for an already staged file and starts its
// conversion in the background. The file's capacity must already be reserved.
// When the returned job carries an ID the record exists and owns the staged
// file, even if an error is also returned.
func (e *Engine) Enqueue(ctx context.Context, file ingest.StoredFile, res preset.Resolution, q preset.Quality) (queue.Job, error) {
	if strings.TrimSpace(file.Name) == "" {
		return queue.Job{}, services.Wrap(services.ErrValidation, "engine", "enqueue", "Staged file name required", nil)
	}
	if err := validateSelection(res, q); err != nil {
		return queue.Job{}, err
	}
	if e.isStopped() {
		return queue.Job{}, ErrStopped
	}
	original := file.OriginalName
	if original == "" {
		original = file.Name
	}
	job := queue.Job{
		ID:             uuid.NewString(),
		InputName:      file.Name,
		OriginalName:   original,
		Status:         queue.StatusQueued,
		Resolution:     res,
		Quality:        q,
		InputSizeBytes: file.Size,
		Attempt:        1,
		InputReserved:  true,
	}
	if err := e.store.Insert(job); err != nil {
		return queue.Job{}, err
	}
	e.logger.Info("job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("input", job.InputName),
		logging.String("resolution", string(res)),
		logging.String("quality", string(q)),
	)
	if !e.dispatch(job.ID, job.Attempt) {
		return e.failUndispatched(job.ID, "engine stopped before the conversion started")
	}
	snapshot, ok := e.store.Get(job.ID)
	if !ok {
		return queue.Job{ID: job.ID}, queue.ErrJobNotFound
	}
	return snapshot, nil
}

// Submit stages payload and enqueues it with the current selection unless
// opts overrides it. Admission failures create no job.
func (e *Engine) Submit(ctx context.Context, payload ingest.Payload, originalName string, opts SubmitOptions) (queue.Job, error) {
	res, q := e.resolve(opts)
	if err := validateSelection(res, q); err != nil {
		return queue.Job{}, err
	}
	stored, err := e.stager.Store(ctx, payload, originalName)
	if err != nil {
		return queue.Job{}, err
	}
	job, err := e.Enqueue(ctx, stored, res, q)
	if err != nil {
		if job.ID == "" {
			e.discard(stored)
		}
		return job, err
	}
	return job, nil
}

// Stage stores payload for a later Confirm. Capacity is reserved now.
func (e *Engine) Stage(ctx context.Context, payload ingest.Payload, originalName string) (ingest.StoredFile, error) {
	if e.isStopped() {
		return ingest.StoredFile{}, ErrStopped
	}
	stored, err := e.stager.Store(ctx, payload, originalName)
	if err != nil {
		return ingest.StoredFile{}, err
	}
	e.pending.Add(stored)
	return stored, nil
}

// PendingUploads lists staged files awaiting confirmation.
func (e *Engine) PendingUploads() []ingest.StoredFile {
	return e.pending.List()
}

// ConfirmUploads enqueues every staged file with one selection.
func (e *Engine) ConfirmUploads(ctx context.Context, opts SubmitOptions) ([]queue.Job, error) {
	res, q := e.resolve(opts)
	files := e.pending.Take()
	jobs := make([]queue.Job, 0, len(files))
	var errs []error
	for _, file := range files {
		job, err := e.Enqueue(ctx, file, res, q)
		if err != nil {
			if job.ID == "" {
				e.discard(file)
			}
			errs = append(errs, fmt.Errorf("%s: %w", file.OriginalName, err))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, errors.Join(errs...)
}

// CancelUploads deletes every staged file and releases its capacity.
func (e *Engine) CancelUploads() int {
	return e.pending.Cancel(e.stager)
}

// Retry resets a failed job and dispatches it again with its original
// resolution and quality.
func (e *Engine) Retry(ctx context.Context, id string) (queue.Job, error) {
	if e.isStopped() {
		return queue.Job{}, ErrStopped
	}
	job, err := e.store.PrepareRetry(id)
	if err != nil {
		return job, err
	}
	e.logger.Info("job retried",
		logging.String(logging.FieldJobID, id),
		logging.Int("attempt", job.Attempt),
	)
	if !e.dispatch(job.ID, job.Attempt) {
		return e.failUndispatched(job.ID, "engine stopped before the retry started")
	}
	return job, nil
}

// Remove deletes a job in any state. A running conversion is cancelled and
// its encoder terminated. Staged input and output files are removed best
// effort, and exactly the capacity the job held is released. Removing an
// unknown job reports false.
func (e *Engine) Remove(ctx context.Context, id string) (bool, error) {
	job, credited, ok := e.store.Delete(id)
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	if d, running := e.running[id]; running {
		d.cancel()
		delete(e.running, id)
	}
	e.mu.Unlock()

	logger := e.logger.With(logging.String(logging.FieldJobID, id))
	if err := e.stager.Delete(job.InputName); err != nil {
		logger.Warn("failed to delete input", logging.String("input", job.InputName), logging.Error(err))
	}
	if output := leftoverOutput(job); output != "" {
		if err := e.stager.Delete(output); err != nil {
			logger.Warn("failed to delete output", logging.String("output", output), logging.Error(err))
		}
	}
	logger.Info("job removed",
		logging.String("status", string(job.Status)),
		logging.Int64("credited_bytes", credited),
	)
	return true, nil
}

// List returns job snapshots, newest first.
func (e *Engine) List() []queue.Job {
	return e.store.List()
}

// Get returns one job snapshot.
func (e *Engine) Get(id string) (queue.Job, bool) {
	return e.store.Get(id)
}

// Capacity returns the storage usage snapshot.
func (e *Engine) Capacity() capacity.Snapshot {
	return e.store.Capacity()
}

// Settings returns the current global selection.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetResolution changes the selection used by later submissions.
func (e *Engine) SetResolution(value string) (Settings, error) {
	res, err := preset.ParseResolution(value)
	if err != nil {
		return e.Settings(), fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.Resolution = res
	return e.settings, nil
}

// SetQuality changes the selection used by later submissions.
func (e *Engine) SetQuality(value string) (Settings, error) {
	q, err := preset.ParseQuality(value)
	if err != nil {
		return e.Settings(), fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.Quality = q
	return e.settings, nil
}

// UpdateSettings validates both values before changing either. Empty values
// leave that half of the selection unchanged.
func (e *Engine) UpdateSettings(resolution, quality string) (Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.settings
	if strings.TrimSpace(resolution) != "" {
		res, err := preset.ParseResolution(resolution)
		if err != nil {
			return e.settings, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		next.Resolution = res
	}
	if strings.TrimSpace(quality) != "" {
		q, err := preset.ParseQuality(quality)
		if err != nil {
			return e.settings, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		next.Quality = q
	}
	e.settings = next
	return next, nil
}

// OutputPath returns the absolute path of a converted file for job.
func (e *Engine) OutputPath(job queue.Job) (string, bool) {
	if job.Status != queue.StatusComplete || job.OutputName == "" {
		return "", false
	}
	return filepath.Join(e.stager.Dir(), job.OutputName), true
}

// RunningCount reports how many conversions are in flight.
func (e *Engine) RunningCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.running)
}

func (e *Engine) resolve(opts SubmitOptions) (preset.Resolution, preset.Quality) {
	current := e.Settings()
	res, q := current.Resolution, current.Quality
	if opts.Resolution != "" {
		res = opts.Resolution
	}
	if opts.Quality != "" {
		q = opts.Quality
	}
	return res, q
}

func validateSelection(res preset.Resolution, q preset.Quality) error {
	if _, err := preset.ParseResolution(string(res)); err != nil {
		return fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	if _, err := preset.ParseQuality(string(q)); err != nil {
		return fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	return nil
}

func (e *Engine) discard(file ingest.StoredFile) {
	if err := e.stager.Delete(file.Name); err != nil {
		e.logger.Warn("failed to delete staged file", logging.String("stored_name", file.Name), logging.Error(err))
	}
	e.store.Credit(file.Size)
}

func (e *Engine) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// leftoverOutput names the output file a removed job may have left behind:
// the recorded output when complete, or the partial output of an earlier
// run. A first attempt still waiting in the queue has none.
func leftoverOutput(job queue.Job) string {
	if job.OutputName != "" {
		return job.OutputName
	}
	if job.Status == queue.StatusQueued && job.Attempt <= 1 {
		return ""
	}
	return encoding.OutputName(job.InputName)
}

// failUndispatched marks a queued job that no worker will pick up as failed.
func (e *Engine) failUndispatched(id, reason string) (queue.Job, error) {
	job, err := e.store.Mutate(id, func(j *queue.Job) error {
		return j.MarkFailed(reason, time.Now().UTC())
	})
	if err != nil && !errors.Is(err, queue.ErrJobNotFound) {
		e.logger.Warn("failed to mark undispatched job", logging.String(logging.FieldJobID, id), logging.Error(err))
	}
	job.ID = id
	return job, ErrStopped
}

// dispatch starts a worker for the attempt. It reports false when the engine
// is stopped and nothing was scheduled.
func (e *Engine) dispatch(id string, attempt int) bool {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(e.baseCtx)
	e.running[id] = dispatch{attempt: attempt, cancel: cancel}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer e.release(id, attempt, cancel)
		e.runner.Run(ctx, id, attempt)
		e.publishIfComplete(ctx, id, attempt)
		e.notifyOutcome(ctx, id, attempt)
	}()
	return true
}

func (e *Engine) release(id string, attempt int, cancel context.CancelFunc) {
	cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.running[id]; ok && d.attempt == attempt {
		delete(e.running, id)
	}
}

// PublishTarget describes where finished outputs are uploaded, or "" when
// publishing is off.
func (e *Engine) PublishTarget() string {
	if e.publisher == nil {
		return ""
	}
	return e.publisher.Target()
}
