package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"vidconv/internal/config"
	"vidconv/internal/deps"
	"vidconv/internal/logging"
	"vidconv/internal/media/ffmpeg"
	"vidconv/internal/media/ffprobe"
	"vidconv/internal/queue"
	"vidconv/internal/services"
)

// Encoder runs one ffmpeg conversion.
type Encoder interface {
	Encode(ctx context.Context, req ffmpeg.Request, onProgress func(time.Duration)) error
}

// Prober returns the duration of the media at path in seconds.
type Prober func(ctx context.Context, path string) (float64, bool)

// BinaryCheck reports whether the encoder binary is installed.
type BinaryCheck func(command string) deps.Status

// Option configures a Worker.
type Option func(*Worker)

// WithEncoder injects a custom encoder (primarily for tests).
func WithEncoder(enc Encoder) Option {
	return func(w *Worker) {
		if enc != nil {
			w.encoder = enc
		}
	}
}

// WithProber injects a custom duration probe.
func WithProber(probe Prober) Option {
	return func(w *Worker) {
		if probe != nil {
			w.probe = probe
		}
	}
}

// WithBinaryCheck replaces the encoder availability check.
func WithBinaryCheck(check BinaryCheck) Option {
	return func(w *Worker) {
		if check != nil {
			w.checkBinary = check
		}
	}
}

// Worker converts queued jobs. One Worker may run many jobs concurrently;
// per-job state lives on the stack of Run.
type Worker struct {
	store       *queue.Store
	stagingDir  string
	ffmpegBin   string
	videoCodec  string
	audioCodec  string
	startPct    float64
	plannedPct  float64
	epsilon     float64
	encoder     Encoder
	probe       Prober
	checkBinary BinaryCheck
	logger      *slog.Logger
}

// NewWorker constructs a worker backed by the real ffmpeg and ffprobe.
func NewWorker(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) (*Worker, error) {
	if cfg == nil {
		return nil, errors.New("encoding worker: config required")
	}
	if store == nil {
		return nil, errors.New("encoding worker: store required")
	}
	w := &Worker{
		store:       store,
		stagingDir:  cfg.Paths.StagingDir,
		ffmpegBin:   cfg.Encoder.FFmpegBinary,
		videoCodec:  cfg.Encoder.VideoCodec,
		audioCodec:  cfg.Encoder.AudioCodec,
		startPct:    cfg.Encoder.StartPercent,
		plannedPct:  cfg.Encoder.PlannedPercent,
		epsilon:     cfg.Encoder.ProgressEpsilon,
		checkBinary: deps.CheckFFmpeg,
		logger:      logging.NewComponentLogger(logger, "encoder"),
	}
	ffprobeBin := deps.ResolveFFprobePath(cfg.Encoder.FFmpegBinary, cfg.Encoder.FFprobeBinary)
	w.probe = func(ctx context.Context, path string) (float64, bool) {
		return ffprobe.Duration(ctx, ffprobeBin, path)
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.encoder == nil {
		client, err := ffmpeg.New(w.ffmpegBin)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "encoding", "init ffmpeg", "Set encoder.ffmpeg_binary", err)
		}
		w.encoder = client
	}
	return w, nil
}

// Run drives one dispatch of a job to a terminal status. Cancelling ctx
// terminates the encoder; the partial output is removed and the job is
// marked failed unless it was removed meanwhile.
func (w *Worker) Run(ctx context.Context, jobID string, attempt int) {
	ctx = services.WithJobID(ctx, jobID)
	ctx = services.WithStage(ctx, "encoding")
	logger := logging.WithContext(ctx, w.logger).With(logging.Int("attempt", attempt))

	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "conversion worker panicked", "worker_panic",
				logging.String(logging.FieldErrorHint, "report the stack trace"),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			w.finish(ctx, logger, queue.FailedUpdate(jobID, attempt, fmt.Sprintf("Internal error: %v", r)))
		}
	}()

	job, err := w.store.Claim(jobID, attempt, w.startPct, w.preflight)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrJobNotFound), errors.Is(err, queue.ErrStaleAttempt), errors.Is(err, queue.ErrInvalidTransition):
			logger.Debug("skipping dispatch", logging.Error(err))
		default:
			logging.WarnWithContext(logger, "conversion preflight failed", "preflight_failed",
				logging.String(logging.FieldErrorHint, "install ffmpeg or set encoder.ffmpeg_binary"),
				logging.String(logging.FieldImpact, "job marked as error"),
				logging.Error(err),
			)
		}
		return
	}
	logger.Info("conversion started",
		logging.String("input", job.InputName),
		logging.String("resolution", string(job.Resolution)),
		logging.String("quality", string(job.Quality)),
	)

	if err := w.convert(ctx, logger, job); err != nil {
		w.finish(ctx, logger, queue.FailedUpdate(jobID, attempt, services.Describe(err)))
	}
}

func (w *Worker) preflight(queue.Job) error {
	status := w.checkBinary(w.ffmpegBin)
	if status.Available {
		return nil
	}
	return fmt.Errorf("Server Error: FFmpeg not installed (%s)", status.Detail)
}

func (w *Worker) convert(ctx context.Context, logger *slog.Logger, job queue.Job) error {
	inputPath := filepath.Join(w.stagingDir, job.InputName)
	if _, err := os.Stat(inputPath); err != nil {
		return services.Wrap(services.ErrNotFound, "", "", fmt.Sprintf("Input file %s not found", job.InputName), nil)
	}

	duration, known := w.probe(ctx, inputPath)
	if !known {
		logger.Info("duration unknown; progress streaming disabled", logging.String("input", job.InputName))
		duration = 0
	}
	plan := BuildPlan(w.stagingDir, job, duration)
	if err := w.store.Send(ctx, queue.ProgressUpdate(job.ID, job.Attempt, w.plannedPct)); err != nil {
		logger.Debug("progress update not queued", logging.Error(err))
	}
	logger.Debug("conversion plan",
		logging.String("output", plan.OutputName),
		logging.String("scale", plan.ScaleFilter),
		logging.Int("crf", plan.RateControl.CRF),
		logging.String("preset", plan.RateControl.Preset),
		logging.Float64("duration_seconds", plan.Duration),
	)

	tracker := NewProgressTracker(plan.Duration, w.epsilon, w.plannedPct)
	started := time.Now()
	encodeErr := w.encoder.Encode(ctx, plan.Request(w.videoCodec, w.audioCodec), func(elapsed time.Duration) {
		pct, ok := tracker.Observe(elapsed)
		if !ok {
			return
		}
		if err := w.store.Send(ctx, queue.ProgressUpdate(job.ID, job.Attempt, pct)); err != nil {
			logger.Debug("progress update not queued", logging.Error(err))
		}
	})

	if ctx.Err() != nil {
		w.removePartial(logger, plan.OutputPath)
		return services.Wrap(services.ErrTransient, "", "", "Conversion cancelled", nil)
	}
	if encodeErr != nil {
		return services.Wrap(services.ErrExternalTool, "", "", "Conversion failed", encodeErr)
	}

	info, err := os.Stat(plan.OutputPath)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "", "", "Conversion failed: Output file not created", nil)
	}

	applied := w.finish(ctx, logger, queue.CompleteUpdate(job.ID, job.Attempt, plan.OutputName, info.Size()))
	if !applied {
		// The job was removed while ffmpeg ran; its output has no owner.
		w.removePartial(logger, plan.OutputPath)
		return nil
	}
	logger.Info("conversion complete",
		logging.String("output", plan.OutputName),
		logging.Int64("output_bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// finish applies a terminal update and waits for it, independent of ctx
// cancellation so the record never stays in processing.
func (w *Worker) finish(ctx context.Context, logger *slog.Logger, upd queue.Update) bool {
	applied, err := w.store.Apply(context.WithoutCancel(ctx), upd)
	if err != nil {
		logger.Warn("terminal update not applied", logging.String("kind", upd.Kind.String()), logging.Error(err))
		return false
	}
	if !applied {
		logger.Debug("terminal update dropped", logging.String("kind", upd.Kind.String()))
		return false
	}
	if upd.Kind == queue.UpdateFailed {
		logger.Warn("conversion failed", logging.String("reason", upd.Message))
	}
	return true
}

func (w *Worker) removePartial(logger *slog.Logger, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove partial output", logging.String("path", path), logging.Error(err))
	}
}
