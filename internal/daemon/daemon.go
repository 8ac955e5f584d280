package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vidconv/internal/api"
	"vidconv/internal/capacity"
	"vidconv/internal/config"
	"vidconv/internal/deps"
	"vidconv/internal/engine"
	"vidconv/internal/logging"
	"vidconv/internal/preflight"
	"vidconv/internal/queue"
)

// Daemon owns the engine and HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *engine.Engine
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	stopped bool
	cancel  context.CancelFunc

	depCheck func(*config.Config) []deps.Status
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	LockFilePath   string
	SocketPath     string
	APIBind        string
	StagingDir     string
	JobStats       map[queue.Status]int
	RunningJobs    int
	PendingUploads int
	Capacity       capacity.Snapshot
	Settings       engine.Settings
	PublishTarget  string
	Dependencies   []deps.Status
	Checks         []preflight.Result
}

// New constructs a daemon around an engine.
func New(cfg *config.Config, eng *engine.Engine, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || eng == nil {
		return nil, errors.New("daemon requires config and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		engine:   eng,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		depCheck: preflight.CheckSystemDeps,
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, ties the engine to ctx, and starts the
// HTTP API when a bind address is configured.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return errors.New("daemon already stopped")
	}
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vidconv daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.engine.Start(runCtx)
	d.cancel = cancel
	d.running.Store(true)

	for _, dep := range d.depCheck(d.cfg) {
		if !dep.Missing() {
			continue
		}
		logging.WarnWithContext(d.logger, "required dependency missing", "dependency_missing",
			logging.String("dependency", dep.Name),
			logging.String("detail", dep.Detail),
			logging.String(logging.FieldErrorHint, "Install ffmpeg or set encoder.ffmpeg_binary; jobs will fail until it is available"),
		)
	}
	d.logger.Info("vidconv daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API, stops the engine, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.engine.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.stopped = true
	d.running.Store(false)
	d.logger.Info("vidconv daemon stopped")
}

// Close releases resources held by the daemon, stopping the engine even if
// Start was never called.
func (d *Daemon) Close() error {
	d.Stop()
	d.engine.Stop()
	return nil
}

// Engine exposes the conversion engine for IPC handlers.
func (d *Daemon) Engine() *engine.Engine {
	return d.engine
}

// APIAddr returns the bound HTTP address, or "" when the API is disabled or
// not started.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		SocketPath:     d.cfg.Paths.SocketPath,
		APIBind:        d.cfg.Paths.APIBind,
		StagingDir:     d.cfg.Paths.StagingDir,
		JobStats:       d.engine.Store().Stats(),
		RunningJobs:    d.engine.RunningCount(),
		PendingUploads: len(d.engine.PendingUploads()),
		Capacity:       d.engine.Capacity(),
		Settings:       d.engine.Settings(),
		PublishTarget:  d.engine.PublishTarget(),
		Dependencies:   d.depCheck(d.cfg),
		Checks:         preflight.RunAll(d.cfg),
	}
}

// Payload converts s to its API representation.
func (s Status) Payload() api.DaemonStatus {
	return api.DaemonStatus{
		Running:        s.Running,
		PID:            s.PID,
		LockFilePath:   s.LockFilePath,
		SocketPath:     s.SocketPath,
		APIBind:        s.APIBind,
		StagingDir:     s.StagingDir,
		JobStats:       api.MergeJobStats(s.JobStats),
		RunningJobs:    s.RunningJobs,
		PendingUploads: s.PendingUploads,
		Capacity:       api.FromCapacity(s.Capacity),
		Settings:       api.FromSettings(s.Settings),
		Publish:        s.PublishTarget,
		Dependencies:   api.FromDependencies(s.Dependencies),
		Checks:         api.FromPreflight(s.Checks),
	}
}
