package encoding_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vidconv/internal/config"
	"vidconv/internal/deps"
	"vidconv/internal/encoding"
	"vidconv/internal/media/ffmpeg"
	"vidconv/internal/preset"
	"vidconv/internal/queue"
	"vidconv/internal/testsupport"
)

type stubEncoder struct {
	mu        sync.Mutex
	elapsed   []time.Duration
	output    int64
	err       error
	panicWith any
	block     bool
	requests  []ffmpeg.Request
}

func (s *stubEncoder) Encode(ctx context.Context, req ffmpeg.Request, onProgress func(time.Duration)) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	if s.output > 0 {
		if err := os.WriteFile(req.OutputPath, make([]byte, s.output), 0o644); err != nil {
			return err
		}
	}
	if req.Progress {
		for _, d := range s.elapsed {
			onProgress(d)
		}
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func (s *stubEncoder) lastRequest() ffmpeg.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return ffmpeg.Request{}
	}
	return s.requests[len(s.requests)-1]
}

func available(command string) deps.Status {
	return deps.Status{Name: "FFmpeg", Command: command, Available: true}
}

type fixture struct {
	cfg    *config.Config
	store  *queue.Store
	worker *encoding.Worker
}

func newFixture(t *testing.T, enc encoding.Encoder, duration float64, opts ...encoding.Option) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	base := []encoding.Option{
		encoding.WithEncoder(enc),
		encoding.WithBinaryCheck(available),
		encoding.WithProber(func(context.Context, string) (float64, bool) {
			return duration, duration > 0
		}),
	}
	worker, err := encoding.NewWorker(cfg, store, nil, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	return fixture{cfg: cfg, store: store, worker: worker}
}

func (f fixture) addJob(t *testing.T, name string, writeInput bool) queue.Job {
	t.Helper()
	if writeInput {
		testsupport.StageInput(t, f.cfg, name, 100)
	}
	job := queue.Job{
		ID:             "job-" + name,
		InputName:      name,
		OriginalName:   name,
		Resolution:     preset.Resolution1080p,
		Quality:        preset.QualityHigh,
		InputSizeBytes: 100,
		Attempt:        1,
		InputReserved:  true,
	}
	if err := f.store.Reserve(100); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := f.store.Insert(job); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return job
}

func TestWorkerCompletesWithProgress(t *testing.T) {
	enc := &stubEncoder{elapsed: []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}, output: 40}
	f := newFixture(t, enc, 120)
	job := f.addJob(t, "movie_1234.mkv", true)

	f.worker.Run(context.Background(), job.ID, job.Attempt)

	got, _ := f.store.Get(job.ID)
	if got.Status != queue.StatusComplete {
		t.Fatalf("expected complete, got %s (%s)", got.Status, got.ErrorMessage)
	}
	if got.Progress != 100 || got.OutputName != "converted_movie_1234.mp4" || got.OutputSizeBytes != 40 {
		t.Fatalf("unexpected completed job %+v", got)
	}
	if used := f.store.Capacity().Used; used != 140 {
		t.Fatalf("expected 140 bytes used, got %d", used)
	}
	req := enc.lastRequest()
	if req.ScaleFilter != "scale=-2:1080" || req.CRF != 18 || req.Preset != "slow" || !req.Progress {
		t.Fatalf("unexpected encoder request %+v", req)
	}
}

func TestWorkerProgressReachesStore(t *testing.T) {
	enc := &stubEncoder{elapsed: []time.Duration{60 * time.Second}, block: true}
	f := newFixture(t, enc, 120)
	job := f.addJob(t, "a.mkv", true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.worker.Run(ctx, job.ID, job.Attempt)
	}()
	testsupport.WaitFor(t, 5*time.Second, func() bool {
		got, _ := f.store.Get(job.ID)
		return got.Progress == 50
	})
	cancel()
	<-done
}

func TestWorkerFailsWhenFFmpegMissing(t *testing.T) {
	enc := &stubEncoder{output: 1}
	missing := func(command string) deps.Status {
		return deps.CheckFFmpeg(filepath.Join(t.TempDir(), "no-ffmpeg"))
	}
	f := newFixture(t, enc, 10, encoding.WithBinaryCheck(missing))
	job := f.addJob(t, "a.mkv", true)

	f.worker.Run(context.Background(), job.ID, job.Attempt)

	got, _ := f.store.Get(job.ID)
	if got.Status != queue.StatusError {
		t.Fatalf("expected error, got %s", got.Status)
	}
	if !strings.HasPrefix(got.ErrorMessage, "Server Error: FFmpeg not installed") {
		t.Fatalf("unexpected message %q", got.ErrorMessage)
	}
	if len(enc.requests) != 0 {
		t.Fatal("encoder must not run when ffmpeg is missing")
	}
}

func TestWorkerFailsWhenInputMissing(t *testing.T) {
	f := newFixture(t, &stubEncoder{output: 1}, 10)
	job := f.addJob(t, "gone.mkv", false)

	f.worker.Run(context.Background(), job.ID, job.Attempt)

	got, _ := f.store.Get(job.ID)
	if got.Status != queue.StatusError || got.ErrorMessage != "Input file gone.mkv not found" {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestWorkerReportsEncoderExit(t *testing.T) {
	enc := &stubEncoder{err: &ffmpeg.ExitError{Code: 1, StderrTail: "Invalid data found when processing input"}}
	f := newFixture(t, enc, 10)
	job := f.addJob(t, "a.mkv", true)

	f.worker.Run(context.Background(), job.ID, job.Attempt)

	got, _ := f.store.Get(job.ID)
	if got.Status != queue.StatusError {
		t.Fatalf("expected error, got %s", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "exit status 1") || !strings.Contains(got.ErrorMessage, "Invalid data found") {
		t.Fatalf("unexpected message %q", got.ErrorMessage)
	}
}

func TestWorkerFailsWhenOutputMissing(t *testing.T) {
	f := newFixture(t, &stubEncoder{}, 10)
	job := f.addJob(t, "a.mkv", true)

	f.worker.Run(context.Background(), job.ID, job.Attempt)

	got, _ := f.store.Get(job.ID)
	if got.Status != queue.StatusError || got.ErrorMessage != "Conversion failed: Output file not created" {
		t.Fatalf("unexpected job %+v", got)
	}
	if used := f.store.Capacity().Used; used != 100 {
		t.Fatalf("expected only input charged, got %d", used)
	}
}

func TestWorkerUnknownDurationSkipsProgress(t *testing.T) {
	enc := &stubEncoder{elapsed: []time.Duration{time.Second}, output: 5}
	f := newFixture(t, enc, 0)
	job := f.addJob(t, "a.mkv", true)

	f.worker.Run(context.Background(), job.ID, job.Attempt)

	if enc.lastRequest().Progress {
		t.Fatal("expected progress stream disabled")
	}
	got, _ := f.store.Get(job.ID)
	if got.Status != queue.StatusComplete {
		t.Fatalf("expected complete, got %s (%s)", got.Status, got.ErrorMessage)
	}
}

func TestWorkerRecoversPanics(t *testing.T) {
	f := newFixture(t, &stubEncoder{panicWith: "boom"}, 10)
	job := f.addJob(t, "a.mkv", true)

	f.worker.Run(context.Background(), job.ID, job.Attempt)

	got, _ := f.store.Get(job.ID)
	if got.Status != queue.StatusError || got.ErrorMessage != "Internal error: boom" {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestWorkerCancelRemovesPartialOutput(t *testing.T) {
	enc := &stubEncoder{output: 10, block: true}
	f := newFixture(t, enc, 10)
	job := f.addJob(t, "a.mkv", true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.worker.Run(ctx, job.ID, job.Attempt)
	}()
	output := filepath.Join(f.cfg.Paths.StagingDir, "converted_a.mp4")
	testsupport.WaitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(output)
		return err == nil
	})
	cancel()
	<-done

	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected partial output removed, stat err=%v", err)
	}
	got, _ := f.store.Get(job.ID)
	if got.Status != queue.StatusError || got.ErrorMessage != "Conversion cancelled" {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestWorkerIgnoresStaleAttempt(t *testing.T) {
	enc := &stubEncoder{output: 1}
	f := newFixture(t, enc, 10)
	job := f.addJob(t, "a.mkv", true)

	f.worker.Run(context.Background(), job.ID, job.Attempt+1)

	got, _ := f.store.Get(job.ID)
	if got.Status != queue.StatusQueued {
		t.Fatalf("expected job untouched, got %s", got.Status)
	}
	if len(enc.requests) != 0 {
		t.Fatal("encoder must not run for a stale attempt")
	}
}
