package ipc_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidconv/internal/config"
	"vidconv/internal/daemon"
	"vidconv/internal/deps"
	"vidconv/internal/encoding"
	"vidconv/internal/engine"
	"vidconv/internal/ipc"
	"vidconv/internal/logging"
	"vidconv/internal/media/ffmpeg"
	"vidconv/internal/queue"
	"vidconv/internal/testsupport"
)

type instantEncoder struct{}

func (instantEncoder) Encode(_ context.Context, req ffmpeg.Request, _ func(time.Duration)) error {
	return os.WriteFile(req.OutputPath, bytes.Repeat([]byte("o"), 8), 0o644)
}

func startServer(t *testing.T) (*ipc.Client, *engine.Engine, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	logger := logging.NewNop()
	eng, err := engine.New(cfg, logger, engine.WithWorkerOptions(
		encoding.WithEncoder(instantEncoder{}),
		encoding.WithBinaryCheck(func(command string) deps.Status {
			return deps.Status{Name: "FFmpeg", Command: command, Available: true}
		}),
		encoding.WithProber(func(context.Context, string) (float64, bool) { return 0, false }),
	))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	d, err := daemon.New(cfg, eng, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client, eng, cfg
}

func TestIPCSubmitListDescribe(t *testing.T) {
	client, eng, cfg := startServer(t)

	source := filepath.Join(testsupport.BaseDir(cfg), "holiday.MOV")
	testsupport.WriteSource(t, source, 64)

	resp, err := client.Submit(ipc.SubmitRequest{Paths: []string{source, "/nonexistent/x.mkv", source + ".txt"}, Quality: "maximum"})
	if err != nil {
		t.Fatalf("Submit RPC failed: %v", err)
	}
	if len(resp.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %+v", resp)
	}
	if len(resp.Errors) != 2 {
		t.Fatalf("expected 2 per-file errors, got %v", resp.Errors)
	}
	job := resp.Jobs[0]
	if job.Quality != "Maximum" || job.OriginalName != "holiday.MOV" {
		t.Fatalf("unexpected job %+v", job)
	}
	if !strings.HasSuffix(job.InputName, ".mov") {
		t.Fatalf("expected lowercased extension, got %q", job.InputName)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("source file should be left in place: %v", err)
	}

	testsupport.WaitForStatus(t, eng.Store(), job.ID, queue.StatusComplete)

	list, err := client.List([]string{"complete"})
	if err != nil {
		t.Fatalf("List RPC failed: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != job.ID {
		t.Fatalf("unexpected list %+v", list.Items)
	}
	if _, err := client.List([]string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown status")
	}

	desc, err := client.Describe(job.ID)
	if err != nil {
		t.Fatalf("Describe RPC failed: %v", err)
	}
	if !desc.Found || desc.Item.Progress != 100 {
		t.Fatalf("unexpected describe %+v", desc)
	}
	missing, err := client.Describe("nope")
	if err != nil || missing.Found {
		t.Fatalf("expected not found, got %+v err=%v", missing, err)
	}
}

func TestIPCRetryRemoveCapacity(t *testing.T) {
	client, eng, cfg := startServer(t)
	source := filepath.Join(testsupport.BaseDir(cfg), "clip.mp4")
	testsupport.WriteSource(t, source, 10)

	resp, err := client.Submit(ipc.SubmitRequest{Paths: []string{source}})
	if err != nil || len(resp.Jobs) != 1 {
		t.Fatalf("Submit: %+v err=%v", resp, err)
	}
	id := resp.Jobs[0].ID
	testsupport.WaitForStatus(t, eng.Store(), id, queue.StatusComplete)

	retry, err := client.Retry([]string{id, "missing"})
	if err != nil {
		t.Fatalf("Retry RPC failed: %v", err)
	}
	if retry.RetriedCount != 0 || len(retry.Items) != 2 {
		t.Fatalf("unexpected retry result %+v", retry)
	}

	card, err := client.Capacity()
	if err != nil {
		t.Fatalf("Capacity RPC failed: %v", err)
	}
	if card.UsedBytes != 18 {
		t.Fatalf("expected 18 bytes used, got %d", card.UsedBytes)
	}

	removed, err := client.Remove([]string{id, id})
	if err != nil {
		t.Fatalf("Remove RPC failed: %v", err)
	}
	if removed.RemovedCount != 1 {
		t.Fatalf("expected one removal, got %+v", removed)
	}
	card, _ = client.Capacity()
	if card.UsedBytes != 0 {
		t.Fatalf("expected capacity released, got %d", card.UsedBytes)
	}
}

func TestIPCSettingsAndStatus(t *testing.T) {
	client, _, _ := startServer(t)

	settings, err := client.Settings()
	if err != nil {
		t.Fatalf("Settings RPC failed: %v", err)
	}
	if settings.Resolution != "Original" || settings.Quality != "High" {
		t.Fatalf("unexpected defaults %+v", settings)
	}
	if _, err := client.UpdateSettings(ipc.UpdateSettingsRequest{Resolution: "8K"}); err == nil {
		t.Fatal("expected invalid resolution to fail")
	}
	updated, err := client.UpdateSettings(ipc.UpdateSettingsRequest{Resolution: "1080p", Quality: "standard"})
	if err != nil {
		t.Fatalf("UpdateSettings RPC failed: %v", err)
	}
	if updated.Resolution != "1080p" || updated.Quality != "Standard" {
		t.Fatalf("unexpected settings %+v", updated)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.Settings.Resolution != "1080p" {
		t.Fatalf("status should reflect settings, got %+v", status.Settings)
	}
}
