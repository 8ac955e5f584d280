package daemon_test

import (
	"context"
	"net/http"
	"testing"

	"vidconv/internal/daemon"
	"vidconv/internal/engine"
	"vidconv/internal/testsupport"
)

type idleRunner struct{}

func (idleRunner) Run(context.Context, string, int) {}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng, err := engine.New(cfg, nil, engine.WithRunner(idleRunner{}))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	d, err := daemon.New(cfg, eng, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected api server to be listening")
	}
	resp, err := http.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.APIAddr() != "" {
		t.Fatal("expected api server to be closed")
	}
}

func TestSecondDaemonIsRejectedByLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := engine.New(cfg, nil, engine.WithRunner(idleRunner{}))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	second, err := engine.New(cfg, nil, engine.WithRunner(idleRunner{}))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	cfg.Paths.APIBind = ""
	d1, _ := daemon.New(cfg, first, nil)
	d2, _ := daemon.New(cfg, second, nil)
	t.Cleanup(func() {
		d1.Close()
		d2.Close()
	})

	ctx := context.Background()
	if err := d1.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := d2.Start(ctx); err == nil {
		t.Fatal("expected lock conflict")
	}
}
