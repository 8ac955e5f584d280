package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vidconv/internal/config"
	"vidconv/internal/daemon"
	"vidconv/internal/deps"
	"vidconv/internal/encoding"
	"vidconv/internal/engine"
	"vidconv/internal/ipc"
	"vidconv/internal/logging"
	"vidconv/internal/media/ffmpeg"
	"vidconv/internal/testsupport"
)

type instantEncoder struct{}

func (instantEncoder) Encode(_ context.Context, req ffmpeg.Request, _ func(time.Duration)) error {
	return os.WriteFile(req.OutputPath, bytes.Repeat([]byte("o"), 16), 0o644)
}

type cliTestEnv struct {
	cfg        *config.Config
	engine     *engine.Engine
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	base := testsupport.BaseDir(cfg)

	configPath := filepath.Join(base, "config", "config.toml")
	writeTestConfig(t, configPath, cfg)

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

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon Start: %v", err)
	}
	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		engine:     eng,
		daemon:     d,
		server:     srv,
		socketPath: cfg.Paths.SocketPath,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
