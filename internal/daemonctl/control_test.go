package daemonctl_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"vidconv/internal/daemonctl"
	"vidconv/internal/testsupport"
)

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.Stop(filepath.Join(t.TempDir(), "none.sock"), cfg, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.pid")
	if err := os.WriteFile(good, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := daemonctl.ReadPID(good); err != nil || pid != 4242 {
		t.Fatalf("ReadPID = %d, %v", pid, err)
	}

	bad := filepath.Join(dir, "bad.pid")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := daemonctl.ReadPID(bad); err == nil {
		t.Fatal("expected invalid pid file error")
	}
	if _, err := daemonctl.ReadPID(filepath.Join(dir, "missing.pid")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLaunchRejectsEmptyExecutable(t *testing.T) {
	if err := daemonctl.Launch("", daemonctl.LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}

func TestLaunchPassesServeArguments(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "args")
	script := filepath.Join(dir, "fake-vidconv")
	body := "#!/bin/sh\necho \"$@\" > " + strconv.Quote(out) + "\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	if err := daemonctl.Launch(script, daemonctl.LaunchOptions{SocketPath: "/tmp/x.sock", ConfigPath: "/tmp/c.toml"}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(out)
		if err == nil && len(data) > 0 {
			if got := string(data); got != "serve --socket /tmp/x.sock --config /tmp/c.toml\n" {
				t.Fatalf("unexpected args %q", got)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("launched process did not record its arguments")
}
