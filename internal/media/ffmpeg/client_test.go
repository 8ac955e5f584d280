package ffmpeg_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"vidconv/internal/media/ffmpeg"
)

type stubExecutor struct {
	lines  []string
	err    error
	binary string
	args   []string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	s.binary = binary
	s.args = append([]string(nil), args...)
	for _, line := range s.lines {
		onStdout(line)
	}
	return s.err
}

func TestBuildArgsWithScaleAndProgress(t *testing.T) {
	args := ffmpeg.BuildArgs(ffmpeg.Request{
		InputPath:   "/in/a.mkv",
		OutputPath:  "/in/converted_a.mp4",
		ScaleFilter: "scale=-2:720",
		CRF:         18,
		Preset:      "slow",
		Progress:    true,
	})
	want := []string{
		"-hide_banner", "-nostdin", "-y", "-i", "/in/a.mkv",
		"-vf", "scale=-2:720",
		"-c:v", "libx264", "-crf", "18", "-preset", "slow",
		"-c:a", "aac",
		"-progress", "pipe:1", "-nostats",
		"/in/converted_a.mp4",
	}
	if !slices.Equal(args, want) {
		t.Fatalf("unexpected args\n got %v\nwant %v", args, want)
	}
}

func TestBuildArgsOriginalWithoutProgress(t *testing.T) {
	args := ffmpeg.BuildArgs(ffmpeg.Request{InputPath: "a.mkv", OutputPath: "b.mp4", CRF: 23, Preset: "medium"})
	if slices.Contains(args, "-vf") || slices.Contains(args, "-progress") {
		t.Fatalf("unexpected scale or progress flags: %v", args)
	}
	if args[len(args)-1] != "b.mp4" {
		t.Fatalf("expected output path last, got %v", args)
	}
}

func TestEncodeForwardsParsedProgress(t *testing.T) {
	exec := &stubExecutor{lines: []string{"frame=1", "out_time_ms=1000000", "out_time_us=2000000", "progress=end"}}
	client, err := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	var seen []time.Duration
	req := ffmpeg.Request{InputPath: "a.mkv", OutputPath: "b.mp4", Progress: true}
	if err := client.Encode(context.Background(), req, func(d time.Duration) { seen = append(seen, d) }); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !slices.Equal(seen, []time.Duration{time.Second, 2 * time.Second}) {
		t.Fatalf("unexpected progress %v", seen)
	}
	if exec.binary != "ffmpeg" {
		t.Fatalf("unexpected binary %q", exec.binary)
	}
}

func TestEncodeStopsForwardingAfterProgressEnd(t *testing.T) {
	exec := &stubExecutor{lines: []string{"out_time_ms=1000000", "progress=end", "out_time_ms=9000000"}}
	client, _ := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(exec))
	var seen []time.Duration
	req := ffmpeg.Request{InputPath: "a.mkv", OutputPath: "b.mp4", Progress: true}
	if err := client.Encode(context.Background(), req, func(d time.Duration) { seen = append(seen, d) }); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !slices.Equal(seen, []time.Duration{time.Second}) {
		t.Fatalf("unexpected progress %v", seen)
	}
}

func TestEncodeWithoutProgressIgnoresLines(t *testing.T) {
	exec := &stubExecutor{lines: []string{"out_time_ms=1000000"}}
	client, _ := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(exec))
	called := false
	if err := client.Encode(context.Background(), ffmpeg.Request{InputPath: "a", OutputPath: "b"}, func(time.Duration) { called = true }); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if called {
		t.Fatal("expected no progress callbacks when progress is disabled")
	}
}

func TestEncodeReturnsExecutorError(t *testing.T) {
	client, _ := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&stubExecutor{err: errors.New("boom")}))
	if err := client.Encode(context.Background(), ffmpeg.Request{InputPath: "a", OutputPath: "b"}, nil); err == nil {
		t.Fatal("expected executor error")
	}
	if _, err := ffmpeg.New("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
