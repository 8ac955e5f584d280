package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	maxLineBytes        = 1024 * 1024
)

// Filter selects log lines. A nil Filter keeps every line.
type Filter func(line string) bool

// JobFilter keeps lines that mention the job. Console output abbreviates
// job ids to their first eight characters, so the prefix is matched.
func JobFilter(jobID string) Filter {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil
	}
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}
	return func(line string) bool {
		return strings.Contains(line, jobID)
	}
}

// Result carries the lines read and the offset to resume from.
type Result struct {
	Lines  []string
	Offset int64
}

// Tail returns up to limit trailing lines of path that pass filter. A
// missing file yields an empty result so callers can start before the
// daemon has logged anything.
func Tail(path string, limit int, filter Filter) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("log path %q is a directory", path)
	}
	if limit <= 0 {
		return Result{Offset: info.Size()}, nil
	}

	ring := make([]string, limit)
	count, idx := 0, 0
	offset, err := scanLines(file, func(line string) {
		if filter != nil && !filter(line) {
			return
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return Result{}, err
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return Result{Lines: lines, Offset: offset}, nil
}

// ReadFrom returns complete lines written after offset. When the file
// shrank below offset (rotation or truncation) reading restarts at zero.
func ReadFrom(path string, offset int64, filter Filter) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Result{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	consumed, err := scanLines(file, func(line string) {
		if filter == nil || filter(line) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return Result{Offset: offset}, err
	}
	return Result{Lines: lines, Offset: offset + consumed}, nil
}

// Follow polls path from offset and hands each new line to emit until ctx
// is cancelled. Cancellation is not reported as an error.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, filter Filter, emit func(string)) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := ReadFrom(path, offset, filter)
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			emit(line)
		}
		offset = result.Offset

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// scanLines feeds each newline-terminated line of r to fn and returns the
// number of bytes consumed. A trailing partial line is left unread so a
// later poll sees it whole.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		trimmed := strings.TrimRight(line, "\r\n")
		if len(trimmed) > maxLineBytes {
			trimmed = trimmed[:maxLineBytes]
		}
		fn(trimmed)
	}
}
