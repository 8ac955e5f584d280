package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary string
	exec   Executor
}

// New constructs an ffmpeg client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured ffmpeg command.
func (c *Client) Binary() string {
	return c.binary
}

// Encode runs one conversion. When req.Progress is set, onProgress receives
// the elapsed output time for every parsed progress line up to the final
// progress=end marker.
func (c *Client) Encode(ctx context.Context, req Request, onProgress func(time.Duration)) error {
	if strings.TrimSpace(req.InputPath) == "" || strings.TrimSpace(req.OutputPath) == "" {
		return errors.New("input and output paths required")
	}
	ended := false
	return c.exec.Run(ctx, c.binary, BuildArgs(req), func(line string) {
		if onProgress == nil || !req.Progress || ended {
			return
		}
		if IsProgressEnd(line) {
			ended = true
			return
		}
		if elapsed, ok := ParseProgress(line); ok {
			onProgress(elapsed)
		}
	})
}
