package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"vidconv/internal/config"
)

const userAgent = "vidconv/0.1.0"

// Service defines the notification surface used by the engine.
type Service interface {
	NotifyJobCompleted(ctx context.Context, name, outputName string, sizeBytes int64) error
	NotifyJobFailed(ctx context.Context, name, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when a topic is
// configured, and a no-op otherwise.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, name, outputName string, sizeBytes int64) error {
	message := fmt.Sprintf("✅ Converted: %s", strings.TrimSpace(name))
	if outputName = strings.TrimSpace(outputName); outputName != "" {
		message = fmt.Sprintf("%s\nOutput: %s", message, outputName)
	}
	if sizeBytes > 0 {
		message = fmt.Sprintf("%s (%s)", message, humanize.IBytes(uint64(sizeBytes)))
	}
	return n.send(ctx, payload{
		title:   "vidconv - Complete",
		message: message,
		tags:    []string{"vidconv", "convert", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, name, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "vidconv - Failed",
		message:  fmt.Sprintf("❌ Conversion failed: %s\n%s", strings.TrimSpace(name), reason),
		tags:     []string{"vidconv", "convert", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "vidconv - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"vidconv", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string, int64) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
