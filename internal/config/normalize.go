package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidconv/internal/preset"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoder()
	c.normalizeDefaults()
	c.normalizeLogging()
	c.normalizePublish()
	c.normalizeNotifications()
	return nil
}

// applyEnvOverrides lets VIDCONV_* variables replace file values, which keeps
// container deployments free of config files.
func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"VIDCONV_STAGING_DIR", &c.Paths.StagingDir},
		{"VIDCONV_LOG_DIR", &c.Paths.LogDir},
		{"VIDCONV_API_BIND", &c.Paths.APIBind},
		{"VIDCONV_SOCKET_PATH", &c.Paths.SocketPath},
		{"VIDCONV_API_TOKEN", &c.Paths.APIToken},
		{"VIDCONV_FFMPEG_BINARY", &c.Encoder.FFmpegBinary},
		{"VIDCONV_FFPROBE_BINARY", &c.Encoder.FFprobeBinary},
		{"VIDCONV_NTFY_TOPIC", &c.Notifications.NtfyTopic},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.env); ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
	if value, ok := os.LookupEnv("VIDCONV_CAPACITY_GIB"); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			c.Capacity.LimitGiB = parsed
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.LogDir, defaultSocketName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeEncoder() {
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if c.Encoder.FFmpegBinary == "" {
		c.Encoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	if c.Encoder.FFprobeBinary == "" {
		c.Encoder.FFprobeBinary = defaultFFprobeBinary
	}
	c.Encoder.VideoCodec = strings.TrimSpace(c.Encoder.VideoCodec)
	if c.Encoder.VideoCodec == "" {
		c.Encoder.VideoCodec = defaultVideoCodec
	}
	c.Encoder.AudioCodec = strings.TrimSpace(c.Encoder.AudioCodec)
	if c.Encoder.AudioCodec == "" {
		c.Encoder.AudioCodec = defaultAudioCodec
	}
	if c.Encoder.ProgressEpsilon <= 0 {
		c.Encoder.ProgressEpsilon = defaultProgressEpsilon
	}
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.Defaults.Resolution) == "" {
		c.Defaults.Resolution = defaultResolution
	}
	if res, err := preset.ParseResolution(c.Defaults.Resolution); err == nil {
		c.Defaults.Resolution = string(res)
	}
	if strings.TrimSpace(c.Defaults.Quality) == "" {
		c.Defaults.Quality = defaultQuality
	}
	if q, err := preset.ParseQuality(c.Defaults.Quality); err == nil {
		c.Defaults.Quality = string(q)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizePublish() {
	c.Publish.Bucket = strings.TrimSpace(c.Publish.Bucket)
	c.Publish.Endpoint = strings.TrimSpace(c.Publish.Endpoint)
	c.Publish.Prefix = strings.Trim(strings.TrimSpace(c.Publish.Prefix), "/")
	c.Publish.Region = strings.TrimSpace(c.Publish.Region)
	if c.Publish.Region == "" {
		c.Publish.Region = defaultPublishRegion
	}
	c.Publish.AccessKey = strings.TrimSpace(c.Publish.AccessKey)
	if c.Publish.AccessKey == "" {
		c.Publish.AccessKey = firstEnv("VIDCONV_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	}
	c.Publish.SecretKey = strings.TrimSpace(c.Publish.SecretKey)
	if c.Publish.SecretKey == "" {
		c.Publish.SecretKey = firstEnv("VIDCONV_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}
