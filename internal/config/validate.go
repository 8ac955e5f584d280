package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"vidconv/internal/preset"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateCapacity(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind != "" {
		if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
			return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
		}
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.StartPercent < 0 || c.Encoder.StartPercent > 100 {
		return errors.New("encoder.start_percent must be between 0 and 100")
	}
	if c.Encoder.PlannedPercent < c.Encoder.StartPercent || c.Encoder.PlannedPercent > 100 {
		return errors.New("encoder.planned_percent must be between start_percent and 100")
	}
	if c.Encoder.ProgressEpsilon > 10 {
		return errors.New("encoder.progress_epsilon must not exceed 10")
	}
	return nil
}

func (c *Config) validateCapacity() error {
	if c.Capacity.LimitGiB <= 0 {
		return errors.New("capacity.limit_gib must be positive")
	}
	return nil
}

func (c *Config) validateDefaults() error {
	if _, err := preset.ParseResolution(c.Defaults.Resolution); err != nil {
		return fmt.Errorf("defaults.resolution: %w", err)
	}
	if _, err := preset.ParseQuality(c.Defaults.Quality); err != nil {
		return fmt.Errorf("defaults.quality: %w", err)
	}
	return nil
}

func (c *Config) validatePublish() error {
	if !c.Publish.Enabled {
		return nil
	}
	if c.Publish.Bucket == "" {
		return errors.New("publish.bucket is required when publishing is enabled")
	}
	if (c.Publish.AccessKey == "") != (c.Publish.SecretKey == "") {
		return errors.New("publish.access_key and publish.secret_key must be set together")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", topic)
	}
	return nil
}
