package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, socket, and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	SocketPath string `toml:"socket_path"`
	APIToken   string `toml:"api_token"`
}

// Encoder contains the ffmpeg/ffprobe invocation settings.
type Encoder struct {
	FFmpegBinary    string  `toml:"ffmpeg_binary"`
	FFprobeBinary   string  `toml:"ffprobe_binary"`
	VideoCodec      string  `toml:"video_codec"`
	AudioCodec      string  `toml:"audio_codec"`
	StartPercent    float64 `toml:"start_percent"`
	PlannedPercent  float64 `toml:"planned_percent"`
	ProgressEpsilon float64 `toml:"progress_epsilon"`
}

// Capacity contains the storage quota shared by inputs and outputs.
type Capacity struct {
	LimitGiB float64 `toml:"limit_gib"`
}

// Defaults contains the initial resolution and quality selection.
type Defaults struct {
	Resolution string `toml:"resolution"`
	Quality    string `toml:"quality"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Publish contains the optional S3-compatible upload target for finished files.
type Publish struct {
	Enabled   bool   `toml:"enabled"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	PathStyle bool   `toml:"path_style"`
}

// Notifications contains the optional ntfy endpoint told about finished jobs.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for vidconv.
//
// Configuration sections by subsystem:
//   - Paths: staging/log directories, HTTP bind address and token, IPC socket
//   - Encoder: ffmpeg/ffprobe binaries, codecs, progress milestones
//   - Capacity: storage quota for staged inputs and converted outputs
//   - Defaults: resolution and quality selected at startup
//   - Logging: log format and level
//   - Publish: S3-compatible upload of completed conversions
//   - Notifications: ntfy messages when jobs complete or fail
type Config struct {
	Paths    Paths    `toml:"paths"`
	Encoder  Encoder  `toml:"encoder"`
	Capacity Capacity `toml:"capacity"`
	Defaults Defaults `toml:"defaults"`
	Logging  Logging  `toml:"logging"`
	Publish  Publish  `toml:"publish"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidconv.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, filepath.Dir(c.Paths.SocketPath)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CapacityBytes returns the storage quota in bytes.
func (c *Config) CapacityBytes() int64 {
	return int64(c.Capacity.LimitGiB * bytesPerGiB)
}

// LockPath is the file guarding single daemon instances.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "vidconv.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
