package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"vidconv/internal/config"
	"vidconv/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckPublishTarget validates the publish section without contacting the
// remote store.
func CheckPublishTarget(cfg config.Publish) Result {
	const name = "Publish target"

	if !cfg.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return Result{Name: name, Detail: "missing bucket"}
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return Result{Name: name, Detail: "access_key and secret_key must be set together"}
	}
	target := "s3://" + bucket
	if prefix := strings.Trim(cfg.Prefix, "/"); prefix != "" {
		target += "/" + prefix
	}
	if cfg.Endpoint != "" {
		target += " via " + cfg.Endpoint
	}
	return Result{Name: name, Passed: true, Detail: target}
}

// CheckSystemDeps evaluates the encoder binaries for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return deps.CheckEncoderBinaries(cfg.Encoder.FFmpegBinary, cfg.Encoder.FFprobeBinary)
}
