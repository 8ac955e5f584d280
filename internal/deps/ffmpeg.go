package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpeg reports whether the encoder binary can be executed.
func CheckFFmpeg(ffmpegCommand string) Status {
	return resolve(Requirement{
		Name:        "FFmpeg",
		Command:     ffmpegCommand,
		Description: "Required for encoding",
	})
}

// ResolveFFprobePath picks the ffprobe binary to run alongside ffmpegCommand.
//
// An explicitly configured path wins. For the bare "ffprobe" default, a
// sidecar next to the resolved ffmpeg binary is preferred over PATH so both
// tools come from the same build.
func ResolveFFprobePath(ffmpegCommand, ffprobeCommand string) string {
	ffprobe := strings.TrimSpace(ffprobeCommand)
	if ffprobe != "" && ffprobe != "ffprobe" {
		return ffprobe
	}
	if resolved, err := exec.LookPath(strings.TrimSpace(ffmpegCommand)); err == nil {
		if candidate, ok := sidecarCandidate(resolved, "ffprobe"); ok {
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				return candidate
			}
		}
	}
	return "ffprobe"
}

// CheckFFprobe reports the ffprobe binary used for duration probing.
func CheckFFprobe(ffmpegCommand, ffprobeCommand string) Status {
	return resolve(Requirement{
		Name:        "FFprobe",
		Command:     ResolveFFprobePath(ffmpegCommand, ffprobeCommand),
		Description: "Used for duration probing; progress is unavailable without it",
		Optional:    true,
	})
}

// CheckEncoderBinaries evaluates ffmpeg and ffprobe together.
func CheckEncoderBinaries(ffmpegCommand, ffprobeCommand string) []Status {
	return []Status{
		CheckFFmpeg(ffmpegCommand),
		CheckFFprobe(ffmpegCommand, ffprobeCommand),
	}
}

func sidecarCandidate(binaryPath, name string) (string, bool) {
	if binaryPath == "" {
		return "", false
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(binaryPath), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
