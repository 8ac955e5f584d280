package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"vidconv/internal/config"
)

// videoHeader is an ISO base media ftyp box, enough for content sniffers to
// treat the file as a video container.
var videoHeader = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2")

// WriteSource writes a fake source video of exactly size bytes to path. A
// size <= 0 writes a single byte.
func WriteSource(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := bytes.Repeat([]byte{0}, int(size))
	copy(data, videoHeader)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// StageInput places a fake source video directly in the staging directory,
// as if ingestion had already stored it, and returns its path.
func StageInput(t testing.TB, cfg *config.Config, name string, size int64) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.StagingDir, name)
	WriteSource(t, path, size)
	return path
}
