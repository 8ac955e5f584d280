package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"vidconv/internal/capacity"
	"vidconv/internal/logging"
	"vidconv/internal/services"
	"vidconv/internal/textutil"
)

// ErrUnsupportedExtension rejects files that are not a known video container.
var ErrUnsupportedExtension = errors.New("unsupported file type")

var allowedExtensions = []string{".avi", ".mov", ".mkv", ".wmv", ".mp4", ".webm"}

// AllowedExtensions lists the accepted extensions, lower-case with the dot.
func AllowedExtensions() []string {
	return slices.Clone(allowedExtensions)
}

// Reserver charges and releases storage capacity.
type Reserver interface {
	Reserve(n int64) error
	Credit(n int64)
	Capacity() capacity.Snapshot
}

// ConvertedPrefix marks the encoder output derived from a staged input.
const ConvertedPrefix = "converted_"

// StoredFile describes a file written into the staging directory.
type StoredFile struct {
	Name         string
	OriginalName string
	Size         int64
}

const maxNameAttempts = 32

// Stager writes uploads into the staging directory.
type Stager struct {
	dir      string
	reserver Reserver
	logger   *slog.Logger
	suffix   func() int

	// nameMu serializes stored name selection so the exists checks and the
	// exclusive create act as one step.
	nameMu sync.Mutex
}

// NewStager constructs a stager rooted at dir.
func NewStager(dir string, reserver Reserver, logger *slog.Logger) *Stager {
	return &Stager{
		dir:      dir,
		reserver: reserver,
		logger:   logging.NewComponentLogger(logger, "ingest"),
		suffix:   func() int { return 1000 + rand.IntN(9000) },
	}
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// ValidateName checks the extension of an original file name.
func ValidateName(originalName string) error {
	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return services.Wrap(services.ErrValidation, "ingest", "validate name", "File name required", nil)
	}
	ext := strings.ToLower(filepath.Ext(base))
	if !slices.Contains(allowedExtensions, ext) {
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("%w: %w: %s: invalid file type %s", services.ErrValidation, ErrUnsupportedExtension, base, ext)
	}
	return nil
}

// Store validates, reserves capacity for, and writes payload. On any failure
// nothing stays charged and no file is left behind.
func (s *Stager) Store(ctx context.Context, payload Payload, originalName string) (StoredFile, error) {
	if err := ValidateName(originalName); err != nil {
		return StoredFile{}, err
	}
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return StoredFile{}, services.Wrap(services.ErrConfiguration, "ingest", "ensure staging dir", "Set paths.staging_dir to a writable path", err)
	}

	src, size, err := payload.open()
	if err != nil {
		return StoredFile{}, services.Wrap(services.ErrValidation, "ingest", "read payload", "Upload could not be read", err)
	}
	defer src.Close()

	original := filepath.Base(strings.TrimSpace(originalName))
	f, name, err := s.createUnique(original)
	if err != nil {
		return StoredFile{}, err
	}
	target := filepath.Join(s.dir, name)
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(target)
	}

	if size >= 0 {
		if err := s.reserve(size); err != nil {
			cleanup()
			return StoredFile{}, err
		}
		var reader io.Reader = &ctxReader{ctx: ctx, r: src}
		if size < math.MaxInt64 {
			reader = io.LimitReader(reader, size+1)
		}
		written, err := io.Copy(f, reader)
		if err == nil && written != size {
			err = fmt.Errorf("size mismatch: wrote %d of %d bytes", written, size)
		}
		if err == nil {
			err = f.Close()
		}
		if err != nil {
			s.reserver.Credit(size)
			cleanup()
			return StoredFile{}, services.Wrap(services.ErrTransient, "ingest", "write upload", "Failed to store upload", err)
		}
	} else {
		// Unknown length: spool at most one byte past the free quota, then
		// charge what actually landed.
		var limit int64 = -1
		if s.reserver != nil {
			limit = s.reserver.Capacity().Remaining
		}
		var reader io.Reader = &ctxReader{ctx: ctx, r: src}
		if limit >= 0 && limit < math.MaxInt64 {
			reader = io.LimitReader(reader, limit+1)
		}
		written, err := io.Copy(f, reader)
		if err == nil && limit >= 0 && written > limit {
			cleanup()
			return StoredFile{}, fmt.Errorf("%w: %w", services.ErrValidation, capacity.QuotaError(written, s.reserver.Capacity()))
		}
		if err == nil {
			err = f.Close()
		}
		if err != nil {
			cleanup()
			return StoredFile{}, services.Wrap(services.ErrTransient, "ingest", "write upload", "Failed to store upload", err)
		}
		if err := s.reserve(written); err != nil {
			_ = os.Remove(target)
			return StoredFile{}, err
		}
		size = written
	}

	s.logger.Info("upload staged",
		logging.String("original_name", original),
		logging.String("stored_name", name),
		logging.Int64("size_bytes", size),
		logging.String("payload", payload.Kind().String()),
	)
	return StoredFile{Name: name, OriginalName: original, Size: size}, nil
}

// Delete removes a staged file. Missing files are not an error.
func (s *Stager) Delete(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if name != filepath.Base(name) {
		return fmt.Errorf("%w: invalid staged name %q", services.ErrValidation, name)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (s *Stager) reserve(size int64) error {
	if s.reserver == nil {
		return nil
	}
	if err := s.reserver.Reserve(size); err != nil {
		return fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	return nil
}

// createUnique opens a new staged file named <stem>_<NNNN><ext>. The base
// <stem>_<NNNN> is held across every accepted extension and against the
// converted_ output namespace, so each staged input owns its output name.
func (s *Stager) createUnique(original string) (*os.File, string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	stem := textutil.SanitizeStem(strings.TrimSuffix(original, filepath.Ext(original)))
	if stem == "" {
		stem = "upload"
	}
	s.nameMu.Lock()
	defer s.nameMu.Unlock()
	for range maxNameAttempts {
		base := stem + "_" + strconv.Itoa(s.suffix())
		if s.baseTaken(base) {
			continue
		}
		name := base + ext
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", services.Wrap(services.ErrConfiguration, "ingest", "create staged file", "Staging directory is not writable", err)
		}
	}
	return nil, "", services.Wrap(services.ErrTransient, "ingest", "create staged file", "No free staged file name; retry the upload", nil)
}

// baseTaken reports whether base, or the output derived from it, collides
// with a file already in the staging directory.
func (s *Stager) baseTaken(base string) bool {
	candidates := []string{ConvertedPrefix + base + ".mp4"}
	for _, ext := range allowedExtensions {
		candidates = append(candidates, base+ext)
	}
	// A converted_ upload must not take the output name of an existing input.
	if inner, ok := strings.CutPrefix(base, ConvertedPrefix); ok && inner != "" {
		for _, ext := range allowedExtensions {
			candidates = append(candidates, inner+ext)
		}
	}
	for _, name := range candidates {
		if _, err := os.Lstat(filepath.Join(s.dir, name)); err == nil || !errors.Is(err, os.ErrNotExist) {
			return true
		}
	}
	return false
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
