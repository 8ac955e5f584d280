package daemon

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"vidconv/internal/api"
	"vidconv/internal/engine"
	"vidconv/internal/ingest"
	"vidconv/internal/logging"
	"vidconv/internal/preset"
	"vidconv/internal/services"
)

const maxFormFieldBytes = 1 << 10

// handleUpload streams each multipart file part to the stager. Files are
// staged for a later confirm unless confirm=true, in which case each one is
// enqueued as soon as it is stored. Form fields resolution, quality, and
// confirm may precede the files or be given as query parameters.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "expected multipart/form-data body")
		return
	}
	query := r.URL.Query()
	form := uploadForm{
		resolution: query.Get("resolution"),
		quality:    query.Get("quality"),
		confirm:    parseBool(query.Get("confirm")),
	}

	var (
		result   api.UploadResult
		firstErr error
		files    int
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		if part.FileName() == "" {
			if err := form.readField(part); err != nil {
				part.Close()
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			part.Close()
			continue
		}
		files++
		if err := s.storePart(r, part, form, &result); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", part.FileName(), services.Describe(err)))
		}
		part.Close()
	}

	switch {
	case files == 0:
		s.writeError(w, http.StatusBadRequest, "no files in upload")
	case firstErr != nil && len(result.Jobs) == 0 && len(result.Staged) == 0:
		s.writeJSON(w, statusForError(firstErr), result)
	default:
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *apiServer) storePart(r *http.Request, part *multipart.Part, form uploadForm, result *api.UploadResult) error {
	name := part.FileName()
	payload := ingest.FromReader(part, -1)
	if form.confirm {
		opts, err := submitOptions(form.resolution, form.quality)
		if err != nil {
			return err
		}
		job, err := s.engine().Submit(r.Context(), payload, name, opts)
		if err != nil {
			s.logRejected(r, name, err)
			return err
		}
		result.Jobs = append(result.Jobs, api.FromJob(job))
		return nil
	}
	stored, err := s.engine().Stage(r.Context(), payload, name)
	if err != nil {
		s.logRejected(r, name, err)
		return err
	}
	result.Staged = append(result.Staged, api.FromStoredFiles([]ingest.StoredFile{stored})...)
	return nil
}

func (s *apiServer) logRejected(r *http.Request, name string, err error) {
	logging.WithContext(r.Context(), s.logger).Info("upload rejected",
		logging.String("file", name),
		logging.String("reason", services.Describe(err)),
	)
}

type uploadForm struct {
	resolution string
	quality    string
	confirm    bool
}

func (f *uploadForm) readField(part *multipart.Part) error {
	data, err := io.ReadAll(io.LimitReader(part, maxFormFieldBytes))
	if err != nil {
		return fmt.Errorf("read form field %q: %w", part.FormName(), err)
	}
	value := strings.TrimSpace(string(data))
	switch part.FormName() {
	case "resolution":
		f.resolution = value
	case "quality":
		f.quality = value
	case "confirm":
		f.confirm = parseBool(value)
	}
	return nil
}

// submitOptions parses optional per-request overrides; empty values keep
// the global selection.
func submitOptions(resolution, quality string) (engine.SubmitOptions, error) {
	var opts engine.SubmitOptions
	if strings.TrimSpace(resolution) != "" {
		res, err := preset.ParseResolution(resolution)
		if err != nil {
			return opts, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		opts.Resolution = res
	}
	if strings.TrimSpace(quality) != "" {
		q, err := preset.ParseQuality(quality)
		if err != nil {
			return opts, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		opts.Quality = q
	}
	return opts, nil
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}
