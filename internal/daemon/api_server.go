package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidconv/internal/api"
	"vidconv/internal/capacity"
	"vidconv/internal/config"
	"vidconv/internal/engine"
	"vidconv/internal/logging"
	"vidconv/internal/queue"
	"vidconv/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           authMiddleware(cfg.Paths.APIToken, srv.routes()),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/jobs", s.handleJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)
	mux.HandleFunc("GET /api/jobs/{id}/output", s.handleJobOutput)
	mux.HandleFunc("POST /api/jobs/{id}/retry", s.handleRetry)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.handleRemove)
	mux.HandleFunc("POST /api/uploads", s.handleUpload)
	mux.HandleFunc("GET /api/uploads", s.handlePendingUploads)
	mux.HandleFunc("POST /api/uploads/confirm", s.handleConfirmUploads)
	mux.HandleFunc("DELETE /api/uploads", s.handleCancelUploads)
	mux.HandleFunc("GET /api/capacity", s.handleCapacity)
	mux.HandleFunc("GET /api/settings", s.handleSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)
	return s.withRequestID(mux)
}

// withRequestID stamps each request context so handler logs correlate.
func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.listener = nil
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) engine() *engine.Engine {
	return s.daemon.engine
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).Payload())
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	var filter map[queue.Status]bool
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := queue.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		if filter == nil {
			filter = make(map[queue.Status]bool)
		}
		filter[status] = true
	}
	jobs := s.engine().List()
	if filter != nil {
		kept := jobs[:0]
		for _, job := range jobs {
			if filter[job.Status] {
				kept = append(kept, job)
			}
		}
		jobs = kept
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Items: api.FromJobs(jobs)})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.engine().Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Item: api.FromJob(job)})
}

func (s *apiServer) handleJobOutput(w http.ResponseWriter, r *http.Request) {
	job, ok := s.engine().Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	path, ok := s.engine().OutputPath(job)
	if !ok {
		s.writeError(w, http.StatusConflict, "job has no converted output")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.OutputName))
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	job, err := s.engine().Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Item: api.FromJob(job)})
}

func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := s.engine().Remove(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !removed {
		s.writeJSON(w, http.StatusNotFound, api.RemoveResult{ID: id, Outcome: api.RemoveOutcomeNotFound})
		return
	}
	s.writeJSON(w, http.StatusOK, api.RemoveResult{ID: id, Outcome: api.RemoveOutcomeRemoved})
}

func (s *apiServer) handlePendingUploads(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.UploadsResponse{Items: api.FromStoredFiles(s.engine().PendingUploads())})
}

func (s *apiServer) handleConfirmUploads(w http.ResponseWriter, r *http.Request) {
	var update api.SettingsUpdate
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	opts, err := submitOptions(update.Resolution, update.Quality)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	jobs, err := s.engine().ConfirmUploads(r.Context(), opts)
	result := api.UploadResult{Jobs: api.FromJobs(jobs)}
	if err != nil {
		result.Errors = splitJoined(err)
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleCancelUploads(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.CancelUploadsResponse{Cancelled: s.engine().CancelUploads()})
}

func (s *apiServer) handleCapacity(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.FromCapacity(s.engine().Capacity()))
}

func (s *apiServer) handleSettings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.FromSettings(s.engine().Settings()))
}

func (s *apiServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update api.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	current, err := s.engine().UpdateSettings(update.Resolution, update.Quality)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSettings(current))
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, capacity.ErrQuotaExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, queue.ErrJobNotFound), errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrJobProcessing), errors.Is(err, queue.ErrNotRetryable), errors.Is(err, queue.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, engine.ErrStopped), errors.Is(err, queue.ErrStoreClosed):
		return http.StatusServiceUnavailable
	case services.IsUserError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, services.Describe(err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// splitJoined flattens an errors.Join result into display strings.
func splitJoined(err error) []string {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		out := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			out = append(out, services.Describe(e))
		}
		return out
	}
	return []string{services.Describe(err)}
}
