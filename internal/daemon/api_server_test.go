package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"vidconv/internal/api"
	"vidconv/internal/config"
	"vidconv/internal/deps"
	"vidconv/internal/encoding"
	"vidconv/internal/engine"
	"vidconv/internal/media/ffmpeg"
	"vidconv/internal/queue"
	"vidconv/internal/testsupport"
)

// instantEncoder writes a fixed-size output immediately.
type instantEncoder struct {
	size int
}

func (e instantEncoder) Encode(_ context.Context, req ffmpeg.Request, onProgress func(time.Duration)) error {
	if onProgress != nil {
		onProgress(30 * time.Second)
	}
	return os.WriteFile(req.OutputPath, bytes.Repeat([]byte("o"), e.size), 0o644)
}

type testServer struct {
	cfg    *config.Config
	daemon *Daemon
	http   *httptest.Server
}

func newTestServer(t *testing.T, opts ...testsupport.ConfigOption) *testServer {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	eng, err := engine.New(cfg, nil, engine.WithWorkerOptions(
		encoding.WithEncoder(instantEncoder{size: 40}),
		encoding.WithBinaryCheck(func(command string) deps.Status {
			return deps.Status{Name: "FFmpeg", Command: command, Available: true}
		}),
		encoding.WithProber(func(context.Context, string) (float64, bool) { return 60, true }),
	))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	d, err := New(cfg, eng, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.depCheck = func(*config.Config) []deps.Status {
		return []deps.Status{{Name: "FFmpeg", Command: "ffmpeg", Available: true}}
	}
	ts := httptest.NewServer(d.api.server.Handler)
	t.Cleanup(func() {
		ts.Close()
		d.Close()
	})
	return &testServer{cfg: cfg, daemon: d, http: ts}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.http.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.http.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for name, data := range files {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return buf, w.FormDataContentType()
}

func TestUploadConfirmConvertsAndListsJob(t *testing.T) {
	srv := newTestServer(t)
	body, ctype := multipartBody(t, map[string]string{"confirm": "true", "resolution": "720p"}, map[string][]byte{"clip.mkv": make([]byte, 100)})

	resp := srv.do(t, http.MethodPost, "/api/uploads", body, ctype)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	result := decode[api.UploadResult](t, resp)
	if len(result.Jobs) != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected upload result %+v", result)
	}
	job := result.Jobs[0]
	if job.Resolution != "720p" || job.OriginalName != "clip.mkv" {
		t.Fatalf("unexpected job %+v", job)
	}

	done := testsupport.WaitForStatus(t, srv.daemon.engine.Store(), job.ID, queue.StatusComplete)
	if done.OutputName != "converted_"+strings.TrimSuffix(job.InputName, ".mkv")+".mp4" {
		t.Fatalf("unexpected output name %q", done.OutputName)
	}

	list := decode[api.JobListResponse](t, srv.do(t, http.MethodGet, "/api/jobs?status=complete", nil, ""))
	if len(list.Items) != 1 || list.Items[0].ConvertedSizeBytes != 40 {
		t.Fatalf("unexpected job list %+v", list.Items)
	}

	out := srv.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/output", nil, "")
	data, _ := io.ReadAll(out.Body)
	if out.StatusCode != http.StatusOK || len(data) != 40 {
		t.Fatalf("unexpected output download: %d, %d bytes", out.StatusCode, len(data))
	}

	card := decode[api.CapacityCard](t, srv.do(t, http.MethodGet, "/api/capacity", nil, ""))
	if card.UsedBytes != 140 {
		t.Fatalf("expected input+output charged, got %d", card.UsedBytes)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	srv := newTestServer(t)
	body, ctype := multipartBody(t, map[string]string{"confirm": "true"}, map[string][]byte{"notes.txt": []byte("hi")})
	resp := srv.do(t, http.MethodPost, "/api/uploads", body, ctype)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	result := decode[api.UploadResult](t, resp)
	if len(result.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", result)
	}
	if len(srv.daemon.engine.List()) != 0 {
		t.Fatal("expected no job to be created")
	}
}

func TestUploadOverQuotaIsRejected(t *testing.T) {
	srv := newTestServer(t, testsupport.WithCapacityGiB(50.0/(1<<30)))
	body, ctype := multipartBody(t, map[string]string{"confirm": "true"}, map[string][]byte{"big.mp4": make([]byte, 100)})
	resp := srv.do(t, http.MethodPost, "/api/uploads", body, ctype)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	if card := srv.daemon.engine.Capacity(); card.Used != 0 {
		t.Fatalf("expected nothing charged, got %d", card.Used)
	}
}

func TestStagedUploadsConfirmAndCancel(t *testing.T) {
	srv := newTestServer(t)
	body, ctype := multipartBody(t, nil, map[string][]byte{"a.mov": make([]byte, 10), "b.webm": make([]byte, 20)})
	resp := srv.do(t, http.MethodPost, "/api/uploads", body, ctype)
	staged := decode[api.UploadResult](t, resp)
	if len(staged.Staged) != 2 || len(staged.Jobs) != 0 {
		t.Fatalf("expected two staged files, got %+v", staged)
	}

	pending := decode[api.UploadsResponse](t, srv.do(t, http.MethodGet, "/api/uploads", nil, ""))
	if len(pending.Items) != 2 {
		t.Fatalf("expected 2 pending uploads, got %d", len(pending.Items))
	}

	confirm := srv.do(t, http.MethodPost, "/api/uploads/confirm", strings.NewReader(`{"quality":"Standard"}`), "application/json")
	confirmed := decode[api.UploadResult](t, confirm)
	if len(confirmed.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %+v", confirmed)
	}
	for _, job := range confirmed.Jobs {
		if job.Quality != "Standard" {
			t.Fatalf("expected Standard quality, got %q", job.Quality)
		}
	}

	body, ctype = multipartBody(t, nil, map[string][]byte{"c.avi": make([]byte, 5)})
	srv.do(t, http.MethodPost, "/api/uploads", body, ctype)
	cancelled := decode[api.CancelUploadsResponse](t, srv.do(t, http.MethodDelete, "/api/uploads", nil, ""))
	if cancelled.Cancelled != 1 {
		t.Fatalf("expected 1 cancelled, got %d", cancelled.Cancelled)
	}
}

func TestJobEndpointsReportMissingJobs(t *testing.T) {
	srv := newTestServer(t)
	if resp := srv.do(t, http.MethodGet, "/api/jobs/nope", nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for describe, got %d", resp.StatusCode)
	}
	if resp := srv.do(t, http.MethodPost, "/api/jobs/nope/retry", nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for retry, got %d", resp.StatusCode)
	}
	resp := srv.do(t, http.MethodDelete, "/api/jobs/nope", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for remove, got %d", resp.StatusCode)
	}
	if got := decode[api.RemoveResult](t, resp); got.Outcome != api.RemoveOutcomeNotFound {
		t.Fatalf("unexpected outcome %q", got.Outcome)
	}
	if resp := srv.do(t, http.MethodGet, "/api/jobs?status=bogus", nil, ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad filter, got %d", resp.StatusCode)
	}
}

func TestRetryCompletedJobConflicts(t *testing.T) {
	srv := newTestServer(t)
	body, ctype := multipartBody(t, map[string]string{"confirm": "1"}, map[string][]byte{"clip.mp4": make([]byte, 10)})
	result := decode[api.UploadResult](t, srv.do(t, http.MethodPost, "/api/uploads", body, ctype))
	id := result.Jobs[0].ID
	testsupport.WaitForStatus(t, srv.daemon.engine.Store(), id, queue.StatusComplete)

	if resp := srv.do(t, http.MethodPost, "/api/jobs/"+id+"/retry", nil, ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	removed := decode[api.RemoveResult](t, srv.do(t, http.MethodDelete, "/api/jobs/"+id, nil, ""))
	if removed.Outcome != api.RemoveOutcomeRemoved {
		t.Fatalf("expected removed, got %q", removed.Outcome)
	}
	if used := srv.daemon.engine.Capacity().Used; used != 0 {
		t.Fatalf("expected capacity released, got %d", used)
	}
}

func TestSettingsUpdateValidatesBeforeApplying(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.do(t, http.MethodPut, "/api/settings", strings.NewReader(`{"resolution":"480p","quality":"Ultra"}`), "application/json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	current := decode[api.Settings](t, srv.do(t, http.MethodGet, "/api/settings", nil, ""))
	if current.Resolution != "Original" {
		t.Fatalf("expected resolution unchanged, got %q", current.Resolution)
	}

	updated := decode[api.Settings](t, srv.do(t, http.MethodPut, "/api/settings", strings.NewReader(`{"resolution":"480p"}`), "application/json"))
	if updated.Resolution != "480p" || updated.Quality != "High" {
		t.Fatalf("unexpected settings %+v", updated)
	}
}

func TestStatusPayload(t *testing.T) {
	srv := newTestServer(t)
	status := decode[api.DaemonStatus](t, srv.do(t, http.MethodGet, "/api/status", nil, ""))
	if status.Running {
		t.Fatal("daemon was not started")
	}
	if len(status.Dependencies) != 1 || !status.Dependencies[0].Available {
		t.Fatalf("unexpected dependencies %+v", status.Dependencies)
	}
	if len(status.JobStats) != 4 {
		t.Fatalf("expected stats for every status, got %v", status.JobStats)
	}
	if len(status.Checks) != 2 {
		t.Fatalf("expected directory checks, got %+v", status.Checks)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.http.URL+"/api/capacity", nil)
	req.Header.Set("X-Request-ID", "abc")
	resp, err := srv.http.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") != "abc" {
		t.Fatalf("expected request id echo, got %q", resp.Header.Get("X-Request-ID"))
	}
}
