package api

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidconv/internal/capacity"
	"vidconv/internal/deps"
	"vidconv/internal/engine"
	"vidconv/internal/ingest"
	"vidconv/internal/preflight"
	"vidconv/internal/preset"
	"vidconv/internal/queue"
)

const bytesPerGiB = float64(1 << 30)

var titleCaser = cases.Title(language.English)

// Label renders an internal enum such as "near_limit" for display.
func Label(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return ""
	}
	return titleCaser.String(value)
}

// FormatSize renders a byte count with binary units.
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FromJob converts a job snapshot to its API representation.
func FromJob(job queue.Job) Job {
	dto := Job{
		ID:           job.ID,
		InputName:    job.InputName,
		OriginalName: job.OriginalName,
		OutputName:   job.OutputName,
		Status:       string(job.Status),
		StatusLabel:  Label(string(job.Status)),
		Progress:     job.Progress,
		Resolution:   string(job.Resolution),
		Quality:      string(job.Quality),
		ErrorMessage: job.ErrorMessage,
		SizeBytes:    job.InputSizeBytes,
		SizeStr:      FormatSize(job.InputSizeBytes),
		Attempt:      job.Attempt,
		PublishedKey: job.PublishedKey,
		PublishError: job.PublishError,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
		StartedAt:    formatTime(job.StartedAt),
		FinishedAt:   formatTime(job.FinishedAt),
	}
	if job.Status == queue.StatusComplete {
		dto.ConvertedSizeBytes = job.OutputSizeBytes
		dto.ConvertedSizeStr = FormatSize(job.OutputSizeBytes)
	}
	if !job.CreatedAt.IsZero() {
		dto.UploadedAt = job.CreatedAt.Local().Format(uploadedAtFormat)
	}
	return dto
}

// FromJobs converts job snapshots into API DTOs, keeping their order.
func FromJobs(jobs []queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromCapacity converts a capacity snapshot into a display card.
func FromCapacity(snap capacity.Snapshot) CapacityCard {
	return CapacityCard{
		LimitBytes:     snap.Limit,
		UsedBytes:      snap.Used,
		RemainingBytes: snap.Remaining,
		Percent:        snap.Percent,
		UsedGiB:        float64(snap.Used) / bytesPerGiB,
		LimitGiB:       float64(snap.Limit) / bytesPerGiB,
		LimitStr:       FormatSize(snap.Limit),
		UsedStr:        FormatSize(snap.Used),
		RemainingStr:   FormatSize(snap.Remaining),
		Level:          string(snap.Level),
		LevelLabel:     Label(string(snap.Level)),
	}
}

// FromSettings converts the engine selection, adding option lists and help.
func FromSettings(s engine.Settings) Settings {
	resolutions := make([]string, 0, len(preset.Resolutions()))
	for _, r := range preset.Resolutions() {
		resolutions = append(resolutions, string(r))
	}
	qualities := make([]string, 0, len(preset.Qualities()))
	for _, q := range preset.Qualities() {
		qualities = append(qualities, string(q))
	}
	return Settings{
		Resolution:     string(s.Resolution),
		Quality:        string(s.Quality),
		Resolutions:    resolutions,
		Qualities:      qualities,
		ResolutionHelp: preset.ResolutionHelp,
		QualityHelp:    preset.QualityHelp,
	}
}

// FromStoredFiles converts staged uploads.
func FromStoredFiles(files []ingest.StoredFile) []StagedUpload {
	out := make([]StagedUpload, 0, len(files))
	for _, f := range files {
		out = append(out, StagedUpload{
			StoredName:   f.Name,
			OriginalName: f.OriginalName,
			SizeBytes:    f.Size,
			SizeStr:      FormatSize(f.Size),
		})
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}

// FromPreflight converts readiness checks.
func FromPreflight(results []preflight.Result) []CheckResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// MergeJobStats returns counts for every status, including zeros.
func MergeJobStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.Statuses()))
	for _, status := range queue.Statuses() {
		out[string(status)] = stats[status]
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses an API timestamp, returning the zero time on failure.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
