package encoding

import (
	"path/filepath"
	"strings"

	"vidconv/internal/ingest"
	"vidconv/internal/media/ffmpeg"
	"vidconv/internal/preset"
	"vidconv/internal/queue"
)

// OutputName derives the converted file name for a staged input.
func OutputName(inputName string) string {
	base := filepath.Base(strings.TrimSpace(inputName))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return ingest.ConvertedPrefix + stem + ".mp4"
}

// Plan is the resolved encoder invocation for one job.
type Plan struct {
	InputPath   string
	OutputName  string
	OutputPath  string
	ScaleFilter string
	RateControl preset.RateControl
	// Duration in seconds; zero when unknown, which disables progress.
	Duration float64
}

// BuildPlan resolves paths and encoder parameters for job.
func BuildPlan(stagingDir string, job queue.Job, duration float64) Plan {
	outputName := OutputName(job.InputName)
	return Plan{
		InputPath:   filepath.Join(stagingDir, job.InputName),
		OutputName:  outputName,
		OutputPath:  filepath.Join(stagingDir, outputName),
		ScaleFilter: job.Resolution.ScaleFilter(),
		RateControl: job.Quality.RateControl(),
		Duration:    duration,
	}
}

// StreamsProgress reports whether the encoder should emit progress lines.
func (p Plan) StreamsProgress() bool {
	return p.Duration > 0
}

// Request converts the plan into an ffmpeg request.
func (p Plan) Request(videoCodec, audioCodec string) ffmpeg.Request {
	return ffmpeg.Request{
		InputPath:   p.InputPath,
		OutputPath:  p.OutputPath,
		ScaleFilter: p.ScaleFilter,
		VideoCodec:  videoCodec,
		AudioCodec:  audioCodec,
		CRF:         p.RateControl.CRF,
		Preset:      p.RateControl.Preset,
		Progress:    p.StreamsProgress(),
	}
}
