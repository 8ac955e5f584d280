package encoding

import (
	"path/filepath"
	"testing"

	"vidconv/internal/preset"
	"vidconv/internal/queue"
)

func TestOutputName(t *testing.T) {
	cases := map[string]string{
		"movie_1234.mkv":      "converted_movie_1234.mp4",
		"clip.final_0001.MOV": "converted_clip.final_0001.mp4",
		"noext":               "converted_noext.mp4",
	}
	for input, want := range cases {
		if got := OutputName(input); got != want {
			t.Fatalf("OutputName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildPlanUsesPresets(t *testing.T) {
	job := queue.Job{InputName: "a_1111.mkv", Resolution: preset.Resolution720p, Quality: preset.QualityMaximum}
	plan := BuildPlan("/staging", job, 60)
	if plan.InputPath != filepath.Join("/staging", "a_1111.mkv") {
		t.Fatalf("unexpected input path %q", plan.InputPath)
	}
	if plan.OutputPath != filepath.Join("/staging", "converted_a_1111.mp4") {
		t.Fatalf("unexpected output path %q", plan.OutputPath)
	}
	if plan.ScaleFilter != "scale=-2:720" {
		t.Fatalf("unexpected scale %q", plan.ScaleFilter)
	}
	if plan.RateControl.CRF != 15 || plan.RateControl.Preset != "veryslow" {
		t.Fatalf("unexpected rate control %+v", plan.RateControl)
	}
	req := plan.Request("libx264", "aac")
	if !req.Progress || req.CRF != 15 {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestBuildPlanOriginalUnknownDuration(t *testing.T) {
	job := queue.Job{InputName: "a.mkv", Resolution: preset.ResolutionOriginal, Quality: preset.Quality("Custom")}
	plan := BuildPlan("/staging", job, 0)
	if plan.ScaleFilter != "" {
		t.Fatalf("expected no scale filter, got %q", plan.ScaleFilter)
	}
	if plan.RateControl != preset.DefaultRateControl {
		t.Fatalf("expected default rate control, got %+v", plan.RateControl)
	}
	if plan.StreamsProgress() {
		t.Fatal("expected progress disabled for unknown duration")
	}
}
