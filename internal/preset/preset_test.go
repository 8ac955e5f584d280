package preset

import "testing"

func TestScaleFilter(t *testing.T) {
	cases := map[Resolution]string{
		ResolutionOriginal: "",
		Resolution4K:       "scale=-2:2160",
		Resolution1080p:    "scale=-2:1080",
		Resolution720p:     "scale=-2:720",
		Resolution480p:     "scale=-2:480",
		Resolution("8K"):   "",
	}
	for res, want := range cases {
		if got := res.ScaleFilter(); got != want {
			t.Fatalf("%s: expected %q, got %q", res, want, got)
		}
	}
}

func TestRateControl(t *testing.T) {
	if rc := QualityStandard.RateControl(); rc.CRF != 28 || rc.Preset != "fast" {
		t.Fatalf("unexpected standard rate control %+v", rc)
	}
	if rc := QualityHigh.RateControl(); rc.CRF != 18 || rc.Preset != "slow" {
		t.Fatalf("unexpected high rate control %+v", rc)
	}
	if rc := QualityMaximum.RateControl(); rc.CRF != 15 || rc.Preset != "veryslow" {
		t.Fatalf("unexpected maximum rate control %+v", rc)
	}
	if rc := Quality("weird").RateControl(); rc != DefaultRateControl {
		t.Fatalf("expected default rate control, got %+v", rc)
	}
}

func TestParse(t *testing.T) {
	if r, err := ParseResolution(" 1080P "); err != nil || r != Resolution1080p {
		t.Fatalf("ParseResolution: %v %v", r, err)
	}
	if _, err := ParseResolution("1440p"); err == nil {
		t.Fatal("expected error for unknown resolution")
	}
	if q, err := ParseQuality("maximum"); err != nil || q != QualityMaximum {
		t.Fatalf("ParseQuality: %v %v", q, err)
	}
	if _, err := ParseQuality(""); err == nil {
		t.Fatal("expected error for empty quality")
	}
}
