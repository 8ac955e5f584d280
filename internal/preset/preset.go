// Package preset holds the encoding parameter tables behind the user-facing
// resolution and quality choices.
package preset

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolution names a target output height.
type Resolution string

const (
	ResolutionOriginal Resolution = "Original"
	Resolution4K       Resolution = "4K"
	Resolution1080p    Resolution = "1080p"
	Resolution720p     Resolution = "720p"
	Resolution480p     Resolution = "480p"
)

var resolutionHeights = map[Resolution]int{
	ResolutionOriginal: 0,
	Resolution4K:       2160,
	Resolution1080p:    1080,
	Resolution720p:     720,
	Resolution480p:     480,
}

// ResolutionHelp explains the resolution choice to users.
const ResolutionHelp = "Resolution controls output dimensions. 'Original' keeps the source size; 4K/1080p/720p/480p scale the video."

// Resolutions lists the selectable resolutions in display order.
func Resolutions() []Resolution {
	return []Resolution{ResolutionOriginal, Resolution4K, Resolution1080p, Resolution720p, Resolution480p}
}

// ParseResolution matches value case-insensitively against the known options.
func ParseResolution(value string) (Resolution, error) {
	trimmed := strings.TrimSpace(value)
	for _, r := range Resolutions() {
		if strings.EqualFold(trimmed, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown resolution %q (expected one of %s)", value, joinResolutions())
}

// Height returns the target height in pixels, or 0 to keep the source size.
func (r Resolution) Height() int {
	return resolutionHeights[r]
}

// ScaleFilter returns the ffmpeg -vf argument for r, or "" when the source
// dimensions are kept. Width is derived to preserve aspect ratio and stay even.
func (r Resolution) ScaleFilter() string {
	h := r.Height()
	if h <= 0 {
		return ""
	}
	return "scale=-2:" + strconv.Itoa(h)
}

func joinResolutions() string {
	names := make([]string, 0, len(resolutionHeights))
	for _, r := range Resolutions() {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}

// Quality names a rate-control preset.
type Quality string

const (
	QualityStandard Quality = "Standard"
	QualityHigh     Quality = "High"
	QualityMaximum  Quality = "Maximum"
)

// QualityHelp explains the quality choice to users.
const QualityHelp = "Quality presets control compression: Standard (faster, smaller), High (balanced), Maximum (best quality, slowest)."

// RateControl is the x264 constant-rate-factor and speed preset pair.
type RateControl struct {
	CRF    int
	Preset string
}

// DefaultRateControl applies to any quality outside the table.
var DefaultRateControl = RateControl{CRF: 23, Preset: "medium"}

var qualityRates = map[Quality]RateControl{
	QualityStandard: {CRF: 28, Preset: "fast"},
	QualityHigh:     {CRF: 18, Preset: "slow"},
	QualityMaximum:  {CRF: 15, Preset: "veryslow"},
}

// Qualities lists the selectable qualities in display order.
func Qualities() []Quality {
	return []Quality{QualityStandard, QualityHigh, QualityMaximum}
}

// ParseQuality matches value case-insensitively against the known options.
func ParseQuality(value string) (Quality, error) {
	trimmed := strings.TrimSpace(value)
	for _, q := range Qualities() {
		if strings.EqualFold(trimmed, string(q)) {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown quality %q (expected Standard, High, or Maximum)", value)
}

// RateControl returns the encoder settings for q.
func (q Quality) RateControl() RateControl {
	if rc, ok := qualityRates[q]; ok {
		return rc
	}
	return DefaultRateControl
}
