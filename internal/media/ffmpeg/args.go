package ffmpeg

import "strconv"

// Request describes one conversion.
type Request struct {
	InputPath   string
	OutputPath  string
	ScaleFilter string
	VideoCodec  string
	AudioCodec  string
	CRF         int
	Preset      string
	// Progress enables the -progress pipe:1 stream on stdout.
	Progress bool
}

const (
	defaultVideoCodec = "libx264"
	defaultAudioCodec = "aac"
)

// BuildArgs returns the ffmpeg argument list for req.
func BuildArgs(req Request) []string {
	videoCodec := req.VideoCodec
	if videoCodec == "" {
		videoCodec = defaultVideoCodec
	}
	audioCodec := req.AudioCodec
	if audioCodec == "" {
		audioCodec = defaultAudioCodec
	}

	args := []string{"-hide_banner", "-nostdin", "-y", "-i", req.InputPath}
	if req.ScaleFilter != "" {
		args = append(args, "-vf", req.ScaleFilter)
	}
	args = append(args, "-c:v", videoCodec)
	if req.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(req.CRF))
	}
	if req.Preset != "" {
		args = append(args, "-preset", req.Preset)
	}
	args = append(args, "-c:a", audioCodec)
	if req.Progress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	args = append(args, req.OutputPath)
	return args
}
