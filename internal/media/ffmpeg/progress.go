package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// ParseProgress extracts the elapsed output time from one line of ffmpeg's
// -progress stream. ffmpeg reports both out_time_ms and out_time_us in
// microseconds.
func ParseProgress(line string) (time.Duration, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch strings.TrimSpace(key) {
	case "out_time_ms", "out_time_us":
	default:
		return 0, false
	}
	value = strings.TrimSpace(value)
	if value == "" || !isDigits(value) {
		return 0, false
	}
	micros, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(micros) * time.Microsecond, true
}

// IsProgressEnd reports the final marker of a -progress block.
func IsProgressEnd(line string) bool {
	return strings.TrimSpace(line) == "progress=end"
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
