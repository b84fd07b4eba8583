package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimecode converts "HH:MM:SS.mmm", "HH:MM:SS,mmm", or "MM:SS.mmm" into
// seconds.
func ParseTimecode(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	normalized := strings.ReplaceAll(value, ",", ".")
	hms := strings.Split(normalized, ":")
	if len(hms) < 2 || len(hms) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var hours int
	if len(hms) == 3 {
		h, err := strconv.Atoi(hms[0])
		if err != nil || h < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		hours = h
		hms = hms[1:]
	}
	minutes, err := strconv.Atoi(hms[0])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	secPart, fracPart, _ := strings.Cut(hms[1], ".")
	seconds, err := strconv.Atoi(secPart)
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var millis float64
	if fracPart != "" {
		frac, err := strconv.Atoi(fracPart)
		if err != nil || frac < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		millis = float64(frac) / math.Pow10(len(fracPart))
	}
	return float64(hours*3600+minutes*60+seconds) + millis, nil
}

// FormatVTTTimestamp renders seconds as HH:MM:SS.mmm.
func FormatVTTTimestamp(seconds float64) string {
	return formatTimestamp(seconds, '.')
}

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm.
func FormatSRTTimestamp(seconds float64) string {
	return formatTimestamp(seconds, ',')
}

func formatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	totalSeconds := total / 1000
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}
