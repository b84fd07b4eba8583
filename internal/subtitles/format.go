package subtitles

import (
	"fmt"
	"strings"
)

// Format names accepted by Render.
const (
	FormatNameVTT = "vtt"
	FormatNameSRT = "srt"
)

// FormatVTT renders segments as WebVTT.
func FormatVTT(segments []Segment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		sb.WriteString(FormatVTTTimestamp(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatVTTTimestamp(seg.End))
		sb.WriteByte('\n')
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// FormatSRT renders segments as SubRip with 1-based cue numbers.
func FormatSRT(segments []Segment) string {
	var sb strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", i+1, FormatSRTTimestamp(seg.Start), FormatSRTTimestamp(seg.End), seg.Text)
	}
	return sb.String()
}

// Render formats segments in the named format.
func Render(format string, segments []Segment) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatNameVTT, "":
		return FormatVTT(segments), nil
	case FormatNameSRT:
		return FormatSRT(segments), nil
	default:
		return "", fmt.Errorf("unsupported subtitle format %q", format)
	}
}
