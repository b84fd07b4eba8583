package subtitles

import (
	"fmt"
	"os"
	"strings"
)

// ParseCues reads WebVTT, SubRip, or raw provider cue text. Multi-line cue
// text is joined with a single space. Blocks whose timecode line fails to
// parse are dropped.
func ParseCues(text string) []Segment {
	return parseBlocks(text, " ")
}

// ParseContent reads WebVTT or SubRip text keeping cue line breaks intact.
func ParseContent(text string) []Segment {
	return parseBlocks(text, "\n")
}

// ParseFile reads a .vtt or .srt file for scoring, preserving line breaks.
func ParseFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	return ParseContent(string(data)), nil
}

func parseBlocks(text, joiner string) []Segment {
	content := strings.ReplaceAll(text, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	var segments []Segment
	for _, block := range splitBlocks(content) {
		lines := strings.Split(block, "\n")
		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			// Header, NOTE, STYLE, or stray text.
			continue
		}
		start, end, ok := parseTimingLine(lines[timing])
		if !ok {
			continue
		}
		var textLines []string
		for _, line := range lines[timing+1:] {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				textLines = append(textLines, trimmed)
			}
		}
		segments = append(segments, Segment{
			Start: start,
			End:   end,
			Text:  strings.Join(textLines, joiner),
		})
	}
	return segments
}

func splitBlocks(content string) []string {
	var blocks []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func parseTimingLine(line string) (float64, float64, bool) {
	left, right, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, false
	}
	start, err := ParseTimecode(left)
	if err != nil {
		return 0, 0, false
	}
	// WebVTT cue settings may follow the end timestamp.
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, false
	}
	end, err := ParseTimecode(fields[0])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
