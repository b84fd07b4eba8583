package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"cueforge/internal/quality"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 22

var statusKinds = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// statusBlock accumulates section headers and status lines for one report.
type statusBlock struct {
	colorize bool
	lines    []string
}

func newStatusBlock(w io.Writer) *statusBlock {
	return &statusBlock{colorize: shouldColorize(w)}
}

func (b *statusBlock) section(title string) {
	if len(b.lines) > 0 {
		b.lines = append(b.lines, "")
	}
	b.lines = append(b.lines, renderSectionHeader(title, b.colorize)...)
}

func (b *statusBlock) line(label string, kind statusKind, message string) {
	b.lines = append(b.lines, renderStatusLine(label, kind, message, b.colorize))
}

func (b *statusBlock) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	k, ok := statusKinds[kind]
	if !ok {
		k = statusKinds[statusInfo]
	}
	text := "[" + k.label + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", text)
	if colorize {
		return k.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	if colorize {
		return []string{ansiBlue + line + ansiReset, ansiBlue + rule + ansiReset}
	}
	return []string{line, rule}
}

// qualityKind colors a gate result: failing is an error, anything short of
// Excellent is a warning.
func qualityKind(result quality.GateResult) statusKind {
	switch {
	case !result.Pass:
		return statusError
	case result.QualityLevel != quality.LevelExcellent:
		return statusWarn
	default:
		return statusOK
	}
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func formatGateFailure(score, threshold float64) string {
	return fmt.Sprintf("quality gate failed: score %.1f below threshold %.1f", score, threshold)
}
