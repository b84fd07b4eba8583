package linebreak

import (
	"math"
	"strings"
	"unicode/utf8"

	"cueforge/internal/language"
	"cueforge/internal/subtitles"
)

// Break returns one or two lines for text using the profile for lang.
func Break(text, lang string) []string {
	return BreakWith(text, language.ProfileFor(lang))
}

// BreakWith returns one or two lines for text. Text that already fits on one
// line is returned unchanged apart from whitespace normalization.
func BreakWith(text string, profile language.Profile) []string {
	flat := subtitles.Flatten(text)
	if flat == "" {
		return nil
	}
	cpl := profile.MaxCPL
	if cpl <= 0 || runeLen(flat) <= cpl {
		return []string{flat}
	}
	if profile.UsesCharacterBreaks() && !strings.Contains(flat, " ") {
		return breakCharacters(flat, cpl)
	}

	tokens := strings.Fields(flat)
	if len(tokens) == 1 {
		return hardSplit(flat, cpl)
	}

	best := -1
	bestScore := math.Inf(-1)
	for i := 0; i < len(tokens)-1; i++ {
		line1 := strings.Join(tokens[:i+1], " ")
		if runeLen(line1) > cpl {
			break
		}
		line2 := strings.Join(tokens[i+1:], " ")
		score := ScoreSplit(line1, line2, profile)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return hardSplit(flat, cpl)
	}
	return []string{
		strings.Join(tokens[:best+1], " "),
		strings.Join(tokens[best+1:], " "),
	}
}

// ScoreSplit rates a two-line split. Higher is better.
func ScoreSplit(line1, line2 string, profile language.Profile) float64 {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	score := Analyze(lastField(line1), firstField(line2), profile.Code).Points()

	len1, len2 := runeLen(line1), runeLen(line2)
	if total := len1 + len2; total > 0 {
		diff := math.Abs(float64(len1 - len2))
		score += maxBalanceBonus * (1 - diff/float64(total))
	}
	if len2 >= len1 {
		score += bottomHeavyBonus
	}
	if profile.MaxCPL > 0 && len2 > profile.MaxCPL {
		score += overflowLine2Penalty
	}
	return score
}

// Wrap greedily wraps text into lines of at most cpl characters. Words longer
// than cpl, and text without spaces, are cut on character boundaries.
func Wrap(text string, cpl int) []string {
	flat := subtitles.Flatten(text)
	if flat == "" {
		return nil
	}
	if cpl <= 0 || runeLen(flat) <= cpl {
		return []string{flat}
	}
	var lines []string
	var current string
	for _, word := range strings.Fields(flat) {
		for runeLen(word) > cpl {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			r := []rune(word)
			lines = append(lines, string(r[:cpl]))
			word = string(r[cpl:])
		}
		switch {
		case current == "":
			current = word
		case runeLen(current)+1+runeLen(word) <= cpl:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// Fits reports whether every line of text is within cpl characters.
func Fits(text string, cpl int) bool {
	for _, line := range strings.Split(text, "\n") {
		if runeLen(line) > cpl {
			return false
		}
	}
	return true
}

func hardSplit(text string, cpl int) []string {
	r := []rune(text)
	cut := min(cpl, len(r)-1)
	if cut <= 0 {
		return []string{text}
	}
	return []string{
		strings.TrimSpace(string(r[:cut])),
		strings.TrimSpace(string(r[cut:])),
	}
}

func lastField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
