package linebreak

import (
	"math"
	"strings"
)

// Characters that must not begin a line.
var noLineStart = runeSet(")]}）］｝」』】〕〉》〙〗、。，．・：；？！ー…‥々〻ぁぃぅぇぉっゃゅょゎァィゥェォッャュョヮヵヶ゛゜ヽヾゝゞ,.!?:;'\"”’»")

// Characters that must not end a line.
var noLineEnd = runeSet("([{（［｛「『【〔〈《〘〖“‘«")

func runeSet(chars string) map[rune]struct{} {
	out := make(map[rune]struct{})
	for _, r := range chars {
		out[r] = struct{}{}
	}
	return out
}

// breakCharacters splits unspaced text on a character index nearest the
// midpoint, ties going to the longer second line.
func breakCharacters(text string, cpl int) []string {
	r := []rune(text)
	n := len(r)
	if n < 2 {
		return []string{text}
	}
	mid := float64(n) / 2

	pick := func(requireFit bool) int {
		best := -1
		bestDist := math.Inf(1)
		for k := 1; k < n; k++ {
			if _, bad := noLineStart[r[k]]; bad {
				continue
			}
			if _, bad := noLineEnd[r[k-1]]; bad {
				continue
			}
			if k > cpl {
				continue
			}
			if requireFit && n-k > cpl {
				continue
			}
			dist := math.Abs(float64(k) - mid)
			// Iterating k upward, strict comparison keeps the smaller k on
			// ties, which gives the bottom-heavy split.
			if dist < bestDist {
				best = k
				bestDist = dist
			}
		}
		return best
	}

	k := pick(true)
	if k < 0 {
		k = pick(false)
	}
	if k < 0 {
		return hardSplit(text, cpl)
	}
	return []string{strings.TrimSpace(string(r[:k])), strings.TrimSpace(string(r[k:]))}
}
