package linebreak

import (
	"strings"

	"cueforge/internal/language"
)

// Score weights for a candidate split.
const (
	sentenceEndBonus     = 100.0
	clauseEndBonus       = 60.0
	closingBonus         = 50.0
	conjunctionBonus     = 40.0
	dashBonus            = 35.0
	prepositionBonus     = 15.0
	articlePenalty       = -50.0
	negationPenalty      = -45.0
	prepositionPenalty   = -40.0
	auxiliaryPenalty     = -35.0
	determinerPenalty    = -30.0
	particlePenalty      = -25.0
	maxBalanceBonus      = 15.0
	bottomHeavyBonus     = 2.0
	overflowLine2Penalty = -200.0
)

// Signals describes the linguistic features at a split point.
type Signals struct {
	SentenceEnd       bool
	ClauseEnd         bool
	ClosingMark       bool
	TrailingDash      bool
	StartsConjunction bool
	StartsPreposition bool
	EndsArticle       bool
	EndsNegation      bool
	EndsPreposition   bool
	EndsAuxiliary     bool
	EndsDeterminer    bool
	SeparatedParticle bool
}

const closers = "\"')]}”’»"

// Analyze inspects the boundary between lastWord (end of line 1) and
// firstWord (start of line 2).
func Analyze(lastWord, firstWord, lang string) Signals {
	var s Signals
	last := strings.TrimSpace(lastWord)
	first := strings.TrimSpace(firstWord)

	bare := strings.TrimRight(last, closers)
	s.ClosingMark = bare != last
	switch {
	case strings.HasSuffix(bare, "..."), strings.HasSuffix(bare, "…"),
		strings.HasSuffix(bare, "."), strings.HasSuffix(bare, "!"), strings.HasSuffix(bare, "?"):
		s.SentenceEnd = true
	case strings.HasSuffix(bare, ","), strings.HasSuffix(bare, ";"), strings.HasSuffix(bare, ":"):
		s.ClauseEnd = true
	case strings.HasSuffix(bare, "-"), strings.HasSuffix(bare, "–"), strings.HasSuffix(bare, "—"):
		s.TrailingDash = true
	}

	if first != "" {
		s.StartsConjunction = language.IsWord(lang, language.Conjunction, first)
		s.StartsPreposition = language.IsWord(lang, language.Preposition, first)
	}

	punctuated := s.SentenceEnd || s.ClauseEnd || s.TrailingDash || s.ClosingMark
	if last == "" || punctuated {
		return s
	}
	s.EndsArticle = language.IsWord(lang, language.Article, last)
	s.EndsNegation = language.IsWord(lang, language.Negation, last)
	s.EndsPreposition = language.IsWord(lang, language.Preposition, last)
	s.EndsAuxiliary = language.IsWord(lang, language.Auxiliary, last)
	s.EndsDeterminer = language.IsWord(lang, language.Determiner, last)
	if first != "" && language.IsWord(lang, language.Particle, first) {
		lastIsFunction := s.EndsArticle || s.EndsPreposition || language.IsWord(lang, language.Conjunction, last)
		s.SeparatedParticle = !lastIsFunction
	}
	return s
}

// Points converts the signals into a split score contribution.
func (s Signals) Points() float64 {
	var score float64
	if s.SentenceEnd {
		score += sentenceEndBonus
	}
	if s.ClauseEnd {
		score += clauseEndBonus
	}
	if s.ClosingMark {
		score += closingBonus
	}
	if s.StartsConjunction {
		score += conjunctionBonus
	}
	if s.TrailingDash {
		score += dashBonus
	}
	if s.StartsPreposition {
		score += prepositionBonus
	}
	// Function-word penalties do not stack; the strongest applies.
	switch {
	case s.EndsArticle:
		score += articlePenalty
	case s.EndsNegation:
		score += negationPenalty
	case s.EndsPreposition:
		score += prepositionPenalty
	case s.EndsAuxiliary:
		score += auxiliaryPenalty
	case s.EndsDeterminer:
		score += determinerPenalty
	}
	if s.SeparatedParticle {
		score += particlePenalty
	}
	return score
}
