// Package linebreak chooses where to split subtitle text into two lines.
//
// Word-based scripts score every split point with punctuation, function-word
// and balance signals from the language's word lists. Character-based
// scripts (CJK, Thai without spaces) pick the split nearest the midpoint that
// respects line-start and line-end prohibition rules.
package linebreak
