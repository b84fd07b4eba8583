// Package language provides language code normalization and the per-language
// subtitle profiles used by the line breaker, optimizer, and quality scorer.
//
// Codes are accepted as ISO 639-1, ISO 639-2 (including bibliographic
// variants), English names, or BCP-47 tags such as "pt-BR" and "zh-Hans".
// Unknown codes resolve to DefaultProfile.
package language
