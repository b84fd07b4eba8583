package quality

import "math"

// Severity ranks a violation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Category groups violations for the report breakdown.
type Category string

const (
	CategoryContent      Category = "content"
	CategoryReadingSpeed Category = "reading_speed"
	CategoryLineLength   Category = "line_length"
	CategoryLineCount    Category = "line_count"
	CategoryDuration     Category = "duration"
	CategoryLineBreaking Category = "line_breaking"
	CategoryLineBalance  Category = "line_balance"
	CategoryGaps         Category = "gaps"
	CategorySpeaker      Category = "speaker"
	CategoryConfidence   Category = "confidence"
)

// categoryOrder fixes the order of the report breakdown.
var categoryOrder = []Category{
	CategoryContent,
	CategoryReadingSpeed,
	CategoryLineLength,
	CategoryLineCount,
	CategoryDuration,
	CategoryLineBreaking,
	CategoryLineBalance,
	CategoryGaps,
	CategorySpeaker,
	CategoryConfidence,
}

// Label returns a human-readable category name.
func (c Category) Label() string {
	switch c {
	case CategoryContent:
		return "Content"
	case CategoryReadingSpeed:
		return "Reading speed"
	case CategoryLineLength:
		return "Line length"
	case CategoryLineCount:
		return "Line count"
	case CategoryDuration:
		return "Duration"
	case CategoryLineBreaking:
		return "Line breaking"
	case CategoryLineBalance:
		return "Line balance"
	case CategoryGaps:
		return "Gaps"
	case CategorySpeaker:
		return "Speaker attribution"
	case CategoryConfidence:
		return "Confidence"
	default:
		return string(c)
	}
}

// Violation is one rule failure on one segment.
type Violation struct {
	Category  Category `json:"category"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Deduction float64  `json:"deduction"`
}

// SegmentScore is the per-segment result.
type SegmentScore struct {
	Index      int         `json:"index"`
	Start      float64     `json:"start"`
	End        float64     `json:"end"`
	Text       string      `json:"text"`
	CPS        float64     `json:"cps"`
	Score      float64     `json:"score"`
	Violations []Violation `json:"violations,omitempty"`
}

// CategorySummary aggregates one category across the track.
type CategorySummary struct {
	Category         Category `json:"category"`
	Violations       int      `json:"violations"`
	SegmentsAffected int      `json:"segments_affected"`
	Percent          float64  `json:"percent"`
	TotalDeduction   float64  `json:"total_deduction"`
}

// Multiplier records a file-level score adjustment.
type Multiplier struct {
	Reason string  `json:"reason"`
	Factor float64 `json:"factor"`
}

// Report is the full scoring result.
type Report struct {
	Language      string            `json:"language"`
	SegmentCount  int               `json:"segment_count"`
	TotalDuration float64           `json:"total_duration"`
	AverageCPS    float64           `json:"average_cps"`
	WeightedScore float64           `json:"weighted_score"`
	Score         float64           `json:"score"`
	QualityLevel  string            `json:"quality_level"`
	Multipliers   []Multiplier      `json:"multipliers,omitempty"`
	Categories    []CategorySummary `json:"categories"`
	Segments      []SegmentScore    `json:"segments"`
}

// Category returns the summary for c, or a zero summary.
func (r Report) Category(c Category) CategorySummary {
	for _, s := range r.Categories {
		if s.Category == c {
			return s
		}
	}
	return CategorySummary{Category: c}
}

// Quality level names.
const (
	LevelExcellent = "Excellent"
	LevelGood      = "Good"
	LevelFair      = "Fair"
	LevelPoor      = "Poor"
	LevelFailing   = "Failing"
)

// Level maps a score to its quality level.
func Level(score float64) string {
	switch {
	case score >= 90:
		return LevelExcellent
	case score >= 75:
		return LevelGood
	case score >= 60:
		return LevelFair
	case score >= 40:
		return LevelPoor
	default:
		return LevelFailing
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
