package language

// Script classifies the writing system that drives line-break rules.
type Script string

const (
	ScriptLatin Script = "latin"
	ScriptCJK   Script = "cjk"
	ScriptRTL   Script = "rtl"
	ScriptIndic Script = "indic"
	ScriptThai  Script = "thai"
)

// Profile holds the readability constants for one language. Durations and
// gaps are in seconds.
type Profile struct {
	Code             string
	TargetCPS        float64
	MaxCPS           float64
	MaxCPL           int
	MinDuration      float64
	IdealMinDuration float64
	MaxDuration      float64
	MaxLines         int
	MinGap           float64
	Script           Script
}

// UsesCharacterBreaks reports whether lines are broken on character indices
// instead of words.
func (p Profile) UsesCharacterBreaks() bool {
	return p.Script == ScriptCJK || p.Script == ScriptThai
}

// DefaultProfile applies to languages without a dedicated entry.
var DefaultProfile = Profile{
	Code:             "",
	TargetCPS:        17,
	MaxCPS:           20,
	MaxCPL:           42,
	MinDuration:      1.0,
	IdealMinDuration: 1.5,
	MaxDuration:      7.0,
	MaxLines:         2,
	MinGap:           0.083,
	Script:           ScriptLatin,
}

var profiles = map[string]Profile{
	"en": latin("en", 17, 20, 42),
	"es": latin("es", 17, 20, 42),
	"fr": latin("fr", 17, 20, 42),
	"de": latin("de", 17, 20, 42),
	"it": latin("it", 17, 20, 42),
	"pt": latin("pt", 17, 20, 42),
	"nl": latin("nl", 17, 20, 42),
	"pl": latin("pl", 15, 18, 42),
	"sv": latin("sv", 17, 20, 42),
	"da": latin("da", 17, 20, 42),
	"no": latin("no", 17, 20, 42),
	"fi": latin("fi", 15, 18, 42),
	"ru": latin("ru", 15, 18, 42),
	"ja": withScript(latin("ja", 4, 5, 13), ScriptCJK),
	"zh": withScript(latin("zh", 9, 11, 16), ScriptCJK),
	"ko": withScript(latin("ko", 12, 14, 16), ScriptCJK),
	"ar": withScript(latin("ar", 17, 20, 42), ScriptRTL),
	"he": withScript(latin("he", 17, 20, 42), ScriptRTL),
	"hi": withScript(latin("hi", 17, 20, 42), ScriptIndic),
	"th": withScript(latin("th", 15, 18, 35), ScriptThai),
}

func latin(code string, target, maxCPS float64, cpl int) Profile {
	p := DefaultProfile
	p.Code = code
	p.TargetCPS = target
	p.MaxCPS = maxCPS
	p.MaxCPL = cpl
	return p
}

func withScript(p Profile, s Script) Profile {
	p.Script = s
	return p
}

// ProfileFor resolves the profile for a code, name, or BCP-47 tag.
func ProfileFor(code string) Profile {
	if p, ok := profiles[ToISO2(code)]; ok {
		return p
	}
	return DefaultProfile
}

// Profiles returns every dedicated profile keyed by ISO 639-1 code.
func Profiles() map[string]Profile {
	out := make(map[string]Profile, len(profiles))
	for k, v := range profiles {
		out[k] = v
	}
	return out
}
