package language

import (
	"testing"
)

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// 2-letter codes pass through
		{"en", "en"},
		{"EN", "en"},
		{"es", "es"},
		// 3-letter codes convert
		{"eng", "en"},
		{"spa", "es"},
		{"fra", "fr"},
		{"fre", "fr"},
		{"deu", "de"},
		{"ger", "de"},
		{"ita", "it"},
		{"por", "pt"},
		{"jpn", "ja"},
		{"kor", "ko"},
		{"zho", "zh"},
		{"chi", "zh"},
		{"rus", "ru"},
		{"ara", "ar"},
		{"hin", "hi"},
		{"nld", "nl"},
		{"dut", "nl"},
		{"pol", "pl"},
		{"swe", "sv"},
		{"dan", "da"},
		{"nor", "no"},
		{"fin", "fi"},
		// Word forms
		{"english", "en"},
		{"French", "fr"},
		{"GERMAN", "de"},
		{"chinese", "zh"},
		// Unknown 2-letter passes through
		{"xy", "xy"},
		// Unknown 3-letter returns empty
		{"xyz", ""},
		// Empty
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ToISO2(tt.input)
			if result != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "eng"},
		{"es", "spa"},
		{"fr", "fra"},
		{"de", "deu"},
		{"zh", "zho"},
		{"eng", "eng"},
		{"spa", "spa"},
		{"xyz", "xyz"}, // unknown 3-letter passes through
		{"xy", "und"},  // unknown 2-letter becomes undefined
		{"", "und"},    // empty
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ToISO3(tt.input)
			if result != tt.expected {
				t.Errorf("ToISO3(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"eng", "English"},
		{"es", "Spanish"},
		{"spa", "Spanish"},
		{"fr", "French"},
		{"fre", "French"},
		{"fra", "French"},
		{"de", "German"},
		{"deu", "German"},
		{"ger", "German"},
		{"ja", "Japanese"},
		{"ko", "Korean"},
		{"zh", "Chinese"},
		{"chi", "Chinese"},
		{"zho", "Chinese"},
		{"nl", "Dutch"},
		{"dut", "Dutch"},
		{"nld", "Dutch"},
		{"", "Unknown"},
		{"xyz", "XYZ"},
		{"english", "English"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := DisplayName(tt.input)
			if result != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestToISO2AcceptsBCP47Tags(t *testing.T) {
	tests := map[string]string{
		"pt-BR":   "pt",
		"en_US":   "en",
		"zh-Hans": "zh",
		"sr-Latn": "sr",
	}
	for input, want := range tests {
		if got := ToISO2(input); got != want {
			t.Errorf("ToISO2(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestProfilesSatisfyInvariants(t *testing.T) {
	all := Profiles()
	all["default"] = DefaultProfile
	for code, p := range all {
		if p.TargetCPS > p.MaxCPS {
			t.Errorf("%s: target CPS %v exceeds max %v", code, p.TargetCPS, p.MaxCPS)
		}
		if p.MinDuration > p.MaxDuration {
			t.Errorf("%s: min duration %v exceeds max %v", code, p.MinDuration, p.MaxDuration)
		}
		if p.MinDuration > p.IdealMinDuration {
			t.Errorf("%s: min duration %v exceeds ideal %v", code, p.MinDuration, p.IdealMinDuration)
		}
		if p.MaxCPL <= 0 || p.MaxLines <= 0 {
			t.Errorf("%s: non-positive limits %+v", code, p)
		}
	}
}

func TestProfileForFallsBack(t *testing.T) {
	if got := ProfileFor("xx"); got != DefaultProfile {
		t.Fatalf("expected default profile, got %+v", got)
	}
	if got := ProfileFor("japanese"); got.Script != ScriptCJK || got.MaxCPL != 13 {
		t.Fatalf("unexpected japanese profile %+v", got)
	}
	if got := ProfileFor("en-GB"); got.Code != "en" {
		t.Fatalf("expected english profile for en-GB, got %+v", got)
	}
	if !ProfileFor("zh").UsesCharacterBreaks() || ProfileFor("ar").UsesCharacterBreaks() {
		t.Fatal("unexpected character-break classification")
	}
}

func TestIsWord(t *testing.T) {
	tests := []struct {
		code  string
		class WordClass
		token string
		want  bool
	}{
		{"en", Article, "The", true},
		{"en", Preposition, "of,", true},
		{"en", Conjunction, "because", true},
		{"en", Negation, "never", true},
		{"en", Article, "cat", false},
		{"es", Article, "los", true},
		{"fr", Conjunction, "mais", true},
		{"de", Auxiliary, "wird", true},
		{"xx", Article, "the", true},
		{"es", Particle, "up", false},
	}
	for _, tt := range tests {
		if got := IsWord(tt.code, tt.class, tt.token); got != tt.want {
			t.Errorf("IsWord(%q, %d, %q) = %v, want %v", tt.code, tt.class, tt.token, got, tt.want)
		}
	}
}
