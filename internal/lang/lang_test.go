package lang

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"A1", LevelA1, false},
		{" b2 ", LevelB2, false},
		{"c2", LevelC2, false},
		{"D1", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePartOfSpeech(t *testing.T) {
	tests := []struct {
		in   string
		want PartOfSpeech
	}{
		{"noun", Noun},
		{"VERB", Verb},
		{"adj", Adjective},
		{"adv", Adverb},
		{"phrase", Phrase},
	}
	for _, tt := range tests {
		got, err := ParsePartOfSpeech(tt.in)
		if err != nil {
			t.Errorf("ParsePartOfSpeech(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePartOfSpeech(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ParsePartOfSpeech("gerundive"); err == nil {
		t.Error("expected error for unknown part of speech")
	}
}

func TestParseGender(t *testing.T) {
	for in, want := range map[string]Gender{
		"":          GenderNone,
		"m":         GenderMasculine,
		"Feminine":  GenderFeminine,
		"n":         GenderNeuter,
		"masculine": GenderMasculine,
	} {
		got, err := ParseGender(in)
		if err != nil {
			t.Errorf("ParseGender(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseGender(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseGender("x"); err == nil {
		t.Error("expected error for unknown gender")
	}
}

func TestModalityClassification(t *testing.T) {
	for _, m := range AllModalities() {
		if m.IsVocabulary() == m.IsTopicBearing() {
			t.Errorf("%s: vocabulary=%v topic=%v, want exactly one", m, m.IsVocabulary(), m.IsTopicBearing())
		}
	}
	if Modality("bogus").IsTopicBearing() {
		t.Error("unknown modality must not be topic-bearing")
	}
	if _, err := ParseModality("bogus"); err == nil {
		t.Error("expected error for unknown modality")
	}
}

func TestNormalizeErrorCategory(t *testing.T) {
	if got := NormalizeErrorCategory(""); got != "" {
		t.Errorf("empty = %q, want empty", got)
	}
	if got := NormalizeErrorCategory("spelling"); got != ErrSpelling {
		t.Errorf("spelling = %q, want %q", got, ErrSpelling)
	}
	if got := NormalizeErrorCategory("tone"); got != ErrOther {
		t.Errorf("tone = %q, want %q", got, ErrOther)
	}
}
