package lang

import (
	"fmt"
	"strings"
)

// PartOfSpeech classifies a vocabulary entry.
type PartOfSpeech string

const (
	Noun         PartOfSpeech = "noun"
	Verb         PartOfSpeech = "verb"
	Adjective    PartOfSpeech = "adjective"
	Adverb       PartOfSpeech = "adverb"
	Pronoun      PartOfSpeech = "pronoun"
	Preposition  PartOfSpeech = "preposition"
	Conjunction  PartOfSpeech = "conjunction"
	Interjection PartOfSpeech = "interjection"
	Numeral      PartOfSpeech = "numeral"
	Particle     PartOfSpeech = "particle"
	Phrase       PartOfSpeech = "phrase"
)

// AllPartsOfSpeech returns every part of speech in display order.
func AllPartsOfSpeech() []PartOfSpeech {
	return []PartOfSpeech{
		Noun, Verb, Adjective, Adverb, Pronoun, Preposition,
		Conjunction, Interjection, Numeral, Particle, Phrase,
	}
}

// ParsePartOfSpeech matches s case-insensitively. A few common
// abbreviations ("adj", "adv", "n", "v") are accepted.
func ParsePartOfSpeech(s string) (PartOfSpeech, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "n":
		return Noun, nil
	case "v":
		return Verb, nil
	case "adj":
		return Adjective, nil
	case "adv":
		return Adverb, nil
	}
	for _, p := range AllPartsOfSpeech() {
		if string(p) == norm {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown part of speech %q", s)
}

// Gender is the grammatical gender of a noun. The zero value means
// "not applicable".
type Gender string

const (
	GenderNone      Gender = ""
	GenderMasculine Gender = "masculine"
	GenderFeminine  Gender = "feminine"
	GenderNeuter    Gender = "neuter"
)

// ParseGender accepts full names and the m/f/n shorthand. An empty string
// yields GenderNone.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return GenderNone, nil
	case "m", "masc", "masculine":
		return GenderMasculine, nil
	case "f", "fem", "feminine":
		return GenderFeminine, nil
	case "n", "neut", "neuter":
		return GenderNeuter, nil
	default:
		return "", fmt.Errorf("unknown gender %q", s)
	}
}
