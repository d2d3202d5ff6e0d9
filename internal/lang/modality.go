package lang

import "fmt"

// Modality is the kind of exercise served in a batch.
type Modality string

const (
	// Vocabulary modalities quiz individual words.
	ModalityVocabNativeToTarget Modality = "vocab-native-target"
	ModalityVocabTargetToNative Modality = "vocab-target-native"
	ModalityVocabFillBlank      Modality = "vocab-fill-blank"

	// Topic-bearing modalities practice grammar topics.
	ModalityGrammar              Modality = "grammar"
	ModalitySentenceConstruction Modality = "sentence-construction"
	ModalityTranslateToNative    Modality = "translate-target-native"
	ModalityTranslateToTarget    Modality = "translate-native-target"
	ModalityReading              Modality = "reading"
)

// AllModalities returns every supported modality.
func AllModalities() []Modality {
	return []Modality{
		ModalityVocabNativeToTarget,
		ModalityVocabTargetToNative,
		ModalityVocabFillBlank,
		ModalityGrammar,
		ModalitySentenceConstruction,
		ModalityTranslateToNative,
		ModalityTranslateToTarget,
		ModalityReading,
	}
}

// IsVocabulary reports whether items of this modality target single words
// and so feed the review scheduler.
func (m Modality) IsVocabulary() bool {
	switch m {
	case ModalityVocabNativeToTarget, ModalityVocabTargetToNative, ModalityVocabFillBlank:
		return true
	}
	return false
}

// IsTopicBearing reports whether items of this modality are tagged with a
// grammar topic and so feed the topic mastery tracker.
func (m Modality) IsTopicBearing() bool {
	return m.Valid() && !m.IsVocabulary()
}

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	for _, known := range AllModalities() {
		if m == known {
			return true
		}
	}
	return false
}

// ParseModality validates s as a Modality.
func ParseModality(s string) (Modality, error) {
	m := Modality(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown exercise modality %q", s)
	}
	return m, nil
}
