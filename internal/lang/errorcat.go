package lang

// ErrorCategory classifies why a free-text answer was judged wrong.
type ErrorCategory string

const (
	ErrCase            ErrorCategory = "case"
	ErrGenderAgreement ErrorCategory = "gender-agreement"
	ErrVerbConjugation ErrorCategory = "verb-conjugation"
	ErrWordOrder       ErrorCategory = "word-order"
	ErrSpelling        ErrorCategory = "spelling"
	ErrVocabulary      ErrorCategory = "vocabulary"
	ErrAccent          ErrorCategory = "accent"
	ErrOther           ErrorCategory = "other"
)

// AllErrorCategories returns the full taxonomy.
func AllErrorCategories() []ErrorCategory {
	return []ErrorCategory{
		ErrCase, ErrGenderAgreement, ErrVerbConjugation, ErrWordOrder,
		ErrSpelling, ErrVocabulary, ErrAccent, ErrOther,
	}
}

// NormalizeErrorCategory maps an arbitrary label onto the taxonomy.
// Empty input stays empty; unknown labels become ErrOther.
func NormalizeErrorCategory(s string) ErrorCategory {
	if s == "" {
		return ""
	}
	for _, c := range AllErrorCategories() {
		if string(c) == s {
			return c
		}
	}
	return ErrOther
}
