package contentgen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validator checks one generated item. Implementations must be stateless
// and safe for concurrent use.
type Validator interface {
	Name() string
	Validate(item *GeneratedItem, req GenerateRequest) *ValidationError
}

// ValidationError describes why an item was dropped.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

const (
	maxPromptRunes = 800
	maxAnswerRunes = 300
)

// StructuralValidator checks that required fields are present and within
// length limits.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(item *GeneratedItem, _ GenerateRequest) *ValidationError {
	switch {
	case strings.TrimSpace(item.Prompt) == "":
		return &ValidationError{Validator: v.Name(), Message: "prompt is empty"}
	case utf8.RuneCountInString(item.Prompt) > maxPromptRunes:
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("prompt exceeds %d characters", maxPromptRunes)}
	case strings.TrimSpace(item.ExpectedAnswer) == "":
		return &ValidationError{Validator: v.Name(), Message: "expected_answer is empty"}
	case utf8.RuneCountInString(item.ExpectedAnswer) > maxAnswerRunes:
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("expected_answer exceeds %d characters", maxAnswerRunes)}
	}
	return nil
}

// SeedValidator rejects items that do not name one of the request's seeds.
type SeedValidator struct{}

func (v *SeedValidator) Name() string { return "seed" }

func (v *SeedValidator) Validate(item *GeneratedItem, req GenerateRequest) *ValidationError {
	for _, s := range req.Seeds {
		if s.ID == item.SeedID {
			return nil
		}
	}
	return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("unknown seed_id %q", item.SeedID)}
}

// EchoValidator rejects items whose prompt gives a multi-word answer away
// verbatim. Single-word answers are exempt.
type EchoValidator struct{}

func (v *EchoValidator) Name() string { return "echo" }

func (v *EchoValidator) Validate(item *GeneratedItem, _ GenerateRequest) *ValidationError {
	prompt := strings.ToLower(item.Prompt)
	answer := strings.ToLower(strings.TrimSpace(item.ExpectedAnswer))
	if len(strings.Fields(answer)) > 1 && strings.Contains(prompt, answer) {
		return &ValidationError{Validator: v.Name(), Message: "prompt contains the expected answer"}
	}
	return nil
}
