package contentgen

import (
	"strings"
	"testing"
)

func TestStructuralValidator(t *testing.T) {
	v := &StructuralValidator{}
	tests := []struct {
		name    string
		item    GeneratedItem
		wantErr bool
	}{
		{"valid", GeneratedItem{Prompt: "Translate: kuća", ExpectedAnswer: "house"}, false},
		{"empty prompt", GeneratedItem{Prompt: "  ", ExpectedAnswer: "house"}, true},
		{"empty answer", GeneratedItem{Prompt: "Translate: kuća"}, true},
		{"long prompt", GeneratedItem{Prompt: strings.Repeat("ž", maxPromptRunes+1), ExpectedAnswer: "x"}, true},
		{"long answer counts runes", GeneratedItem{Prompt: "p", ExpectedAnswer: strings.Repeat("č", maxAnswerRunes)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.item, GenerateRequest{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSeedValidator(t *testing.T) {
	v := &SeedValidator{}
	req := GenerateRequest{Seeds: []Seed{{ID: "w1"}, {ID: "w2"}}}

	if err := v.Validate(&GeneratedItem{SeedID: "w2"}, req); err != nil {
		t.Fatalf("known seed rejected: %v", err)
	}
	if err := v.Validate(&GeneratedItem{SeedID: "w9"}, req); err == nil {
		t.Fatal("unknown seed accepted")
	}
}

func TestEchoValidator(t *testing.T) {
	v := &EchoValidator{}
	leak := GeneratedItem{Prompt: "Order these words: Ja idem u školu (ja idem u školu)", ExpectedAnswer: "Ja idem u školu"}
	if err := v.Validate(&leak, GenerateRequest{}); err == nil {
		t.Fatal("expected leak to be rejected")
	}
	single := GeneratedItem{Prompt: "What does 'kuća' mean? (kuća)", ExpectedAnswer: "kuća"}
	if err := v.Validate(&single, GenerateRequest{}); err != nil {
		t.Fatalf("single-word answer should be exempt: %v", err)
	}
}
