package contentgen

import (
	"strings"
	"testing"

	"github.com/abhisek/lexiz/internal/lang"
)

func TestBuildDedup(t *testing.T) {
	if got := buildDedup(nil, 5); got != "None" {
		t.Fatalf("empty = %q, want None", got)
	}
	got := buildDedup([]string{"a", "b", "c"}, 2)
	if got != "1. b\n2. c" {
		t.Fatalf("buildDedup = %q", got)
	}
}

func TestBuildGenerateMessage(t *testing.T) {
	cfg := DefaultConfig()
	req := GenerateRequest{
		Count:    2,
		Level:    lang.LevelA1,
		Modality: lang.ModalityVocabNativeToTarget,
		Seeds: []Seed{
			{ID: "w1", Kind: SeedWord, Text: "house = kuća", Detail: "noun"},
			{ID: "w2", Kind: SeedWord, Text: "water = voda"},
		},
	}
	msg, err := buildGenerateMessage(req, []string{"Translate: dog"}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Exercise type: vocab-native-target",
		"translate the English word of the seed into Croatian",
		"Level: A1",
		"Number of exercises: 2",
		"- id=w1 (word): house = kuća [noun]",
		"- id=w2 (word): water = voda\n",
		"1. Translate: dog",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Learner profile") {
		t.Errorf("empty learner context rendered:\n%s", msg)
	}
}

func TestBuildGenerateMessage_LearnerProfile(t *testing.T) {
	req := GenerateRequest{
		Count:          1,
		Level:          lang.LevelA2,
		Modality:       lang.ModalityGrammar,
		Seeds:          []Seed{{ID: "cases", Kind: SeedTopic, Text: "Noun cases"}},
		LearnerContext: "Current CEFR level: A2\nCommon mistakes: case (4).",
	}
	msg, err := buildGenerateMessage(req, nil, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := "Number of exercises: 1\n\nLearner profile:\nCurrent CEFR level: A2\nCommon mistakes: case (4).\n\nSeeds:"
	if !strings.Contains(msg, want) {
		t.Errorf("message missing learner block %q:\n%s", want, msg)
	}
}

func TestBuildEvaluateMessage(t *testing.T) {
	msg, err := buildEvaluateMessage(EvaluateRequest{
		Modality: lang.ModalityGrammar,
		Items: []EvaluateItem{
			{Context: "Fill: Vidim ___ (kuća)", ExpectedAnswer: "kuću", UserAnswer: "kuca", TopicHint: "accusative"},
			{Context: "Translate: voda", ExpectedAnswer: "water", UserAnswer: "water"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"0. Exercise: Fill: Vidim ___ (kuća)", "Learner: kuca", "Topic hint: accusative", "1. Exercise: Translate: voda"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Count(msg, "Topic hint") != 1 {
		t.Errorf("topic hint should only appear for hinted items:\n%s", msg)
	}
}

func TestSystemPromptUsesLanguages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetLanguage = "Slovene"
	got := systemPrompt(generateSystemTemplate, cfg)
	if !strings.Contains(got, "Slovene language tutor") || !strings.Contains(got, "English-speaking") {
		t.Fatalf("unexpected system prompt: %s", got)
	}
}

func TestEveryModalityHasInstructions(t *testing.T) {
	for _, m := range lang.AllModalities() {
		if _, ok := modalityInstructions[m]; !ok {
			t.Errorf("no instructions for %s", m)
		}
	}
}
