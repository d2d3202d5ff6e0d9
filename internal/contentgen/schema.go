package contentgen

import (
	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/llm"
)

// ExercisesSchema defines the JSON schema for batch generation responses.
var ExercisesSchema = &llm.Schema{
	Name:        "language-exercises",
	Description: "A batch of language practice exercises, each built around one seed",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"seed_id": map[string]any{
							"type":        "string",
							"description": "The id of the seed this exercise was built from, copied verbatim",
						},
						"prompt": map[string]any{
							"type":        "string",
							"description": "The exercise text shown to the learner",
						},
						"expected_answer": map[string]any{
							"type":        "string",
							"description": "The single best correct answer",
						},
						"hint": map[string]any{
							"type":        "string",
							"description": "A short hint, or an empty string",
						},
					},
					"required":             []any{"seed_id", "prompt", "expected_answer", "hint"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"items"},
		"additionalProperties": false,
	},
}

// JudgementsSchema defines the JSON schema for batch evaluation responses.
var JudgementsSchema = &llm.Schema{
	Name:        "answer-judgements",
	Description: "One judgement per submitted answer, in submission order",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"results": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"description": "Zero-based position of the answer being judged",
						},
						"correct": map[string]any{"type": "boolean"},
						"score": map[string]any{
							"type":        "number",
							"minimum":     0,
							"maximum":     1,
							"description": "1 for a fully correct answer, partial credit otherwise",
						},
						"error_category": map[string]any{
							"type":        "string",
							"enum":        errorCategoryEnum(),
							"description": "Main kind of mistake; empty when correct",
						},
						"topic_id": map[string]any{
							"type":        "string",
							"description": "The topic hint of the item when the answer exercised it, else empty",
						},
						"feedback": map[string]any{
							"type":        "string",
							"description": "One short sentence of feedback for the learner",
						},
					},
					"required":             []any{"index", "correct", "score", "error_category", "topic_id", "feedback"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"results"},
		"additionalProperties": false,
	},
}

// AssessmentsSchema defines the JSON schema for word assessment responses.
var AssessmentsSchema = &llm.Schema{
	Name:        "word-assessments",
	Description: "Grammatical metadata for each submitted word, in submission order",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"words": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"description": "Zero-based position of the word being assessed",
						},
						"target": map[string]any{
							"type":        "string",
							"description": "The word as submitted",
						},
						"native": map[string]any{
							"type":        "string",
							"description": "The most common translation",
						},
						"part_of_speech": map[string]any{
							"type": "string",
							"enum": partOfSpeechEnum(),
						},
						"gender": map[string]any{
							"type":        "string",
							"enum":        []any{"", "masculine", "feminine", "neuter"},
							"description": "Grammatical gender for nouns; empty otherwise",
						},
						"level": map[string]any{
							"type":        "string",
							"enum":        levelEnum(),
							"description": "CEFR level at which learners usually meet the word",
						},
					},
					"required":             []any{"index", "target", "native", "part_of_speech", "gender", "level"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"words"},
		"additionalProperties": false,
	},
}

func partOfSpeechEnum() []any {
	var out []any
	for _, p := range lang.AllPartsOfSpeech() {
		out = append(out, string(p))
	}
	return out
}

func levelEnum() []any {
	var out []any
	for _, l := range lang.AllLevels() {
		out = append(out, string(l))
	}
	return out
}

func errorCategoryEnum() []any {
	out := []any{""}
	for _, c := range lang.AllErrorCategories() {
		out = append(out, string(c))
	}
	return out
}
