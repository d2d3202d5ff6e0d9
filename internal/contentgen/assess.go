package contentgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/llm"
)

// WordQuery is a word to classify. Native may be empty, in which case the
// assessment supplies a translation.
type WordQuery struct {
	Target string
	Native string
}

// Assessment is the grammatical metadata of one word. Values outside the
// known sets are replaced by Noun and A1, and only nouns keep a gender.
type Assessment struct {
	Target       string
	Native       string
	PartOfSpeech lang.PartOfSpeech
	Gender       lang.Gender
	Level        lang.Level
}

// Assessor fills in part of speech, gender, level and a missing
// translation for new vocabulary.
type Assessor interface {
	Assess(ctx context.Context, words []WordQuery) ([]Assessment, error)
}

type assessmentsOutput struct {
	Words []assessmentOutput `json:"words"`
}

type assessmentOutput struct {
	Index        int    `json:"index"`
	Target       string `json:"target"`
	Native       string `json:"native"`
	PartOfSpeech string `json:"part_of_speech"`
	Gender       string `json:"gender"`
	Level        string `json:"level"`
}

// Assess classifies words, AssessChunkSize per provider call. The result
// lines up with words. A failed chunk fails the whole call.
func (g *LLMGenerator) Assess(ctx context.Context, words []WordQuery) ([]Assessment, error) {
	if len(words) == 0 {
		return nil, nil
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeAssess)

	size := g.config.AssessChunkSize
	if size <= 0 {
		size = len(words)
	}
	out := make([]Assessment, 0, len(words))
	for start := 0; start < len(words); start += size {
		chunk := words[start:min(start+size, len(words))]
		got, err := g.assessChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
		g.log.Debug("words assessed", "from", start, "count", len(chunk))
	}
	return out, nil
}

func (g *LLMGenerator) assessChunk(ctx context.Context, words []WordQuery) ([]Assessment, error) {
	userMsg, err := buildAssessMessage(words)
	if err != nil {
		return nil, err
	}
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt(assessSystemTemplate, g.config),
		Messages:    llm.UserMessage(userMsg),
		Schema:      AssessmentsSchema,
		MaxTokens:   g.config.tokenBudget(len(words)),
		Temperature: g.config.AssessTemperature,
	})
	if err != nil {
		return nil, classify("assess words", err)
	}

	var raw assessmentsOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("assess words: %w: %w", ErrMalformedResponse, err)
	}
	if len(raw.Words) != len(words) {
		return nil, fmt.Errorf("assess words: %w: got %d entries for %d words",
			ErrMalformedResponse, len(raw.Words), len(words))
	}

	out := make([]Assessment, len(words))
	for i, r := range raw.Words {
		if r.Index != i {
			return nil, fmt.Errorf("assess words: %w: entry %d has index %d", ErrMalformedResponse, i, r.Index)
		}
		out[i] = toAssessment(words[i], r)
	}
	return out, nil
}

// toAssessment keeps the caller's own text and normalizes the metadata.
func toAssessment(q WordQuery, r assessmentOutput) Assessment {
	a := Assessment{
		Target: q.Target,
		Native: strings.TrimSpace(q.Native),
	}
	if a.Native == "" {
		a.Native = strings.TrimSpace(r.Native)
	}
	pos, err := lang.ParsePartOfSpeech(r.PartOfSpeech)
	if err != nil {
		pos = lang.Noun
	}
	a.PartOfSpeech = pos
	if level, err := lang.ParseLevel(r.Level); err == nil {
		a.Level = level
	} else {
		a.Level = lang.LevelA1
	}
	if pos == lang.Noun {
		if gender, err := lang.ParseGender(r.Gender); err == nil {
			a.Gender = gender
		}
	}
	return a
}
