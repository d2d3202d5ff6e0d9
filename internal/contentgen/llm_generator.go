package contentgen

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/llm"
	"github.com/abhisek/lexiz/internal/logging"
)

// LLMGenerator implements Generator on an LLM provider. It owns the
// session store used to keep batches from repeating earlier prompts.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
	sessions *SessionStore
	log      *logging.Logger
}

// New creates an LLMGenerator.
func New(provider llm.Provider, cfg Config, log *logging.Logger) *LLMGenerator {
	return &LLMGenerator{
		provider: provider,
		config:   cfg,
		sessions: NewSessionStore(cfg.Session),
		log:      logging.OrNop(log).With("component", "contentgen"),
	}
}

// Sessions exposes the generation history store.
func (g *LLMGenerator) Sessions() *SessionStore {
	return g.sessions
}

// itemOutput is decoded per entry so one bad entry does not sink the batch.
type itemOutput struct {
	SeedID         string `json:"seed_id"`
	Prompt         string `json:"prompt"`
	ExpectedAnswer string `json:"expected_answer"`
	Hint           string `json:"hint"`
}

type judgementsOutput struct {
	Results []judgementOutput `json:"results"`
}

type judgementOutput struct {
	Index         int     `json:"index"`
	Correct       bool    `json:"correct"`
	Score         float64 `json:"score"`
	ErrorCategory string  `json:"error_category"`
	TopicID       string  `json:"topic_id"`
	Feedback      string  `json:"feedback"`
}

// Generate produces up to req.Count validated exercises.
func (g *LLMGenerator) Generate(ctx context.Context, req GenerateRequest) ([]GeneratedItem, error) {
	if req.Count <= 0 || len(req.Seeds) == 0 {
		return nil, nil
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeGenerate)

	key := SessionKey(req.Owner, req.Modality)
	userMsg, err := buildGenerateMessage(req, g.sessions.Turns(key), g.config)
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt(generateSystemTemplate, g.config),
		Messages:    llm.UserMessage(userMsg),
		Schema:      ExercisesSchema,
		MaxTokens:   g.config.tokenBudget(req.Count),
		Temperature: g.config.GenerateTemperature,
	})
	if err != nil {
		return nil, classify("generate exercises", err)
	}

	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(resp.Content, &envelope); err != nil {
		return nil, fmt.Errorf("generate exercises: %w: %w", ErrMalformedResponse, err)
	}

	items := make([]GeneratedItem, 0, req.Count)
	seen := make(map[string]bool, len(envelope.Items))
	quota := make(map[string]int, len(req.Seeds))
	for _, sd := range req.Seeds {
		quota[sd.ID]++
	}
	for i, raw := range envelope.Items {
		if len(items) == req.Count {
			break
		}
		var out itemOutput
		if err := json.Unmarshal(raw, &out); err != nil {
			g.log.Warn("dropping unparsable exercise", "index", i, "error", err)
			continue
		}
		item := GeneratedItem{
			ID:             uuid.NewString(),
			SeedID:         strings.TrimSpace(out.SeedID),
			Prompt:         strings.TrimSpace(out.Prompt),
			ExpectedAnswer: strings.TrimSpace(out.ExpectedAnswer),
			Hint:           strings.TrimSpace(out.Hint),
		}
		if verr := g.validate(&item, req); verr != nil {
			g.log.Warn("dropping invalid exercise", "index", i, "error", verr)
			continue
		}
		dedupKey := strings.ToLower(item.Prompt)
		if seen[dedupKey] {
			g.log.Warn("dropping duplicate exercise", "index", i)
			continue
		}
		if quota[item.SeedID] == 0 {
			g.log.Warn("dropping exercise for an already used seed", "index", i, "seed", item.SeedID)
			continue
		}
		quota[item.SeedID]--
		seen[dedupKey] = true
		items = append(items, item)
	}

	if len(items) < req.Count {
		g.log.Warn("generator returned fewer exercises than requested",
			"owner", req.Owner,
			"modality", req.Modality,
			"requested", req.Count,
			"returned", len(items),
		)
	}

	prompts := make([]string, len(items))
	for i, it := range items {
		prompts[i] = it.Prompt
	}
	g.sessions.Append(key, prompts...)

	return items, nil
}

func (g *LLMGenerator) validate(item *GeneratedItem, req GenerateRequest) *ValidationError {
	for _, v := range g.config.Validators {
		if verr := v.Validate(item, req); verr != nil {
			return verr
		}
	}
	return nil
}

// Evaluate judges a batch of answers in one call. Any problem with the
// response envelope, including a count or order mismatch, fails the whole
// call with ErrMalformedResponse.
func (g *LLMGenerator) Evaluate(ctx context.Context, req EvaluateRequest) ([]Judgement, error) {
	if len(req.Items) == 0 {
		return nil, nil
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeEvaluate)

	userMsg, err := buildEvaluateMessage(req)
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt(evaluateSystemTemplate, g.config),
		Messages:    llm.UserMessage(userMsg),
		Schema:      JudgementsSchema,
		MaxTokens:   g.config.tokenBudget(len(req.Items)),
		Temperature: g.config.EvaluateTemperature,
	})
	if err != nil {
		return nil, classify("evaluate answers", err)
	}

	var raw judgementsOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("evaluate answers: %w: %w", ErrMalformedResponse, err)
	}
	return toJudgements(raw.Results, req)
}

func toJudgements(results []judgementOutput, req EvaluateRequest) ([]Judgement, error) {
	if len(results) != len(req.Items) {
		return nil, fmt.Errorf("evaluate answers: %w: got %d results for %d answers",
			ErrMalformedResponse, len(results), len(req.Items))
	}

	out := make([]Judgement, len(results))
	for i, r := range results {
		if r.Index != i {
			return nil, fmt.Errorf("evaluate answers: %w: result %d has index %d",
				ErrMalformedResponse, i, r.Index)
		}
		if math.IsNaN(r.Score) {
			return nil, fmt.Errorf("evaluate answers: %w: result %d score is NaN", ErrMalformedResponse, i)
		}

		j := Judgement{
			Correct:  r.Correct,
			Score:    math.Max(0, math.Min(1, r.Score)),
			Feedback: strings.TrimSpace(r.Feedback),
		}
		if !r.Correct {
			j.ErrorCategory = lang.NormalizeErrorCategory(r.ErrorCategory)
		}
		// Topic ids are accepted only when they name the item's own hint.
		hint := req.Items[i].TopicHint
		if hint != "" && (r.TopicID == "" || r.TopicID == hint) {
			j.TopicID = hint
		}
		out[i] = j
	}
	return out, nil
}
