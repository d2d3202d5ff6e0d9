package contentgen

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/llm"
)

func wordRequest(count int) GenerateRequest {
	return GenerateRequest{
		Owner:    "ana",
		Count:    count,
		Level:    lang.LevelA1,
		Modality: lang.ModalityVocabNativeToTarget,
		Seeds: []Seed{
			{ID: "w1", Kind: SeedWord, Text: "house = kuća"},
			{ID: "w2", Kind: SeedWord, Text: "water = voda"},
			{ID: "w3", Kind: SeedWord, Text: "bread = kruh"},
		},
	}
}

func TestGenerate_HappyPath(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"items":[
		{"seed_id":"w1","prompt":"Translate to Croatian: house","expected_answer":"kuća","hint":""},
		{"seed_id":"w2","prompt":"Translate to Croatian: water","expected_answer":"voda","hint":"starts with v"},
		{"seed_id":"w3","prompt":"Translate to Croatian: bread","expected_answer":"kruh","hint":""}
	]}`)})
	g := New(mock, DefaultConfig(), nil)

	items, err := g.Generate(context.Background(), wordRequest(3))
	require.NoError(t, err)
	require.Len(t, items, 3)

	ids := map[string]bool{}
	for _, it := range items {
		assert.NotEmpty(t, it.ID)
		ids[it.ID] = true
	}
	assert.Len(t, ids, 3, "item ids must be unique")
	assert.Equal(t, "w2", items[1].SeedID)
	assert.Equal(t, "starts with v", items[1].Hint)

	call, _ := mock.LastCall()
	assert.Equal(t, ExercisesSchema, call.Schema)
	assert.Equal(t, DefaultConfig().tokenBudget(3), call.MaxTokens)

	// Prompts are remembered for the next batch.
	turns := g.Sessions().Turns(SessionKey("ana", lang.ModalityVocabNativeToTarget))
	assert.Len(t, turns, 3)
}

func TestGenerate_DropsBadItemsWithoutFabricating(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"items":[
		{"seed_id":"w1","prompt":"Translate to Croatian: house","expected_answer":"kuća","hint":""},
		{"seed_id":"nope","prompt":"Translate: cat","expected_answer":"mačka","hint":""},
		{"seed_id":"w2","prompt":"","expected_answer":"voda","hint":""},
		{"seed_id":"w3","prompt":"translate to croatian: HOUSE","expected_answer":"kuća","hint":""},
		"not an object"
	]}`)})
	g := New(mock, DefaultConfig(), nil)

	items, err := g.Generate(context.Background(), wordRequest(5))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "w1", items[0].SeedID)
}

func TestGenerate_TruncatesExtraItems(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"items":[
		{"seed_id":"w1","prompt":"A","expected_answer":"a","hint":""},
		{"seed_id":"w2","prompt":"B","expected_answer":"b","hint":""},
		{"seed_id":"w3","prompt":"C","expected_answer":"c","hint":""}
	]}`)})
	g := New(mock, DefaultConfig(), nil)

	items, err := g.Generate(context.Background(), wordRequest(2))
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestGenerate_SeedUsedOncePerRequest(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"items":[
		{"seed_id":"w1","prompt":"Translate to Croatian: house","expected_answer":"kuća","hint":""},
		{"seed_id":"w1","prompt":"Fill in: Moja ___ je velika.","expected_answer":"kuća","hint":""},
		{"seed_id":"w3","prompt":"Translate to Croatian: bread","expected_answer":"kruh","hint":""}
	]}`)})
	g := New(mock, DefaultConfig(), nil)

	items, err := g.Generate(context.Background(), wordRequest(3))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "w1", items[0].SeedID)
	assert.Equal(t, "w3", items[1].SeedID)
}

func TestGenerate_RepeatedSeedsKeepTheirCount(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"items":[
		{"seed_id":"acc","prompt":"Vidim ___ (kuća)","expected_answer":"kuću","hint":""},
		{"seed_id":"acc","prompt":"Pijem ___ (voda)","expected_answer":"vodu","hint":""},
		{"seed_id":"acc","prompt":"Jedem ___ (riba)","expected_answer":"ribu","hint":""}
	]}`)})
	g := New(mock, DefaultConfig(), nil)

	req := GenerateRequest{
		Owner:    "ana",
		Count:    3,
		Modality: lang.ModalityGrammar,
		Seeds: []Seed{
			{ID: "acc", Kind: SeedTopic, Text: "accusative"},
			{ID: "acc", Kind: SeedTopic, Text: "accusative"},
		},
	}
	items, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, items, 2, "a topic listed twice backs two exercises")
}

func TestGenerate_PriorPromptsInNextRequest(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"items":[{"seed_id":"w1","prompt":"Translate: house","expected_answer":"kuća","hint":""}]}`)},
		llm.MockResponse{Content: json.RawMessage(`{"items":[]}`)},
	)
	g := New(mock, DefaultConfig(), nil)

	_, err := g.Generate(context.Background(), wordRequest(1))
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), wordRequest(1))
	require.NoError(t, err)

	call, _ := mock.LastCall()
	assert.Contains(t, call.Messages[0].Content, "1. Translate: house")
}

func TestGenerate_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unavailable", &llm.ErrProviderUnavailable{Err: errors.New("503")}, ErrUnavailable},
		{"rate limited", &llm.ErrRateLimit{Err: errors.New("429")}, ErrUnavailable},
		{"schema violation", &llm.ErrInvalidResponse{Err: errors.New("bad")}, ErrMalformedResponse},
		{"truncated", &llm.ErrMaxTokensExceeded{}, ErrMalformedResponse},
		{"timeout", context.DeadlineExceeded, ErrUnavailable},
		{"timeout keeps cause", context.DeadlineExceeded, context.DeadlineExceeded},
		{"canceled", context.Canceled, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(llm.NewMockProvider(llm.MockResponse{Err: tt.err}), DefaultConfig(), nil)
			_, err := g.Generate(context.Background(), wordRequest(1))
			assert.ErrorIs(t, err, tt.want)
			if errors.Is(tt.err, context.Canceled) {
				assert.NotErrorIs(t, err, ErrUnavailable, "a canceled caller is not an outage")
			}
		})
	}
}

func TestGenerate_NoSeedsNoCall(t *testing.T) {
	mock := llm.NewMockProvider()
	g := New(mock, DefaultConfig(), nil)
	items, err := g.Generate(context.Background(), GenerateRequest{Count: 3})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, mock.CallCount())
}

func evalRequest() EvaluateRequest {
	return EvaluateRequest{
		Owner:    "ana",
		Modality: lang.ModalityGrammar,
		Items: []EvaluateItem{
			{Context: "Vidim ___ (kuća)", ExpectedAnswer: "kuću", UserAnswer: "kuću", TopicHint: "accusative"},
			{Context: "Vidim ___ (voda)", ExpectedAnswer: "vodu", UserAnswer: "voda", TopicHint: "accusative"},
			{Context: "Translate: bread", ExpectedAnswer: "kruh", UserAnswer: "kru"},
		},
	}
}

func TestEvaluate_HappyPath(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"results":[
		{"index":0,"correct":true,"score":1,"error_category":"","topic_id":"accusative","feedback":"Great."},
		{"index":1,"correct":false,"score":0.2,"error_category":"case","topic_id":"","feedback":"Needs accusative."},
		{"index":2,"correct":false,"score":1.4,"error_category":"spelling","topic_id":"other-topic","feedback":"Almost."}
	]}`)})
	g := New(mock, DefaultConfig(), nil)

	got, err := g.Evaluate(context.Background(), evalRequest())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0].Correct)
	assert.Equal(t, "accusative", got[0].TopicID)
	assert.Empty(t, got[0].ErrorCategory)

	assert.False(t, got[1].Correct)
	assert.Equal(t, lang.ErrCase, got[1].ErrorCategory)
	assert.Equal(t, "accusative", got[1].TopicID)

	assert.Equal(t, 1.0, got[2].Score, "score is clamped")
	assert.Empty(t, got[2].TopicID, "topics outside the hints are ignored")

	call, _ := mock.LastCall()
	assert.Equal(t, JudgementsSchema, call.Schema)
	assert.True(t, strings.Contains(call.System, "grading"))
}

func TestEvaluate_EnvelopeFailuresAreFatal(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `results: yes`},
		{"short", `{"results":[{"index":0,"correct":true,"score":1,"error_category":"","topic_id":"","feedback":""}]}`},
		{"reordered", `{"results":[
			{"index":1,"correct":true,"score":1,"error_category":"","topic_id":"","feedback":""},
			{"index":0,"correct":true,"score":1,"error_category":"","topic_id":"","feedback":""},
			{"index":2,"correct":true,"score":1,"error_category":"","topic_id":"","feedback":""}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tt.content)}), DefaultConfig(), nil)
			got, err := g.Evaluate(context.Background(), evalRequest())
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Nil(t, got)
		})
	}
}

func TestEvaluate_Unavailable(t *testing.T) {
	g := New(llm.NewMockProvider(), DefaultConfig(), nil)
	_, err := g.Evaluate(context.Background(), evalRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}
