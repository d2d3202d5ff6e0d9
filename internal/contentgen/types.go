package contentgen

import (
	"context"

	"github.com/abhisek/lexiz/internal/lang"
)

// Generator is the content-generator boundary: one call produces a whole
// batch of exercises and one call judges a whole batch of answers.
type Generator interface {
	// Generate asks for req.Count exercises built from req.Seeds. Items
	// that fail validation are dropped, so the result may be shorter than
	// requested; it is never padded.
	Generate(ctx context.Context, req GenerateRequest) ([]GeneratedItem, error)

	// Evaluate judges every item of req. The result has exactly one
	// Judgement per input item, in input order, or an error.
	Evaluate(ctx context.Context, req EvaluateRequest) ([]Judgement, error)
}

// SeedKind tells what a seed refers to.
type SeedKind string

const (
	SeedWord  SeedKind = "word"
	SeedTopic SeedKind = "topic"
)

// Seed is one word or grammar topic an exercise must be built around.
type Seed struct {
	ID   string
	Kind SeedKind
	// Text is the word pair ("kuća = house") or the topic name.
	Text string
	// Detail carries extra context such as a topic description or the
	// word's part of speech.
	Detail string
}

// GenerateRequest describes a batch to generate.
type GenerateRequest struct {
	Owner    string
	Count    int
	Level    lang.Level
	Modality lang.Modality
	// Seeds are the words or topics to build exercises around. Seeds may
	// repeat when Count exceeds the number of distinct candidates.
	Seeds []Seed
	// LearnerContext is an optional plain-text profile of the learner's
	// progress and common mistakes.
	LearnerContext string
}

// GeneratedItem is one validated exercise.
type GeneratedItem struct {
	ID             string
	SeedID         string
	Prompt         string
	ExpectedAnswer string
	Hint           string
}

// EvaluateItem is one learner answer to judge.
type EvaluateItem struct {
	UserAnswer     string
	ExpectedAnswer string
	// Context is the exercise prompt the answer responds to.
	Context   string
	TopicHint string
}

// EvaluateRequest describes a batch of answers to judge.
type EvaluateRequest struct {
	Owner    string
	Modality lang.Modality
	Items    []EvaluateItem
}

// Judgement is the evaluation of one answer.
type Judgement struct {
	Correct bool
	// Score is in [0, 1].
	Score         float64
	ErrorCategory lang.ErrorCategory
	// TopicID is the grammar topic the answer exercised, when known. It is
	// always one of the topic hints of the request.
	TopicID  string
	Feedback string
}
