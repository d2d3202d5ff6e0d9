package contentgen

import "time"

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// Languages named in prompts.
	TargetLanguage string `mapstructure:"target_language"`
	NativeLanguage string `mapstructure:"native_language"`

	// Token budget for a generate call is BaseMaxTokens plus
	// MaxTokensPerItem for every requested item; likewise for evaluation.
	BaseMaxTokens    int `mapstructure:"base_max_tokens"`
	MaxTokensPerItem int `mapstructure:"max_tokens_per_item"`

	GenerateTemperature float64 `mapstructure:"generate_temperature"`
	EvaluateTemperature float64 `mapstructure:"evaluate_temperature"`
	AssessTemperature   float64 `mapstructure:"assess_temperature"`

	// AssessChunkSize is how many words go into one assess call.
	AssessChunkSize int `mapstructure:"assess_chunk_size"`

	// MaxPriorPrompts is how many remembered prompts go into the
	// "already asked" section of a generate prompt.
	MaxPriorPrompts int `mapstructure:"max_prior_prompts"`

	// Validators run in order on every generated item; an item failing
	// any of them is dropped.
	Validators []Validator `mapstructure:"-"`

	Session SessionConfig `mapstructure:"session"`
}

// DefaultConfig returns a Config with the standard validator chain and
// recommended defaults.
func DefaultConfig() Config {
	return Config{
		TargetLanguage:      "Croatian",
		NativeLanguage:      "English",
		BaseMaxTokens:       256,
		MaxTokensPerItem:    160,
		GenerateTemperature: 0.7,
		EvaluateTemperature: 0.2,
		AssessTemperature:   0.2,
		AssessChunkSize:     10,
		MaxPriorPrompts:     20,
		Validators: []Validator{
			&StructuralValidator{},
			&SeedValidator{},
			&EchoValidator{},
		},
		Session: SessionConfig{
			Capacity: 256,
			TTL:      2 * time.Hour,
			MaxTurns: 60,
		},
	}
}

func (c Config) tokenBudget(items int) int {
	return c.BaseMaxTokens + c.MaxTokensPerItem*items
}
