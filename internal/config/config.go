// Package config assembles the runtime configuration from defaults, an
// optional lexiz.yaml, a .env file and LEXIZ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/lexiz/internal/analytics"
	"github.com/abhisek/lexiz/internal/contentgen"
	"github.com/abhisek/lexiz/internal/exercise"
	"github.com/abhisek/lexiz/internal/llm"
	"github.com/abhisek/lexiz/internal/mastery"
	"github.com/abhisek/lexiz/internal/progress"
	"github.com/abhisek/lexiz/internal/spacedrep"
)

// EnvPrefix prefixes every environment override, e.g. LEXIZ_EXERCISE_MAX_COUNT.
const EnvPrefix = "LEXIZ"

// Config is the full application configuration. Each section is the
// owning package's own Config.
type Config struct {
	// DB is a SQLite file path or a postgres:// DSN. Empty means the
	// default data directory.
	DB    string    `mapstructure:"db"`
	Owner string    `mapstructure:"owner"`
	Log   LogConfig `mapstructure:"log"`

	LLM       llm.Config        `mapstructure:"llm"`
	Content   contentgen.Config `mapstructure:"content"`
	Scheduler spacedrep.Config  `mapstructure:"scheduler"`
	Mastery   mastery.Config    `mapstructure:"mastery"`
	Exercise  exercise.Config   `mapstructure:"exercise"`
	Analytics analytics.Config  `mapstructure:"analytics"`
	Progress  progress.Config   `mapstructure:"progress"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`  // dev or prod
	Level string `mapstructure:"level"` // zap level name
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Owner:     "default",
		Log:       LogConfig{Mode: "dev", Level: "warn"},
		LLM:       llm.DefaultConfig(),
		Content:   contentgen.DefaultConfig(),
		Scheduler: spacedrep.DefaultConfig(),
		Mastery:   mastery.DefaultConfig(),
		Exercise:  exercise.DefaultConfig(),
		Analytics: analytics.DefaultConfig(),
		Progress:  progress.DefaultConfig(),
	}
}

// Options tells Load where to look.
type Options struct {
	// File is an explicit config file. When set it must exist.
	File string
	// EnvFile is loaded into the process environment before anything is
	// read. Missing files are ignored. Defaults to ".env".
	EnvFile string
	// SearchPaths are directories searched for lexiz.{yaml,toml,json}
	// when File is empty. Defaults to the working directory and the user
	// config directory.
	SearchPaths []string
}

// Load builds the configuration. Precedence, highest first: environment,
// config file, defaults. When the selected LLM provider has no API key the
// vendors' own key variables are checked.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v, "", reflect.ValueOf(cfg))

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName("lexiz")
		for _, p := range searchPaths(opts.SearchPaths) {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if !cfg.LLM.HasKey() {
		if discovered, ok := llm.DiscoverConfig(cfg.LLM); ok {
			cfg.LLM = discovered
		}
	}
	return cfg, nil
}

// Validate checks every section the engine depends on. LLM credentials are
// checked separately by the commands that need a provider.
func (c Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner must not be empty")
	}
	if err := c.Mastery.Validate(); err != nil {
		return err
	}
	if err := c.Exercise.Validate(); err != nil {
		return err
	}
	if err := c.Analytics.Validate(); err != nil {
		return err
	}
	return c.Progress.Validate()
}

func searchPaths(paths []string) []string {
	if len(paths) > 0 {
		return paths
	}
	out := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		out = append(out, filepath.Join(dir, "lexiz"))
	}
	return out
}

// registerDefaults records every leaf of v as a viper default under its
// dotted mapstructure key. AutomaticEnv only resolves keys viper already
// knows, so this is what makes LEXIZ_* overrides reach Unmarshal.
func registerDefaults(vp *viper.Viper, prefix string, v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("mapstructure")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			registerDefaults(vp, key, fv)
			continue
		}
		vp.SetDefault(key, fv.Interface())
	}
}
