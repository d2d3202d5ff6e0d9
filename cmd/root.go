package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexiz/internal/app"
	"github.com/abhisek/lexiz/internal/config"
	"github.com/abhisek/lexiz/internal/logging"
	"github.com/abhisek/lexiz/internal/ui/theme"
)

var rootCmd = &cobra.Command{
	Use:   "lexiz",
	Short: "AI vocabulary and grammar tutor",
	Long: `Lexiz schedules vocabulary reviews with spaced repetition, generates
AI exercises in batches, tracks grammar topic mastery and reports learning
analytics.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// settings is filled by loadSettings before any subcommand runs.
var settings struct {
	cfg config.Config
	log *logging.Logger
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "SQLite file or postgres:// DSN (overrides LEXIZ_DB)")
	pf.String("config", "", "Config file (default: lexiz.yaml in . or the user config dir)")
	pf.String("owner", "", "Learner whose data is used (overrides LEXIZ_OWNER)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.Bool("no-color", false, "Disable styled output")

	rootCmd.AddCommand(wordsCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadSettings resolves configuration with flags taking precedence over
// environment and file.
func loadSettings(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Options{File: cfgFile})
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DB = v
	}
	if v, _ := cmd.Flags().GetString("owner"); v != "" {
		cfg.Owner = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		theme.SetPlain(true)
	}

	log, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	settings.cfg = cfg
	settings.log = log
	return nil
}

// openApp opens the store and services for the current settings.
func openApp() (*app.App, error) {
	return app.Open(settings.cfg, settings.log)
}

func owner() string {
	return settings.cfg.Owner
}
