package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexiz/internal/analytics"
	"github.com/abhisek/lexiz/internal/ui/components"
	"github.com/abhisek/lexiz/internal/ui/theme"
)

var analyticsCmd = &cobra.Command{
	Use:       "analytics [leeches|forecast|velocity|difficulty]",
	Short:     "Show learning analytics",
	Long:      "Show one analytics report, or all of them when no report is named.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"leeches", "forecast", "velocity", "difficulty"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		eng := a.Analytics

		if len(args) == 0 {
			r, err := eng.Full(ctx, owner())
			if err != nil {
				return err
			}
			if r.Words == 0 {
				fmt.Fprintln(out, "No words yet. Add some with 'lexiz words add'.")
				return nil
			}
			printVelocity(out, r.Velocity)
			printForecast(out, r.Forecast)
			printLeeches(out, r.Leeches)
			printDifficulty(out, r.Difficulty, eng.Config().MinGroupSize)
			return nil
		}

		switch args[0] {
		case "leeches":
			r, err := eng.Leeches(ctx, owner())
			if err != nil {
				return err
			}
			printLeeches(out, r)
		case "forecast":
			r, err := eng.Forecast(ctx, owner())
			if err != nil {
				return err
			}
			printForecast(out, r)
		case "velocity":
			r, err := eng.Velocity(ctx, owner())
			if err != nil {
				return err
			}
			printVelocity(out, r)
		case "difficulty":
			r, err := eng.Difficulty(ctx, owner())
			if err != nil {
				return err
			}
			printDifficulty(out, r, eng.Config().MinGroupSize)
		}
		return nil
	},
}

func printLeeches(out io.Writer, r analytics.LeechReport) {
	fmt.Fprintln(out, theme.Render(theme.Heading, "Leeches"))
	if r.Total == 0 {
		fmt.Fprintf(out, "  None. (a leech has %d+ attempts and fails %.0f%% or more)\n\n", r.MinAttempts, r.Threshold*100)
		return
	}
	for _, l := range r.Leeches {
		fmt.Fprintf(out, "  %-22s  %-22s  %3d tries  %s\n",
			truncate(l.Word.Target, 22),
			truncate(l.Word.Native, 22),
			l.Attempts,
			theme.Render(theme.Incorrect, fmt.Sprintf("%3.0f%% wrong", l.FailureRate*100)),
		)
	}
	if r.Total > len(r.Leeches) {
		fmt.Fprintf(out, "  ... and %d more\n", r.Total-len(r.Leeches))
	}
	fmt.Fprintln(out)
}

func printForecast(out io.Writer, r analytics.ForecastReport) {
	fmt.Fprintln(out, theme.Render(theme.Heading, "Review forecast"))
	if r.Overdue > 0 {
		fmt.Fprintln(out, theme.Render(theme.Learning, fmt.Sprintf("  %-10s  %4d", "overdue", r.Overdue)))
	}
	maxCount := 1
	for _, d := range r.Days {
		maxCount = max(maxCount, d.Count)
	}
	for _, d := range r.Days {
		label := d.Date.Format("Mon 02 Jan")
		if d.Today {
			label = "today"
		}
		bar := strings.Repeat("▇", d.Count*30/maxCount)
		if d.Count > 0 && bar == "" {
			bar = "▏"
		}
		fmt.Fprintf(out, "  %-10s  %4d  %s\n", label, d.Count, bar)
	}
	if r.Later > 0 {
		fmt.Fprintf(out, "  %-10s  %4d\n", "later", r.Later)
	}
	fmt.Fprintln(out)
}

func printVelocity(out io.Writer, r analytics.VelocityReport) {
	fmt.Fprintln(out, theme.Render(theme.Heading, "Velocity"))
	trend := string(r.Trend)
	switch r.Trend {
	case analytics.TrendImproving:
		trend = theme.Render(theme.Correct, trend)
	case analytics.TrendDeclining:
		trend = theme.Render(theme.Incorrect, trend)
	}
	fmt.Fprintf(out, "  added this week     %4d   (last week %d, %s)\n", r.AddedThisWeek, r.AddedLastWeek, trend)
	fmt.Fprintf(out, "  mastered this week  %4d   (total %d)\n", r.MasteredThisWeek, r.MasteredTotal)
	fmt.Fprintf(out, "  average ease        %4.2f\n", r.AvgEase)
	fmt.Fprintln(out, "  "+components.NewProgressBar("retention         ", r.RetentionRate, true, 50).View())
	fmt.Fprintln(out)
}

func printDifficulty(out io.Writer, r analytics.DifficultyReport, minGroup int) {
	fmt.Fprintln(out, theme.Render(theme.Heading, "Difficulty"))
	printGroups(out, "part of speech", r.ByPartOfSpeech, string(r.HardestPOS))
	printGroups(out, "level", r.ByLevel, string(r.HardestLevel))
	if r.HardestPOS == "" && r.HardestLevel == "" {
		fmt.Fprintf(out, "  %s\n", theme.Render(theme.Hint,
			fmt.Sprintf("Hardest groups are picked once a group has %d words.", minGroup)))
	}
	fmt.Fprintln(out)
}

func printGroups(out io.Writer, title string, groups []analytics.GroupStats, hardest string) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(out, "  %-12s  %5s  %7s  %7s\n", title, "words", "mastery", "wrong")
	for _, g := range groups {
		line := fmt.Sprintf("  %-12s  %5d  %7.1f  %6.0f%%", g.Key, g.Count, g.AvgMastery, g.FailureRate*100)
		if g.Key == hardest {
			line = theme.Render(theme.Weak, line+"  hardest")
		}
		fmt.Fprintln(out, line)
	}
}
