package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexiz/internal/progress"
	"github.com/abhisek/lexiz/internal/ui/components"
	"github.com/abhisek/lexiz/internal/ui/theme"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show overall progress, activity and common mistakes",
	Long: `Show a summary of your vocabulary, grammar topics, recent activity and
error patterns. --context prints the learner profile that is sent along with
exercise generation requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asContext, _ := cmd.Flags().GetBool("context")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		r, err := a.Progress.Report(cmd.Context(), owner())
		if err != nil {
			return err
		}
		if asContext {
			text, err := progress.RenderContext(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, text)
			return nil
		}
		printSummary(out, r)
		printVocabulary(out, r.Vocabulary)
		printActivity(out, r.Activity)
		printErrorPatterns(out, r.Errors)
		return nil
	},
}

func printSummary(out io.Writer, r *progress.Report) {
	s := r.Summary
	fmt.Fprintln(out, theme.Render(theme.Heading, "Progress"))
	fmt.Fprintf(out, "  level           %s\n", s.Level)
	fmt.Fprintf(out, "  words         %5d   (%d mastered, %d due today)\n", s.TotalWords, s.MasteredWords, s.DueToday)
	fmt.Fprintf(out, "  topics        %5d   (%d practiced, %d strong)\n", r.Topics.Total, r.Topics.Practiced, r.Topics.Strong)
	fmt.Fprintf(out, "  exercises     %5d   (%d wrong)\n", s.TotalExercises, s.TotalErrors)
	streak := fmt.Sprintf("%d day(s)", s.StreakDays)
	if s.StreakDays > 0 {
		streak = theme.Render(theme.Correct, streak)
	}
	fmt.Fprintf(out, "  streak          %s\n", streak)
	if s.TotalExercises > 0 {
		accuracy := float64(s.TotalExercises-s.TotalErrors) / float64(s.TotalExercises)
		fmt.Fprintln(out, "  "+components.NewProgressBar("accuracy      ", accuracy, true, 40).View())
	}
	fmt.Fprintln(out)
}

func printVocabulary(out io.Writer, v progress.Vocabulary) {
	if len(v.ByLevel) == 0 {
		return
	}
	fmt.Fprintln(out, theme.Render(theme.Heading, "Vocabulary"))
	levels := make([]string, len(v.ByLevel))
	for i, l := range v.ByLevel {
		levels[i] = fmt.Sprintf("%s %d", l.Level, l.Count)
	}
	fmt.Fprintf(out, "  by level        %s\n", strings.Join(levels, "  "))
	fmt.Fprintf(out, "  by mastery      %s  %s  %s\n",
		theme.Render(theme.New, fmt.Sprintf("new %d", v.New)),
		theme.Render(theme.Learning, fmt.Sprintf("learning %d", v.Learning)),
		theme.Render(theme.Strong, fmt.Sprintf("mastered %d", v.Mastered)),
	)
	if len(v.Recent) > 0 {
		fmt.Fprintln(out, "  recently added")
		for _, w := range v.Recent {
			fmt.Fprintf(out, "    %-22s  %-22s  %2d/10\n", truncate(w.Target, 22), truncate(w.Native, 22), w.MasteryScore)
		}
	}
	fmt.Fprintln(out)
}

func printActivity(out io.Writer, a progress.Activity) {
	fmt.Fprintln(out, theme.Render(theme.Heading, "Activity"))
	maxCount := 1
	for _, d := range a.Days {
		maxCount = max(maxCount, d.Reviews)
	}
	for _, d := range a.Days {
		bar := strings.Repeat("▇", d.Reviews*30/maxCount)
		if d.Reviews > 0 && bar == "" {
			bar = "▏"
		}
		fmt.Fprintf(out, "  %-10s  %4d  %s\n", d.Date.Format("Mon 02 Jan"), d.Reviews, bar)
	}
	fmt.Fprintf(out, "  %d word and %d topic reviews\n\n", a.WordReviews, a.TopicReviews)
}

func printErrorPatterns(out io.Writer, e progress.ErrorPatterns) {
	fmt.Fprintln(out, theme.Render(theme.Heading, "Common mistakes"))
	if len(e.ByCategory) == 0 {
		fmt.Fprintln(out, "  None recorded yet.")
		fmt.Fprintln(out)
		return
	}
	for _, c := range e.ByCategory {
		fmt.Fprintf(out, "  %-18s  %4d\n", c.Category, c.Count)
	}
	if len(e.WeakAreas) > 0 {
		fmt.Fprintln(out, "  what to practice")
		for _, w := range e.WeakAreas {
			fmt.Fprintf(out, "    %s  %s\n", theme.Render(theme.Weak, string(w.Category)), theme.Render(theme.Hint, w.Suggestion))
		}
	}
	if len(e.Recent) > 0 {
		fmt.Fprintln(out, "  recent")
		for _, m := range e.Recent {
			cat := string(m.Category)
			if cat == "" {
				cat = "-"
			}
			fmt.Fprintf(out, "    %-10s  %-30s  %s\n", m.At.Format("02 Jan"), truncate(m.Subject, 30), theme.Render(theme.Incorrect, cat))
		}
	}
	fmt.Fprintln(out)
}

func init() {
	progressCmd.Flags().Bool("context", false, "Print the learner profile used for exercise generation")
}
