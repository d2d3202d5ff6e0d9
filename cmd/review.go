package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexiz/internal/spacedrep"
	"github.com/abhisek/lexiz/internal/store"
	"github.com/abhisek/lexiz/internal/ui/theme"
)

var reviewCmd = &cobra.Command{
	Use:   "review <word-id>",
	Short: "Record a manual review of one word",
	Long: `Record one review outcome for a word and reschedule it.

The word can be given by its full id or any unique id prefix as shown by
'lexiz words list'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		correct, _ := cmd.Flags().GetBool("correct")
		wrong, _ := cmd.Flags().GetBool("wrong")
		latency, _ := cmd.Flags().GetDuration("latency")
		if correct == wrong {
			return errors.New("pass exactly one of --correct or --wrong")
		}
		if latency < 0 {
			return errors.New("--latency must not be negative")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		w, err := resolveWord(ctx, a.Store.Words(), args[0])
		if err != nil {
			return err
		}

		updated, err := a.Scheduler.Review(ctx, owner(), w.ID, spacedrep.Outcome{Correct: correct, Latency: latency})
		if errors.Is(err, store.ErrConcurrentModification) {
			return fmt.Errorf("%s was changed by another session, try again", w.Target)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		verdict := theme.Render(theme.Correct, "correct")
		if !correct {
			verdict = theme.Render(theme.Incorrect, "wrong")
		}
		fmt.Fprintf(out, "%s = %s: %s\n", updated.Target, updated.Native, verdict)
		fmt.Fprintf(out, "  mastery %d/10, ease %.2f, next review in %d day(s) on %s\n",
			updated.MasteryScore, updated.EaseFactor, updated.IntervalDays,
			updated.NextReviewAt.Local().Format("Mon 2006-01-02"))
		return nil
	},
}

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List words due for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		words, err := a.Scheduler.Due(cmd.Context(), owner(), time.Now(), limit)
		if err != nil {
			return err
		}
		if len(words) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing due. Come back later.")
			return nil
		}
		printDue(cmd, words, time.Now())
		return nil
	},
}

func printDue(cmd *cobra.Command, words []store.Word, now time.Time) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-8s  %-22s  %-22s  %-5s  %-7s  %s\n",
		"ID", "Word", "Translation", "Level", "Mastery", "Overdue")
	fmt.Fprintln(out, strings.Repeat("─", 80))
	for _, w := range words {
		fmt.Fprintf(out, "%-8s  %-22s  %-22s  %-5s  %4d/10  %s\n",
			truncate(w.ID, 8),
			truncate(w.Target, 22),
			truncate(w.Native, 22),
			w.Level,
			w.MasteryScore,
			overdueLabel(spacedrep.OverdueDays(&w, now)),
		)
	}
}

func overdueLabel(days float64) string {
	switch {
	case days < 1:
		return "today"
	case days < 2:
		return theme.Render(theme.Learning, "1 day")
	default:
		return theme.Render(theme.Incorrect, fmt.Sprintf("%d days", int(days)))
	}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent review history",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := store.QueryOpts{}
		if days > 0 {
			opts.From = time.Now().AddDate(0, 0, -days)
		}
		records, err := a.Store.History().Query(cmd.Context(), owner(), opts)
		if err != nil {
			return err
		}
		if limit > 0 && len(records) > limit {
			records = records[len(records)-limit:]
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No reviews recorded yet.")
			return nil
		}
		fmt.Fprintf(out, "%-6s  %-16s  %-5s  %-20s  %-7s  %5s  %-12s  %s\n",
			"Seq", "Time", "Kind", "Subject", "Result", "Score", "Error", "Latency")
		fmt.Fprintln(out, strings.Repeat("─", 96))
		for _, r := range records {
			result := theme.Render(theme.Correct, fmt.Sprintf("%-7s", "correct"))
			if !r.Correct {
				result = theme.Render(theme.Incorrect, fmt.Sprintf("%-7s", "wrong"))
			}
			latency := "-"
			if r.LatencyMs > 0 {
				latency = (time.Duration(r.LatencyMs) * time.Millisecond).Round(100 * time.Millisecond).String()
			}
			fmt.Fprintf(out, "%-6d  %-16s  %-5s  %-20s  %s  %5.2f  %-12s  %s\n",
				r.Seq,
				r.Timestamp.Local().Format("2006-01-02 15:04"),
				r.Kind,
				truncate(r.SubjectID, 20),
				result,
				r.Score,
				r.ErrorCategory,
				latency,
			)
		}
		return nil
	},
}

// resolveWord finds a word by exact id, then by unique id prefix.
func resolveWord(ctx context.Context, words store.WordRepo, ref string) (*store.Word, error) {
	w, err := words.Get(ctx, owner(), ref)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	all, err := words.List(ctx, owner())
	if err != nil {
		return nil, err
	}
	var match *store.Word
	for i := range all {
		if !strings.HasPrefix(all[i].ID, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("word id %q is ambiguous", ref)
		}
		match = &all[i]
	}
	if match == nil {
		return nil, fmt.Errorf("word %q: %w", ref, store.ErrNotFound)
	}
	return match, nil
}

func init() {
	reviewCmd.Flags().Bool("correct", false, "The word was recalled correctly")
	reviewCmd.Flags().Bool("wrong", false, "The word was not recalled")
	reviewCmd.Flags().Duration("latency", 0, "Response time, e.g. 4s (slow answers lower ease)")

	dueCmd.Flags().IntP("limit", "n", 20, "Maximum words to show (0 = all)")

	historyCmd.Flags().Int("days", 7, "Only reviews from the last N days (0 = all)")
	historyCmd.Flags().IntP("limit", "n", 50, "Show at most the N most recent reviews (0 = all)")
}
