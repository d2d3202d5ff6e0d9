package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexiz/internal/exercise"
	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/ui/components"
	"github.com/abhisek/lexiz/internal/ui/theme"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practice a batch of AI-generated exercises",
	Long: `Generate a batch of exercises, answer them one per line and have the
answers evaluated together. Vocabulary results reschedule the words; grammar
results update topic mastery.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		levelVal, _ := cmd.Flags().GetString("level")
		modalityVal, _ := cmd.Flags().GetString("modality")
		count, _ := cmd.Flags().GetInt("count")

		modality, err := lang.ParseModality(modalityVal)
		if err != nil {
			return fmt.Errorf("%w (one of %s)", err, modalityList())
		}
		cons := exercise.Constraints{Modality: modality}
		if levelVal != "" {
			if cons.Level, err = lang.ParseLevel(levelVal); err != nil {
				return err
			}
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		coord, err := a.Exercises(cmd.Context())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		coord.OnTransition(batchProgress(out))
		batch, err := coord.GenerateBatch(ctx, owner(), count, cons)
		if errors.Is(err, exercise.ErrNothingToPractice) {
			fmt.Fprintln(out, "Nothing to practice yet. Add words or topics first.")
			return nil
		}
		if err != nil {
			return err
		}

		answers, err := askAll(cmd, batch)
		if err != nil {
			_ = coord.Discard(owner())
			return err
		}

		results, err := coord.EvaluateBatch(ctx, owner(), batch.ID, answers)
		if err != nil {
			return err
		}

		printResults(out, batch, results)
		return nil
	},
}

// askAll prompts for every item in order and times each answer.
func askAll(cmd *cobra.Command, b *exercise.Batch) ([]exercise.Answer, error) {
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintln(out, theme.Render(theme.Title, fmt.Sprintf("%d exercises (%s)", len(b.Items), b.Constraints.Modality)))
	answers := make([]exercise.Answer, 0, len(b.Items))
	for i, it := range b.Items {
		card := fmt.Sprintf("%d/%d  %s", i+1, len(b.Items), it.Prompt)
		if it.Hint != "" {
			card += "\n" + theme.Render(theme.Hint, "hint: "+it.Hint)
		}
		fmt.Fprintln(out, theme.Render(theme.Card, card))
		fmt.Fprint(out, "> ")

		start := time.Now()
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return nil, fmt.Errorf("read answer: %w", err)
			}
			return nil, fmt.Errorf("input ended after %d of %d answers: %w", i, len(b.Items), io.ErrUnexpectedEOF)
		}
		answers = append(answers, exercise.Answer{
			ExerciseID: it.ID,
			Text:       strings.TrimSpace(in.Text()),
			Latency:    time.Since(start),
		})
	}
	return answers, nil
}

func printResults(out io.Writer, b *exercise.Batch, results []exercise.Result) {
	prompts := make(map[string]string, len(b.Items))
	for _, it := range b.Items {
		prompts[it.ID] = it.Prompt
	}

	fmt.Fprintln(out)
	for _, r := range results {
		mark := theme.Render(theme.Correct, "✓")
		if !r.Correct {
			mark = theme.Render(theme.Incorrect, "✗")
		}
		fmt.Fprintf(out, "%s %s\n", mark, truncate(prompts[r.ExerciseID], 70))
		if !r.Correct {
			fmt.Fprintf(out, "    expected: %s", r.ExpectedAnswer)
			if r.ErrorCategory != "" {
				fmt.Fprintf(out, "  [%s]", r.ErrorCategory)
			}
			fmt.Fprintln(out)
		}
		if r.Feedback != "" {
			fmt.Fprintln(out, "    "+theme.Render(theme.Hint, r.Feedback))
		}
	}

	s := exercise.Summarize(results)
	fmt.Fprintln(out)
	fmt.Fprintln(out, components.NewProgressBar(
		fmt.Sprintf("Score %d/%d", s.Correct, s.Total), s.Accuracy, true, 50).View())

	if len(s.ByCategory) > 0 {
		cats := make([]string, 0, len(s.ByCategory))
		for c := range s.ByCategory {
			cats = append(cats, string(c))
		}
		sort.Strings(cats)
		parts := make([]string, len(cats))
		for i, c := range cats {
			parts[i] = fmt.Sprintf("%s %d", c, s.ByCategory[lang.ErrorCategory(c)])
		}
		fmt.Fprintln(out, theme.Render(theme.Hint, "Mistakes: "+strings.Join(parts, ", ")))
	}
}

// batchProgress reports the batch steps that wait on the generator.
func batchProgress(out io.Writer) exercise.TransitionFunc {
	return func(_, _ string, from, to exercise.State) {
		switch to {
		case exercise.StateGenerating:
			fmt.Fprintln(out, theme.Render(theme.Hint, "Generating exercises..."))
		case exercise.StateEvaluating:
			fmt.Fprintln(out, theme.Render(theme.Hint, "Checking answers..."))
		case exercise.StateFailed:
			fmt.Fprintln(out, theme.Render(theme.Incorrect, "The batch failed while "+from.String()+"; nothing was recorded."))
		}
	}
}

func modalityList() string {
	all := lang.AllModalities()
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func init() {
	practiceCmd.Flags().StringP("modality", "m", string(lang.ModalityVocabNativeToTarget), "Exercise modality")
	practiceCmd.Flags().String("level", "", "Only practice this CEFR level")
	practiceCmd.Flags().IntP("count", "n", 5, "Number of exercises (3-20)")
}
