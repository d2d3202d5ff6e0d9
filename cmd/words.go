package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexiz/internal/app"
	"github.com/abhisek/lexiz/internal/contentgen"
	"github.com/abhisek/lexiz/internal/importer"
	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/spacedrep"
	"github.com/abhisek/lexiz/internal/store"
	"github.com/abhisek/lexiz/internal/ui/theme"
)

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Manage vocabulary",
}

var wordsAddCmd = &cobra.Command{
	Use:   "add <target> <native>",
	Short: "Add a word with its translation",
	Long: `Add a word with its translation. When --pos or --level is left out and an
LLM provider is configured, the word is assessed to fill them in; otherwise
they default to noun and A1.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		posVal, _ := cmd.Flags().GetString("pos")
		genderVal, _ := cmd.Flags().GetString("gender")
		levelVal, _ := cmd.Flags().GetString("level")
		noAssess, _ := cmd.Flags().GetBool("no-assess")

		var (
			pos   lang.PartOfSpeech
			level lang.Level
			err   error
		)
		if posVal != "" {
			if pos, err = lang.ParsePartOfSpeech(posVal); err != nil {
				return err
			}
		}
		gender, err := lang.ParseGender(genderVal)
		if err != nil {
			return err
		}
		if levelVal != "" {
			if level, err = lang.ParseLevel(levelVal); err != nil {
				return err
			}
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		target, native := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
		existing, err := a.Store.Words().FindByText(ctx, owner(), native, target)
		switch {
		case err == nil:
			return fmt.Errorf("%q is already in your vocabulary (id %s)", target, existing.ID)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		w := &store.Word{
			Owner:        owner(),
			Target:       target,
			Native:       native,
			PartOfSpeech: pos,
			Gender:       gender,
			Level:        level,
		}
		if (pos == "" || level == "") && !noAssess {
			assessNewWord(cmd, a, w)
		}
		if w.PartOfSpeech == "" {
			w.PartOfSpeech = lang.Noun
		}
		if w.Level == "" {
			w.Level = lang.LevelA1
		}

		if err := a.Store.Words().Create(ctx, w); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s = %s (%s)\n", w.Target, w.Native, w.ID)
		fmt.Fprintln(cmd.OutOrStdout(), theme.Render(theme.Hint, describeWord(w)))
		return nil
	},
}

// assessNewWord fills the fields of w left empty from an assessment. A
// missing provider or a failed call leaves w unchanged.
func assessNewWord(cmd *cobra.Command, a *app.App, w *store.Word) {
	gen, err := a.Generator(cmd.Context())
	if err != nil {
		if !errors.Is(err, app.ErrNoProvider) {
			fmt.Fprintln(cmd.ErrOrStderr(), theme.Render(theme.Hint, "Could not assess the word: "+err.Error()))
		}
		return
	}
	got, err := gen.Assess(cmd.Context(), []contentgen.WordQuery{{Target: w.Target, Native: w.Native}})
	if err != nil || len(got) != 1 {
		fmt.Fprintln(cmd.ErrOrStderr(), theme.Render(theme.Hint, fmt.Sprintf("Could not assess the word, using defaults: %v", err)))
		return
	}
	if w.PartOfSpeech == "" {
		w.PartOfSpeech = got[0].PartOfSpeech
	}
	if w.Level == "" {
		w.Level = got[0].Level
	}
	if w.Gender == lang.GenderNone && w.PartOfSpeech == lang.Noun {
		w.Gender = got[0].Gender
	}
}

func describeWord(w *store.Word) string {
	parts := []string{string(w.PartOfSpeech)}
	if w.Gender != lang.GenderNone {
		parts = append(parts, string(w.Gender))
	}
	parts = append(parts, string(w.Level))
	return "  " + strings.Join(parts, ", ")
}

var wordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List words with their review state",
	RunE: func(cmd *cobra.Command, args []string) error {
		levelVal, _ := cmd.Flags().GetString("level")
		weakest, _ := cmd.Flags().GetBool("weakest")
		limit, _ := cmd.Flags().GetInt("limit")

		var level lang.Level
		if levelVal != "" {
			l, err := lang.ParseLevel(levelVal)
			if err != nil {
				return err
			}
			level = l
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		var words []store.Word
		if weakest {
			words, err = a.Store.Words().Weakest(ctx, owner(), level, limit)
		} else {
			words, err = a.Store.Words().List(ctx, owner())
			words = filterLevel(words, level)
			if limit > 0 && len(words) > limit {
				words = words[:limit]
			}
		}
		if err != nil {
			return fmt.Errorf("list words: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(words) == 0 {
			fmt.Fprintln(out, "No words yet. Add some with 'lexiz words add' or 'lexiz words import'.")
			return nil
		}
		printWords(cmd, words)
		return nil
	},
}

var wordsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import words (and a topics sheet) from .csv or .xlsx",
	Long: `Import words from a CSV file or an Excel workbook.

Columns are matched by header (croatian/target, english/native, pos, gender,
level). Without a header row the order is target, native, pos, gender, level.
A workbook sheet named "topics" (id, name, description, level) is imported
into the grammar topic catalog.

Rows missing a part of speech, a level or a translation are assessed by the
configured LLM provider unless --no-assess is given or --pos and --level
supply the defaults.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sheet, _ := cmd.Flags().GetString("sheet")
		levelVal, _ := cmd.Flags().GetString("level")
		posVal, _ := cmd.Flags().GetString("pos")
		noAssess, _ := cmd.Flags().GetBool("no-assess")

		opts := importer.Options{Owner: owner(), Sheet: sheet}
		if levelVal != "" {
			l, err := lang.ParseLevel(levelVal)
			if err != nil {
				return err
			}
			opts.DefaultLevel = l
		}
		if posVal != "" {
			p, err := lang.ParsePartOfSpeech(posVal)
			if err != nil {
				return err
			}
			opts.DefaultPOS = p
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		assessing := false
		if !noAssess && (opts.DefaultLevel == "" || opts.DefaultPOS == "") {
			gen, err := a.Generator(cmd.Context())
			switch {
			case err == nil:
				a.Importer.SetAssessor(gen)
				assessing = true
			case !errors.Is(err, app.ErrNoProvider):
				fmt.Fprintln(cmd.ErrOrStderr(), theme.Render(theme.Hint, "Rows will not be assessed: "+err.Error()))
			}
		}
		if !assessing && opts.DefaultLevel == "" {
			opts.DefaultLevel = lang.LevelA1
		}

		res, err := a.Importer.ImportFile(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Processed %d rows: %d added, %d already present", res.Processed, res.Created, res.Skipped)
		if res.Topics > 0 {
			fmt.Fprintf(out, ", %d topics", res.Topics)
		}
		fmt.Fprintln(out)
		for _, rowErr := range res.Errors {
			fmt.Fprintln(out, theme.Render(theme.Incorrect, "  skipped "+rowErr.Error()))
		}
		return nil
	},
}

func filterLevel(words []store.Word, level lang.Level) []store.Word {
	if level == "" {
		return words
	}
	out := words[:0]
	for _, w := range words {
		if w.Level == level {
			out = append(out, w)
		}
	}
	return out
}

func printWords(cmd *cobra.Command, words []store.Word) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-8s  %-22s  %-22s  %-11s  %-5s  %-7s  %-5s  %s\n",
		"ID", "Word", "Translation", "POS", "Level", "Mastery", "Ease", "Next review")
	fmt.Fprintln(out, strings.Repeat("─", 104))
	now := time.Now()
	for _, w := range words {
		next := "new"
		if w.NextReviewAt != nil {
			next = w.NextReviewAt.Local().Format("2006-01-02")
			if spacedrep.IsDue(&w, now) {
				next = theme.Render(theme.Learning, next+" due")
			}
		}
		fmt.Fprintf(out, "%-8s  %-22s  %-22s  %-11s  %-5s  %4d/10  %-5.2f  %s\n",
			truncate(w.ID, 8),
			truncate(w.Target, 22),
			truncate(w.Native, 22),
			w.PartOfSpeech,
			w.Level,
			w.MasteryScore,
			w.EaseFactor,
			next,
		)
	}
}

func init() {
	wordsAddCmd.Flags().String("pos", "", "Part of speech (default: assessed, else noun)")
	wordsAddCmd.Flags().String("gender", "", "Grammatical gender: m, f or n")
	wordsAddCmd.Flags().String("level", "", "CEFR level (default: assessed, else A1)")
	wordsAddCmd.Flags().Bool("no-assess", false, "Never ask the LLM provider to classify the word")

	wordsListCmd.Flags().String("level", "", "Only words at this CEFR level")
	wordsListCmd.Flags().Bool("weakest", false, "Order by lowest mastery")
	wordsListCmd.Flags().IntP("limit", "n", 0, "Maximum words to show (0 = all)")

	wordsImportCmd.Flags().String("sheet", "", "Workbook sheet with words (default: \"words\" or the first sheet)")
	wordsImportCmd.Flags().String("level", "", "Level for rows without one (default: assessed, else A1)")
	wordsImportCmd.Flags().String("pos", "", "Part of speech for rows without one (default: assessed)")
	wordsImportCmd.Flags().Bool("no-assess", false, "Never ask the LLM provider to classify rows")

	wordsCmd.AddCommand(wordsAddCmd)
	wordsCmd.AddCommand(wordsListCmd)
	wordsCmd.AddCommand(wordsImportCmd)
}
