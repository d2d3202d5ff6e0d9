package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexiz/internal/lang"
	"github.com/abhisek/lexiz/internal/mastery"
	"github.com/abhisek/lexiz/internal/store"
	"github.com/abhisek/lexiz/internal/ui/components"
	"github.com/abhisek/lexiz/internal/ui/theme"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage the grammar topic catalog",
}

var topicsAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add or replace a grammar topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		levelVal, _ := cmd.Flags().GetString("level")

		level, err := lang.ParseLevel(levelVal)
		if err != nil {
			return err
		}
		id := strings.TrimSpace(args[0])
		if name == "" {
			name = id
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		t := store.GrammarTopic{ID: id, Name: name, Description: description, Level: level}
		if err := a.Store.Topics().UpsertTopic(cmd.Context(), t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved topic %s (%s)\n", t.ID, t.Level)
		return nil
	},
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List topics with your mastery, weakest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		levelVal, _ := cmd.Flags().GetString("level")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.Tracker.Progress(cmd.Context(), owner())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(statuses) == 0 {
			fmt.Fprintln(out, "No grammar topics yet. Add some with 'lexiz topics add'.")
			return nil
		}

		fmt.Fprintf(out, "%-20s  %-26s  %-5s  %-9s  %-8s  %s\n",
			"ID", "Name", "Level", "Status", "Practice", "Mastery")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, st := range statuses {
			if levelVal != "" && !strings.EqualFold(string(st.Topic.Level), levelVal) {
				continue
			}
			bar := components.NewProgressBar("", float64(st.Percent)/100, true, 28).View()
			fmt.Fprintf(out, "%-20s  %-26s  %-5s  %s  %8d  %s\n",
				truncate(st.Topic.ID, 20),
				truncate(st.Topic.Name, 26),
				st.Topic.Level,
				labelCell(st.Label),
				st.Progress.TimesPracticed,
				bar,
			)
		}
		return nil
	},
}

// labelCell pads before styling so escape codes do not break alignment.
func labelCell(l mastery.Label) string {
	cell := fmt.Sprintf("%-9s", l)
	switch l {
	case mastery.LabelWeak:
		return theme.Render(theme.Weak, cell)
	case mastery.LabelLearning:
		return theme.Render(theme.Learning, cell)
	case mastery.LabelStrong:
		return theme.Render(theme.Strong, cell)
	default:
		return theme.Render(theme.New, cell)
	}
}

func init() {
	topicsAddCmd.Flags().String("name", "", "Display name (default: the id)")
	topicsAddCmd.Flags().String("description", "", "What the topic covers; used in exercise prompts")
	topicsAddCmd.Flags().String("level", "A1", "CEFR level")

	topicsListCmd.Flags().String("level", "", "Only topics at this CEFR level")

	topicsCmd.AddCommand(topicsAddCmd)
	topicsCmd.AddCommand(topicsListCmd)
}
