package cmd

import (
	"fmt"
	"strings"

	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/output"
	"github.com/mj1618/page-tracker/internal/store"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events <bundle>",
	Short: "List the events of an exported session",
	Long: `Print the events of a bundle, optionally filtered by type.

Examples:
  page-tracker events session.json --type CLICK
  page-tracker events session.json --text`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().String("type", "", "Only this event type: PAGE_VIEW, CLICK, SCROLL, VISIBILITY_CHANGE, KEYDOWN, FORM_SUBMIT")
	eventsCmd.Flags().Bool("text", false, "Print human-readable lines instead of structured output")
}

func runEvents(cmd *cobra.Command, args []string) error {
	b, err := store.ReadBundle(args[0])
	if err != nil {
		return err
	}
	kind, _ := cmd.Flags().GetString("type")
	events := filterEvents(b.Events, model.EventType(strings.ToUpper(kind)))

	if text, _ := cmd.Flags().GetBool("text"); text {
		w := cmd.OutOrStdout()
		for _, ev := range events {
			if _, err := fmt.Fprint(w, output.FormatEvent(ev)); err != nil {
				return err
			}
		}
		return nil
	}
	return output.Print(events)
}

func filterEvents(events []model.Event, kind model.EventType) []model.Event {
	if kind == "" {
		return events
	}
	out := []model.Event{}
	for _, ev := range events {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}
