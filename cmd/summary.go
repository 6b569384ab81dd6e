package cmd

import (
	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/output"
	"github.com/mj1618/page-tracker/internal/store"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <bundle>",
	Short: "Summarize an exported tracking session",
	Long: `Print total events, counts per event type, the session id and its time span
for a bundle written by an export (JSON, YAML or SQLite).

Examples:
  page-tracker summary tracking-data-session_1718000000000_a1b2c3d4e.json
  page-tracker summary tracking.db --text`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().Bool("text", false, "Print a human-readable block instead of structured output")
}

func runSummary(cmd *cobra.Command, args []string) error {
	b, err := store.ReadBundle(args[0])
	if err != nil {
		return err
	}
	sum := model.SummarizeBundle(b)
	if text, _ := cmd.Flags().GetBool("text"); text {
		_, err := cmd.OutOrStdout().Write([]byte(output.FormatSummary(sum)))
		return err
	}
	return output.Print(sum)
}
