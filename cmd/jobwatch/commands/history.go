package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/cli"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [task-id]",
	Short: "Show recorded task changes",
	Long: `Show the audit trail of task changes, newest first. The server keeps
the most recent AUDIT_LOG_SIZE changes in memory.

Examples:
  jobwatch history
  jobwatch history 7c4a... --limit 10
  jobwatch history --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := apiClient()
		if err != nil {
			return err
		}

		taskID := ""
		if len(args) == 1 {
			taskID = args[0]
		}

		events, err := c.ListAudit(context.Background(), taskID, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if quiet {
			return nil
		}
		if len(events) == 0 && f == cli.FormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes recorded")
			return nil
		}
		return cli.PrintAudit(cmd.OutOrStdout(), events, f)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum number of changes to show (server default 50)")
}
