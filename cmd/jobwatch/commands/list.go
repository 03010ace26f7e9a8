package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/cli"
	"github.com/TimurManjosov/jobwatch/internal/store"
)

var (
	listStatus string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	Long: `List all scraping tasks, oldest first.

Examples:
  jobwatch list
  jobwatch list --status processing
  jobwatch list --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		if listStatus != "" && !store.Status(listStatus).Valid() {
			return fmt.Errorf("invalid status %q, expected ready, processing, done or stopped", listStatus)
		}

		c, err := apiClient()
		if err != nil {
			return err
		}

		snap, err := c.ListTasks(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		tasks := snap.Tasks
		if listStatus != "" {
			var filtered []store.Task
			for _, t := range tasks {
				if t.Status == store.Status(listStatus) {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}

		if quiet {
			return nil
		}
		if len(tasks) == 0 && f == cli.FormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks found")
			return nil
		}
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "Snapshot %s\n", snap.ETag)
		}
		return cli.PrintTasks(cmd.OutOrStdout(), tasks, f)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listStatus, "status", "", "Show only tasks in this status")
}
