package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/cli"
)

var (
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Long: `Delete a task. Deleting an unknown task is not an error.

Examples:
  jobwatch delete 7c4a...
  jobwatch delete 7c4a... --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		c, err := apiClient()
		if err != nil {
			return err
		}

		if !deleteForce && !quiet {
			ok, err := cli.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Are you sure you want to delete task '%s'?", id))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
				return nil
			}
		}

		if err := c.DeleteTask(context.Background(), id); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}

		infof(cmd, "Successfully deleted task '%s'", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation prompt")
}
