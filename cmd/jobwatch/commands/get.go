package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Get a task",
	Long: `Get details of a task, including its job conditions.

Examples:
  jobwatch get 7c4a...
  jobwatch get 7c4a... --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}

		task, err := c.GetTask(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		return printTask(cmd, task)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
