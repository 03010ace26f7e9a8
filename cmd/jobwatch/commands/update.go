package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/client"
)

var (
	updateName       string
	updateDelay      int
	updateConditions string
)

var updateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update a task",
	Long: `Update the name, delay or job conditions of a task.
Values that are not given keep their current setting.

Examples:
  jobwatch update 7c4a... --name "Go backend jobs"
  jobwatch update 7c4a... --delay 5000
  jobwatch update 7c4a... --conditions go.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		c, err := apiClient()
		if err != nil {
			return err
		}

		ctx := context.Background()
		existing, err := c.GetTask(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get existing task: %w", err)
		}

		in := client.TaskInput{TaskName: existing.TaskName, Delay: existing.Delay}
		if cmd.Flags().Changed("name") {
			in.TaskName = updateName
		}
		if cmd.Flags().Changed("delay") {
			in.Delay = updateDelay
		}
		if updateConditions != "" {
			tree, err := readTree(cmd, updateConditions)
			if err != nil {
				return err
			}
			in.JobConditions = &tree
		}

		task, err := c.UpdateTask(ctx, id, in)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		infof(cmd, "Successfully updated task '%s' (%s)", task.TaskName, task.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateName, "name", "", "New task name")
	updateCmd.Flags().IntVar(&updateDelay, "delay", 0, "New delay in milliseconds")
	updateCmd.Flags().StringVar(&updateConditions, "conditions", "", "YAML or JSON file replacing the job conditions (- for stdin)")
}
