package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/client"
	"github.com/TimurManjosov/jobwatch/internal/store"
)

type taskAction func(c *client.Client, ctx context.Context, id string) (*store.Task, error)

// lifecycleCommand builds a one-argument command that calls action and
// reports the resulting task.
func lifecycleCommand(use, short, long, verb string, action taskAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}

			task, err := action(c, context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to %s task: %w", use, err)
			}

			infof(cmd, "Successfully %s task '%s' (%s, %s)", verb, task.TaskName, task.ID, task.Status)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(
		lifecycleCommand("duplicate", "Duplicate a task",
			`Copy a task, including its job conditions, into a new ready task.

Example:
  jobwatch duplicate 7c4a...`,
			"duplicated", (*client.Client).DuplicateTask),
		lifecycleCommand("start", "Start a ready task",
			`Move a ready task to processing. Only one task may be processing at a time.

Example:
  jobwatch start 7c4a...`,
			"started", (*client.Client).StartTask),
		lifecycleCommand("stop", "Stop a processing task",
			`Move a processing task to stopped. Stopped tasks can no longer be edited.

Example:
  jobwatch stop 7c4a...`,
			"stopped", (*client.Client).StopTask),
		lifecycleCommand("complete", "Mark a processing task as done",
			`Move a processing task to done.

Example:
  jobwatch complete 7c4a...`,
			"completed", (*client.Client).CompleteTask),
	)
}
