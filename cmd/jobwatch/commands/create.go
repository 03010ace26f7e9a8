package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/cli"
	"github.com/TimurManjosov/jobwatch/internal/client"
	"github.com/TimurManjosov/jobwatch/internal/rules"
)

var (
	createDelay      int
	createConditions string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new task",
	Long: `Create a new scraping task in the ready state.

Without --conditions the task starts with one empty condition group,
which accepts every posting.

Examples:
  jobwatch create "Go jobs"
  jobwatch create "Go jobs" --delay 3000 --conditions go.yaml
  cat go.json | jobwatch create "Go jobs" --conditions -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := client.TaskInput{TaskName: args[0], Delay: createDelay}

		if createConditions != "" {
			tree, err := readTree(cmd, createConditions)
			if err != nil {
				return err
			}
			in.JobConditions = &tree
		}

		c, err := apiClient()
		if err != nil {
			return err
		}

		task, err := c.CreateTask(context.Background(), in)
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		infof(cmd, "Successfully created task '%s' (%s)", task.TaskName, task.ID)
		if verbose {
			return printTask(cmd, task)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().IntVar(&createDelay, "delay", 2000, "Delay between job ads in milliseconds (min 1000)")
	createCmd.Flags().StringVar(&createConditions, "conditions", "", "YAML or JSON file with job conditions (- for stdin)")
}

func readTree(cmd *cobra.Command, path string) (rules.Tree, error) {
	data, err := cli.ReadFile(path, cmd.InOrStdin())
	if err != nil {
		return rules.Tree{}, fmt.Errorf("failed to read conditions: %w", err)
	}
	tree, err := cli.ParseTree(data)
	if err != nil {
		return rules.Tree{}, fmt.Errorf("invalid conditions in %s: %w", path, err)
	}
	return tree, nil
}
