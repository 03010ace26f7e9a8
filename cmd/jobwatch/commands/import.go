package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/cli"
	"github.com/TimurManjosov/jobwatch/internal/client"
	"github.com/TimurManjosov/jobwatch/internal/validation"
)

var (
	importDryRun bool
	importForce  bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import tasks from a file",
	Long: `Import tasks from a YAML or JSON file written by export.

Every task is created as a new ready task; ids, statuses and timestamps
in the file are ignored.

Examples:
  jobwatch import tasks.yaml
  jobwatch import tasks.yaml --dry-run
  jobwatch import tasks.yaml --env prod --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cli.ReadFile(args[0], cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		importData, err := cli.ParseExport(data)
		if err != nil {
			return err
		}
		if len(importData.Tasks) == 0 {
			return fmt.Errorf("no tasks found in file")
		}

		out := cmd.OutOrStdout()
		if verbose {
			fmt.Fprintf(out, "Found %d task(s) to import\n", len(importData.Tasks))
		}

		if importDryRun {
			invalid := 0
			fmt.Fprintln(out, "Dry run mode - the following tasks would be imported:")
			for _, task := range importData.Tasks {
				tree := task.JobConditions
				res := validation.ValidateTask(validation.TaskValidationParams{
					TaskName:      task.TaskName,
					Delay:         task.Delay,
					JobConditions: &tree,
				})
				status := "ok"
				if !res.Valid {
					invalid++
					status = fmt.Sprintf("invalid: %v", res.Errors)
				}
				fmt.Fprintf(out, "  - %s (delay: %dms, groups: %d, conditions: %d) %s\n",
					task.TaskName, task.Delay, len(tree.Groups), tree.SubConditionCount(), status)
			}
			if invalid > 0 {
				return fmt.Errorf("%d task(s) failed validation", invalid)
			}
			return nil
		}

		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		successCount := 0
		errorCount := 0

		for _, task := range importData.Tasks {
			tree := task.JobConditions
			in := client.TaskInput{TaskName: task.TaskName, Delay: task.Delay, JobConditions: &tree}

			if verbose {
				fmt.Fprintf(out, "Importing task: %s\n", task.TaskName)
			}

			if _, err := c.CreateTask(ctx, in); err != nil {
				errorCount++
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to import task '%s': %v\n", task.TaskName, err)
				if !importForce {
					return fmt.Errorf("import failed, use --force to continue on errors")
				}
			} else {
				successCount++
			}
		}

		infof(cmd, "Import complete: %d succeeded, %d failed", successCount, errorCount)

		if errorCount > 0 && !importForce {
			return fmt.Errorf("import completed with errors")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without importing")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Continue on errors")
}
