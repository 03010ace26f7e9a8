package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/cli"
	"github.com/TimurManjosov/jobwatch/internal/client"
	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/store"
)

var (
	condTarget          string
	condOperator        string
	condFrequency       int
	condText            string
	condNot             bool
	condCaseInsensitive bool
)

var conditionsCmd = &cobra.Command{
	Use:     "conditions",
	Aliases: []string{"cond"},
	Short:   "Edit the job conditions of a task",
	Long: `Show and edit the condition groups of a task.

A posting is accepted when every group holds; a group holds when every
sub-condition in it holds. An empty group holds for every posting.`,
}

var conditionsShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show the condition tree of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := apiClient()
		if err != nil {
			return err
		}
		task, err := c.GetTask(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}
		if quiet {
			return nil
		}
		return cli.PrintConditions(cmd.OutOrStdout(), task.JobConditions, f)
	},
}

var conditionsAddGroupCmd = &cobra.Command{
	Use:   "add-group <task-id>",
	Short: "Append an empty condition group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editConditions(cmd, func(c *client.Client, ctx context.Context) (*store.Task, error) {
			return c.AddGroup(ctx, args[0])
		}, "Added condition group")
	},
}

var conditionsRemoveGroupCmd = &cobra.Command{
	Use:   "remove-group <task-id> <group-id>",
	Short: "Remove a condition group",
	Long:  `Remove a condition group. The last remaining group cannot be removed.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editConditions(cmd, func(c *client.Client, ctx context.Context) (*store.Task, error) {
			return c.RemoveGroup(ctx, args[0], args[1])
		}, "Removed condition group")
	},
}

var conditionsAddCmd = &cobra.Command{
	Use:   "add <task-id> <group-id>",
	Short: "Add a sub-condition to a group",
	Long: `Add a sub-condition to a group. Flags that are not given keep the
defaults: target title, operator >=, frequency 1, empty text.

Operators: = != < <= > >= (aliases eq, neq, lt, lte, gt, gte).

Examples:
  jobwatch conditions add 7c4a... 91be... --text golang
  jobwatch conditions add 7c4a... 91be... --target description --operator "<" --frequency 1 --text php
  jobwatch conditions add 7c4a... 91be... --text senior --not --ci`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := subConditionInput(cmd)
		if err != nil {
			return err
		}
		return editConditions(cmd, func(c *client.Client, ctx context.Context) (*store.Task, error) {
			return c.AddSubCondition(ctx, args[0], args[1], in)
		}, "Added sub-condition")
	},
}

var conditionsRemoveCmd = &cobra.Command{
	Use:   "remove <task-id> <group-id> <condition-id>",
	Short: "Remove a sub-condition",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editConditions(cmd, func(c *client.Client, ctx context.Context) (*store.Task, error) {
			return c.RemoveSubCondition(ctx, args[0], args[1], args[2])
		}, "Removed sub-condition")
	},
}

func init() {
	rootCmd.AddCommand(conditionsCmd)
	conditionsCmd.AddCommand(conditionsShowCmd)
	conditionsCmd.AddCommand(conditionsAddGroupCmd)
	conditionsCmd.AddCommand(conditionsRemoveGroupCmd)
	conditionsCmd.AddCommand(conditionsAddCmd)
	conditionsCmd.AddCommand(conditionsRemoveCmd)

	conditionsAddCmd.Flags().StringVar(&condTarget, "target", string(rules.DefaultTarget), "Field to inspect (title, description)")
	conditionsAddCmd.Flags().StringVar(&condOperator, "operator", string(rules.DefaultOperator), "Comparison operator")
	conditionsAddCmd.Flags().IntVar(&condFrequency, "frequency", rules.DefaultFrequency, "Occurrence count to compare against")
	conditionsAddCmd.Flags().StringVar(&condText, "text", "", "Text to count")
	conditionsAddCmd.Flags().BoolVar(&condNot, "not", false, "Negate the comparison")
	conditionsAddCmd.Flags().BoolVar(&condCaseInsensitive, "ci", false, "Count case-insensitively")
}

// subConditionInput sends only the flags the user set, so the server
// fills in its defaults. Target and operator are checked locally first.
func subConditionInput(cmd *cobra.Command) (*client.SubConditionInput, error) {
	flags := cmd.Flags()
	in := &client.SubConditionInput{}
	set := false

	if flags.Changed("target") {
		if _, ok := rules.ParseTarget(condTarget); !ok {
			return nil, fmt.Errorf("invalid target %q, expected title or description", condTarget)
		}
		in.Target, set = &condTarget, true
	}
	if flags.Changed("operator") {
		if _, ok := rules.ParseOperator(condOperator); !ok {
			return nil, fmt.Errorf("invalid operator %q", condOperator)
		}
		in.Operator, set = &condOperator, true
	}
	if flags.Changed("frequency") {
		in.Frequency, set = &condFrequency, true
	}
	if flags.Changed("text") {
		in.Text, set = &condText, true
	}
	if flags.Changed("not") {
		in.Not, set = &condNot, true
	}
	if flags.Changed("ci") {
		in.CaseInsensitive, set = &condCaseInsensitive, true
	}

	if !set {
		return nil, nil
	}
	return in, nil
}

func editConditions(cmd *cobra.Command, edit func(*client.Client, context.Context) (*store.Task, error), done string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}

	task, err := edit(c, context.Background())
	if err != nil {
		return fmt.Errorf("failed to edit conditions: %w", err)
	}

	if quiet {
		return nil
	}
	infof(cmd, "%s on task '%s'", done, task.TaskName)
	f, err := outputFormat()
	if err != nil {
		return err
	}
	return cli.PrintConditions(cmd.OutOrStdout(), task.JobConditions, f)
}
