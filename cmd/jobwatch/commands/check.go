package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/jobwatch/internal/cli"
	"github.com/TimurManjosov/jobwatch/internal/engine"
	"github.com/TimurManjosov/jobwatch/internal/evaluation"
	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/validation"
)

// errNotMatched is returned with --fail when a posting is rejected.
var errNotMatched = errors.New("posting does not satisfy the job conditions")

var (
	checkRules       string
	checkTitle       string
	checkDescription string
	checkDescFile    string
	checkPostings    string
	checkRemote      bool
	checkFail        bool
)

var checkCmd = &cobra.Command{
	Use:   "check [task-id]",
	Short: "Check job postings against job conditions",
	Long: `Evaluate postings against a condition tree and print the breakdown.

With a task id the task's stored conditions are evaluated by the server.
With --rules the tree is read from a YAML or JSON file and evaluated
locally, or by the server when --remote is set.

A single posting is given with --title and --description (or
--description-file). A batch is read with --postings from a YAML or JSON
list of {id, fields: {title, description}}.

Examples:
  jobwatch check 7c4a... --title "Senior Go Developer"
  jobwatch check --rules go.yaml --title "Go Developer" --description-file ad.txt
  jobwatch check --rules go.yaml --postings scraped.yaml --format json
  jobwatch check --rules go.yaml --title "PHP Developer" --fail`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		if len(args) == 0 && checkRules == "" {
			return fmt.Errorf("either a task id or --rules is required")
		}
		if len(args) == 1 && checkRules != "" {
			return fmt.Errorf("a task id and --rules cannot be combined")
		}

		ctx := context.Background()

		if checkPostings != "" {
			if len(args) == 1 {
				return fmt.Errorf("--postings requires --rules")
			}
			return checkBatch(cmd, ctx, f)
		}

		fields, err := postingFields(cmd)
		if err != nil {
			return err
		}

		var result engine.Result
		switch {
		case len(args) == 1:
			c, err := apiClient()
			if err != nil {
				return err
			}
			resp, err := c.CheckTask(ctx, args[0], fields)
			if err != nil {
				return fmt.Errorf("failed to check task: %w", err)
			}
			result = resp.Result
		default:
			tree, err := readTree(cmd, checkRules)
			if err != nil {
				return err
			}
			if checkRemote {
				c, err := apiClient()
				if err != nil {
					return err
				}
				resp, err := c.Check(ctx, tree, fields)
				if err != nil {
					return fmt.Errorf("failed to check posting: %w", err)
				}
				result = resp.Result
			} else {
				result = engine.Evaluate(tree, engine.FieldsFromMap(fields))
			}
		}

		if !quiet {
			if err := cli.PrintResult(cmd.OutOrStdout(), result, f); err != nil {
				return err
			}
		}
		if checkFail && !result.Satisfied {
			return errNotMatched
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkRules, "rules", "", "YAML or JSON file with job conditions (- for stdin)")
	checkCmd.Flags().StringVar(&checkTitle, "title", "", "Job title of the posting")
	checkCmd.Flags().StringVar(&checkDescription, "description", "", "Job description of the posting")
	checkCmd.Flags().StringVar(&checkDescFile, "description-file", "", "Read the job description from a file")
	checkCmd.Flags().StringVar(&checkPostings, "postings", "", "YAML or JSON file with a list of postings")
	checkCmd.Flags().BoolVar(&checkRemote, "remote", false, "Evaluate --rules on the server instead of locally")
	checkCmd.Flags().BoolVar(&checkFail, "fail", false, "Exit with an error when a posting is rejected")
}

func postingFields(cmd *cobra.Command) (map[string]string, error) {
	description := checkDescription
	if checkDescFile != "" {
		if checkDescription != "" {
			return nil, fmt.Errorf("--description and --description-file cannot be combined")
		}
		data, err := cli.ReadFile(checkDescFile, cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read description: %w", err)
		}
		description = string(data)
	}

	fields := map[string]string{
		string(rules.TargetTitle):       checkTitle,
		string(rules.TargetDescription): description,
	}
	if res := validation.ValidateFields(fields); !res.Valid {
		for field, msg := range res.Errors {
			return nil, fmt.Errorf("%s: %s", field, msg)
		}
	}
	return fields, nil
}

func checkBatch(cmd *cobra.Command, ctx context.Context, f cli.OutputFormat) error {
	tree, err := readTree(cmd, checkRules)
	if err != nil {
		return err
	}
	data, err := cli.ReadFile(checkPostings, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read postings: %w", err)
	}
	var postings []evaluation.Posting
	if err := yaml.Unmarshal(data, &postings); err != nil {
		return fmt.Errorf("failed to parse postings: %w", err)
	}

	var results []evaluation.PostingResult
	if checkRemote {
		c, err := apiClient()
		if err != nil {
			return err
		}
		resp, err := c.CheckBatch(ctx, tree, postings)
		if err != nil {
			return fmt.Errorf("failed to check postings: %w", err)
		}
		results = resp.Results
	} else {
		results = evaluation.EvaluateAll(tree, postings)
	}

	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d postings matched\n", len(evaluation.Matched(results)), len(results))
	}
	if !quiet {
		if err := cli.PrintBatch(cmd.OutOrStdout(), results, f); err != nil {
			return err
		}
	}
	if checkFail && len(evaluation.Matched(results)) < len(results) {
		return errNotMatched
	}
	return nil
}
