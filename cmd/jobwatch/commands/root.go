package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/jobwatch/internal/cli"
	"github.com/TimurManjosov/jobwatch/internal/client"
	"github.com/TimurManjosov/jobwatch/internal/store"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	env     string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "jobwatch",
	Short: "CLI tool for managing job scraping tasks",
	Long: `Jobwatch is a command-line tool for the jobwatch service.

It manages scraping tasks and their job conditions, checks postings
against condition trees, and imports or exports task definitions.

Examples:
  jobwatch list
  jobwatch create "Go jobs" --delay 2000 --conditions go.yaml
  jobwatch conditions add <task-id> <group-id> --operator ">=" --text golang
  jobwatch check --rules go.yaml --title "Senior Go Developer"
  jobwatch export --output tasks.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the jobwatch API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Admin key for authentication")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment from the config file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// apiClient resolves the target server and builds a client for it.
func apiClient() (*client.Client, error) {
	envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return client.NewClient(envCfg.BaseURL, envCfg.APIKey), nil
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(format)
}

// printTask writes a task unless --quiet is set.
func printTask(cmd *cobra.Command, task *store.Task) error {
	if quiet {
		return nil
	}
	f, err := outputFormat()
	if err != nil {
		return err
	}
	return cli.PrintTask(cmd.OutOrStdout(), task, f)
}

func infof(cmd *cobra.Command, msg string, args ...any) {
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), msg+"\n", args...)
	}
}
