package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/jobwatch/internal/audit"
	"github.com/TimurManjosov/jobwatch/internal/engine"
	"github.com/TimurManjosov/jobwatch/internal/evaluation"
	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/store"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// PrintTasks outputs tasks in the specified format
func PrintTasks(w io.Writer, tasks []store.Task, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]store.Task{"tasks": tasks})
	case FormatYAML:
		return printYAML(w, map[string][]store.Task{"tasks": tasks})
	case FormatTable:
		return printTaskTable(w, tasks)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintTask outputs a single task. The table form also lists its conditions.
func PrintTask(w io.Writer, task *store.Task, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, task)
	case FormatYAML:
		return printYAML(w, task)
	case FormatTable:
		if err := printTaskTable(w, []store.Task{*task}); err != nil {
			return err
		}
		fmt.Fprintln(w)
		return printConditionTable(w, task.JobConditions)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintConditions outputs a rule tree.
func PrintConditions(w io.Writer, tree rules.Tree, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, tree)
	case FormatYAML:
		return printYAML(w, tree)
	case FormatTable:
		return printConditionTable(w, tree)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintResult outputs the breakdown of one evaluation.
func PrintResult(w io.Writer, result engine.Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, result)
	case FormatYAML:
		return printYAML(w, result)
	case FormatTable:
		if err := printResultTable(w, result); err != nil {
			return err
		}
		fmt.Fprintf(w, "Result: %s\n", verdict(result.Satisfied))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintBatch outputs one line per posting of a batch evaluation.
func PrintBatch(w io.Writer, results []evaluation.PostingResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string]any{"results": results, "matched": evaluation.Matched(results)})
	case FormatYAML:
		return printYAML(w, map[string]any{"results": results, "matched": evaluation.Matched(results)})
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Posting", "Result", "Failed Conditions")
		for _, r := range results {
			table.Append(r.ID, verdict(r.Result.Satisfied), strconv.Itoa(len(r.Result.Failed())))
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintAudit outputs audit events.
func PrintAudit(w io.Writer, events []audit.Event, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]audit.Event{"events": events})
	case FormatYAML:
		return printYAML(w, map[string][]audit.Event{"events": events})
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Time", "Action", "Task", "Actor", "Changed")
		for _, e := range events {
			changed := make([]string, 0, len(e.Changes))
			for k := range e.Changes {
				changed = append(changed, k)
			}
			sort.Strings(changed)
			table.Append(
				e.OccurredAt.Format("2006-01-02 15:04:05"),
				e.Action,
				e.TaskName+" ("+e.TaskID+")",
				e.Actor.Display,
				strings.Join(changed, ", "),
			)
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTaskTable(w io.Writer, tasks []store.Task) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Status", "Delay", "Groups", "Conditions", "Updated At")

	for _, task := range tasks {
		name := task.TaskName
		if len(name) > 40 {
			name = name[:37] + "..."
		}

		table.Append(
			task.ID,
			name,
			string(task.Status),
			fmt.Sprintf("%dms", task.Delay),
			strconv.Itoa(len(task.JobConditions.Groups)),
			strconv.Itoa(task.JobConditions.SubConditionCount()),
			task.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}

	return table.Render()
}

func printConditionTable(w io.Writer, tree rules.Tree) error {
	table := tablewriter.NewWriter(w)
	table.Header("Group", "Group ID", "Condition ID", "Condition")

	for gi, g := range tree.Groups {
		label := "#" + strconv.Itoa(gi+1)
		if len(g.SubConditions) == 0 {
			table.Append(label, g.ID, "-", "(matches everything)")
			continue
		}
		for _, s := range g.SubConditions {
			table.Append(label, g.ID, s.ID, rules.Summary(s))
		}
	}

	return table.Render()
}

func printResultTable(w io.Writer, result engine.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Group", "Condition", "Count", "Result")

	for gi, g := range result.Groups {
		label := fmt.Sprintf("#%d (%s)", gi+1, verdict(g.Satisfied))
		if len(g.SubConditions) == 0 {
			table.Append(label, "(empty group)", "-", verdict(true))
			continue
		}
		for _, s := range g.SubConditions {
			table.Append(label, s.Summary, strconv.Itoa(s.Count), verdict(s.Satisfied))
		}
	}

	return table.Render()
}

func verdict(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}
