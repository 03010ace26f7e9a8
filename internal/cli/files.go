package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/store"
)

// ExportFile is the document written by export and read by import.
type ExportFile struct {
	Tasks []store.Task `yaml:"tasks" json:"tasks"`
}

// ReadFile reads path, or stdin when path is "-".
func ReadFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// ParseTree decodes a YAML or JSON rule tree, {"groups": [...]}, and
// normalizes operator aliases and missing ids. The result is validated.
func ParseTree(data []byte) (rules.Tree, error) {
	var tree rules.Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return rules.Tree{}, fmt.Errorf("failed to parse conditions: %w", err)
	}
	tree = rules.Normalize(tree)
	if err := rules.ValidateTree(tree); err != nil {
		return rules.Tree{}, err
	}
	return tree, nil
}

// ParseExport decodes an export document and normalizes every task's tree.
func ParseExport(data []byte) (*ExportFile, error) {
	var file ExportFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	for i := range file.Tasks {
		if len(file.Tasks[i].JobConditions.Groups) == 0 {
			file.Tasks[i].JobConditions = rules.NewTree()
			continue
		}
		file.Tasks[i].JobConditions = rules.Normalize(file.Tasks[i].JobConditions)
	}
	return &file, nil
}

// Confirm asks a yes/no question; anything but y or yes is a no.
func Confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s (y/N): ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
