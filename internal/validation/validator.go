// Package validation provides validation rules for task data and request parameters.
package validation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/TimurManjosov/jobwatch/internal/rules"
)

const (
	// MaxTaskNameLength is the maximum length for task names
	MaxTaskNameLength = 12
	// MinDelay is the minimum scrape delay in milliseconds
	MinDelay = 1000
	// MaxDelay is the maximum scrape delay in milliseconds
	MaxDelay = 10000
	// MaxFieldSize is the maximum size of a posting field in bytes
	MaxFieldSize = 256 * 1024 // 256KB
)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// TaskValidationParams contains the parameters for validating a task
type TaskValidationParams struct {
	TaskName      string
	Delay         int
	Status        string
	JobConditions *rules.Tree
}

// ValidateTask validates all task fields and returns a validation result.
// Status and JobConditions are only checked when set.
func ValidateTask(params TaskValidationParams) *ValidationResult {
	result := NewValidationResult()

	result.Merge(ValidateTaskName(params.TaskName))
	result.Merge(ValidateDelay(params.Delay))

	if params.Status != "" {
		result.Merge(ValidateStatus(params.Status))
	}
	if params.JobConditions != nil {
		result.Merge(ValidateJobConditions(*params.JobConditions))
	}

	return result
}

// ValidateTaskName validates a task name
func ValidateTaskName(name string) *ValidationResult {
	result := NewValidationResult()
	name = strings.TrimSpace(name)

	if name == "" {
		result.AddError("taskName", "Task Name is required.")
		return result
	}

	if utf8.RuneCountInString(name) > MaxTaskNameLength {
		result.AddError("taskName", "The name must be less than 13 characters.")
	}

	return result
}

// ValidateDelay validates a scrape delay in milliseconds
func ValidateDelay(delay int) *ValidationResult {
	result := NewValidationResult()

	switch {
	case delay < MinDelay:
		result.AddError("delay", "Delay must be greater than or equal to 1000.")
	case delay > MaxDelay:
		result.AddError("delay", "Delay must be less than or equal to 10000.")
	}

	return result
}

// ValidateStatus validates a task status name
func ValidateStatus(status string) *ValidationResult {
	result := NewValidationResult()

	switch status {
	case "ready", "processing", "done", "stopped":
	default:
		result.AddError("status", "Status must be one of ready, processing, done, stopped.")
	}

	return result
}

// ValidateJobConditions validates a rule tree
func ValidateJobConditions(tree rules.Tree) *ValidationResult {
	result := NewValidationResult()

	if len(tree.Groups) == 0 {
		result.AddError("jobConditions", "Job conditions must contain at least one group.")
		return result
	}
	if err := rules.ValidateTree(tree); err != nil {
		result.AddError("jobConditions", ConditionMessage(err))
	}

	return result
}

// ValidateFields validates the posting fields sent to the check endpoints.
// Keys naming the same target in different case ("title", "Title") are
// rejected.
func ValidateFields(fields map[string]string) *ValidationResult {
	result := NewValidationResult()
	seen := make(map[rules.Target]int, len(fields))

	for name, value := range fields {
		target, ok := rules.ParseTarget(name)
		if !ok {
			result.AddError("fields."+name, "Unknown field; expected title or description.")
			continue
		}
		if seen[target]++; seen[target] == 2 {
			result.AddError("fields."+string(target), "Field is given more than once; keys are case-insensitive.")
		}
		if len(value) > MaxFieldSize {
			result.AddError("fields."+name, "Field must not exceed 256KB.")
		}
	}

	return result
}

// ConditionMessage turns a rules validation error into a field message.
func ConditionMessage(err error) string {
	switch {
	case errors.Is(err, rules.ErrInvalidOperator):
		return "Operator must be one of =, !=, <, <=, >, >=."
	case errors.Is(err, rules.ErrInvalidTarget):
		return "Target must be title or description."
	case errors.Is(err, rules.ErrInvalidFrequency):
		return "Frequency must be greater than or equal to 0."
	case errors.Is(err, rules.ErrDuplicateID):
		return "Condition ids must be unique."
	default:
		return "Job conditions are invalid: " + err.Error()
	}
}
