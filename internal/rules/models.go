package rules

import (
	"strconv"
	"strings"
)

// Operator compares the observed occurrence count against a threshold.
type Operator string

// Supported comparison operators (canonical symbols, used in JSON and summaries).
const (
	OpEq  Operator = "="
	OpNeq Operator = "!="
	OpLt  Operator = "<"
	OpLte Operator = "<="
	OpGt  Operator = ">"
	OpGte Operator = ">="
)

// Target names the text field of a posting a sub-condition inspects.
type Target string

const (
	TargetTitle       Target = "title"
	TargetDescription Target = "description"
)

// Targets lists every inspectable field in display order.
var Targets = []Target{TargetTitle, TargetDescription}

var targetLabels = map[Target]string{
	TargetTitle:       "Job Title",
	TargetDescription: "Job Description",
}

// Defaults applied by AddSubCondition when no sub-condition is supplied.
const (
	DefaultTarget    = TargetTitle
	DefaultOperator  = OpGte
	DefaultFrequency = 1
)

// SubCondition is the atomic matching rule: count Text in the Target field
// and compare the count against Frequency.
type SubCondition struct {
	ID              string   `json:"id" yaml:"id"`
	Target          Target   `json:"target" yaml:"target"`
	Operator        Operator `json:"operator" yaml:"operator"`
	Frequency       int      `json:"frequency" yaml:"frequency"`
	Text            string   `json:"text" yaml:"text"`
	Not             bool     `json:"not" yaml:"not"`
	CaseInsensitive bool     `json:"caseInsensitive" yaml:"caseInsensitive"`
}

// ConditionGroup is an AND-combined set of sub-conditions.
type ConditionGroup struct {
	ID            string         `json:"id" yaml:"id"`
	SubConditions []SubCondition `json:"subConditions" yaml:"subConditions"`
}

// Tree is the ordered set of condition groups deciding whether a posting is
// accepted. A well-formed tree always holds at least one group.
type Tree struct {
	Groups []ConditionGroup `json:"groups" yaml:"groups"`
}

// Clone returns a deep copy that shares no slices with t.
func (t Tree) Clone() Tree {
	groups := make([]ConditionGroup, len(t.Groups))
	for i, g := range t.Groups {
		subs := make([]SubCondition, len(g.SubConditions))
		copy(subs, g.SubConditions)
		groups[i] = ConditionGroup{ID: g.ID, SubConditions: subs}
	}
	return Tree{Groups: groups}
}

// Group returns the group with the given id.
func (t Tree) Group(id string) (ConditionGroup, bool) {
	for _, g := range t.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return ConditionGroup{}, false
}

// SubConditionCount returns the number of sub-conditions across all groups.
func (t Tree) SubConditionCount() int {
	n := 0
	for _, g := range t.Groups {
		n += len(g.SubConditions)
	}
	return n
}

// TargetLabel returns the human-readable name of a target ("Job Title").
// Unknown targets are returned verbatim.
func TargetLabel(target Target) string {
	if label, ok := targetLabels[target]; ok {
		return label
	}
	return string(target)
}

// ParseTarget accepts a target name in any case.
func ParseTarget(s string) (Target, bool) {
	t := Target(strings.ToLower(strings.TrimSpace(s)))
	_, ok := targetLabels[t]
	return t, ok
}

// ParseOperator normalizes an operator symbol or alias to its canonical form.
func ParseOperator(s string) (Operator, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "==", "eq", "equals":
		return OpEq, true
	case "!=", "<>", "neq", "not_equals":
		return OpNeq, true
	case "<", "lt":
		return OpLt, true
	case "<=", "lte":
		return OpLte, true
	case ">", "gt":
		return OpGt, true
	case ">=", "gte":
		return OpGte, true
	default:
		return Operator(s), false
	}
}

// Summary renders a sub-condition the way the editor shows it on a chip,
// e.g. `not, ci, Job Description, <=, 3, "desc"`.
func Summary(s SubCondition) string {
	parts := make([]string, 0, 6)
	if s.Not {
		parts = append(parts, "not")
	}
	if s.CaseInsensitive {
		parts = append(parts, "ci")
	}
	parts = append(parts,
		TargetLabel(s.Target),
		string(s.Operator),
		strconv.Itoa(s.Frequency),
		`"`+s.Text+`"`,
	)
	return strings.Join(parts, ", ")
}
