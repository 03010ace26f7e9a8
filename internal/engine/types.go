package engine

import "github.com/TimurManjosov/jobwatch/internal/rules"

// Fields maps each inspectable target to the posting's text for that field.
// A target missing from the map is treated as an empty string.
type Fields map[rules.Target]string

// Result is the deterministic output of Evaluate.
type Result struct {
	Satisfied bool          `json:"satisfied"`
	Groups    []GroupResult `json:"groups"`
}

// GroupResult is the outcome of one condition group.
type GroupResult struct {
	ID            string               `json:"id"`
	Satisfied     bool                 `json:"satisfied"`
	SubConditions []SubConditionResult `json:"subConditions"`
}

// SubConditionResult explains one sub-condition: the occurrences found, the
// raw comparison outcome, and the outcome after negation.
type SubConditionResult struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	Count      int    `json:"count"`
	Comparison bool   `json:"comparison"`
	Satisfied  bool   `json:"satisfied"`
}

// Failed returns the sub-condition results that were not satisfied, in tree
// order.
func (r Result) Failed() []SubConditionResult {
	var failed []SubConditionResult
	for _, g := range r.Groups {
		for _, s := range g.SubConditions {
			if !s.Satisfied {
				failed = append(failed, s)
			}
		}
	}
	return failed
}
