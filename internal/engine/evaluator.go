package engine

import "github.com/TimurManjosov/jobwatch/internal/rules"

// Evaluate decides whether fields satisfy tree and explains the decision.
// Every group must hold, and every sub-condition inside a group must hold;
// an empty group holds vacuously. Evaluate never mutates its inputs and is
// safe for concurrent use.
func Evaluate(tree rules.Tree, fields Fields) Result {
	result := Result{
		Satisfied: true,
		Groups:    make([]GroupResult, 0, len(tree.Groups)),
	}

	for _, group := range tree.Groups {
		gr := evaluateGroup(group, fields)
		if !gr.Satisfied {
			result.Satisfied = false
		}
		result.Groups = append(result.Groups, gr)
	}
	return result
}

// Matches is Evaluate without the breakdown.
func Matches(tree rules.Tree, fields Fields) bool {
	for _, group := range tree.Groups {
		for _, sub := range group.SubConditions {
			if !evaluateSubCondition(sub, fields).Satisfied {
				return false
			}
		}
	}
	return true
}

func evaluateGroup(group rules.ConditionGroup, fields Fields) GroupResult {
	gr := GroupResult{
		ID:            group.ID,
		Satisfied:     true,
		SubConditions: make([]SubConditionResult, 0, len(group.SubConditions)),
	}
	for _, sub := range group.SubConditions {
		sr := evaluateSubCondition(sub, fields)
		if !sr.Satisfied {
			gr.Satisfied = false
		}
		gr.SubConditions = append(gr.SubConditions, sr)
	}
	return gr
}

func evaluateSubCondition(sub rules.SubCondition, fields Fields) SubConditionResult {
	count := CountOccurrences(fields[sub.Target], sub.Text, sub.CaseInsensitive)

	// An operator outside the supported set compares false; the tree is
	// validated before it is stored, so this only affects unvalidated input.
	comparison := false
	if handler, ok := getOperatorHandler(sub.Operator); ok {
		comparison = handler.Check(count, sub.Frequency)
	}

	return SubConditionResult{
		ID:         sub.ID,
		Summary:    rules.Summary(sub),
		Count:      count,
		Comparison: comparison,
		Satisfied:  comparison != sub.Not,
	}
}

// FieldsFromMap converts loosely keyed input (e.g. decoded JSON) into Fields.
// Keys are matched case-insensitively; unknown keys are dropped. When several
// keys name the same target, the canonical spelling wins, then the smallest key.
func FieldsFromMap(m map[string]string) Fields {
	fields := make(Fields, len(m))
	chosen := make(map[rules.Target]string, len(m))
	for k, v := range m {
		target, ok := rules.ParseTarget(k)
		if !ok {
			continue
		}
		if prev, seen := chosen[target]; seen && !preferKey(target, k, prev) {
			continue
		}
		chosen[target] = k
		fields[target] = v
	}
	return fields
}

func preferKey(target rules.Target, key, current string) bool {
	switch string(target) {
	case key:
		return true
	case current:
		return false
	}
	return key < current
}
