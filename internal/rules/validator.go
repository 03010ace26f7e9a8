package rules

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by ValidateTree.
var (
	ErrInvalidTree      = errors.New("invalid condition tree")
	ErrInvalidOperator  = errors.New("invalid operator")
	ErrInvalidTarget    = errors.New("invalid target")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrDuplicateID      = errors.New("duplicate id")
)

// validOperators is the set of all recognised comparison operators.
var validOperators = map[Operator]struct{}{
	OpEq:  {},
	OpNeq: {},
	OpLt:  {},
	OpLte: {},
	OpGt:  {},
	OpGte: {},
}

// ValidOperator reports whether op is one of the canonical operators.
func ValidOperator(op Operator) bool {
	_, ok := validOperators[op]
	return ok
}

// ValidateTree performs strict validation of a rule tree.
// It is a pure function: it never mutates t and has no side effects.
// Every returned error also matches ErrInvalidTree.
func ValidateTree(t Tree) error {
	if len(t.Groups) == 0 {
		return fmt.Errorf("%w: at least one condition group is required", ErrInvalidTree)
	}

	groupIDs := make(map[string]struct{}, len(t.Groups))
	subIDs := make(map[string]struct{}, t.SubConditionCount())

	for gi, g := range t.Groups {
		if g.ID == "" {
			return fmt.Errorf("%w: group[%d] id must not be empty", ErrInvalidTree, gi)
		}
		if _, dup := groupIDs[g.ID]; dup {
			return fmt.Errorf("%w: %w: group id %q", ErrInvalidTree, ErrDuplicateID, g.ID)
		}
		groupIDs[g.ID] = struct{}{}

		for si, s := range g.SubConditions {
			if s.ID == "" {
				return fmt.Errorf("%w: group[%d].subConditions[%d] id must not be empty", ErrInvalidTree, gi, si)
			}
			if _, dup := subIDs[s.ID]; dup {
				return fmt.Errorf("%w: %w: sub-condition id %q", ErrInvalidTree, ErrDuplicateID, s.ID)
			}
			subIDs[s.ID] = struct{}{}

			if err := ValidateSubCondition(s); err != nil {
				return fmt.Errorf("%w: group[%d].subConditions[%d]: %w", ErrInvalidTree, gi, si, err)
			}
		}
	}

	return nil
}

// ValidateSubCondition checks target, operator and frequency of a single
// sub-condition. Ids are not checked here; empty text is allowed.
func ValidateSubCondition(s SubCondition) error {
	if _, ok := targetLabels[s.Target]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, s.Target)
	}
	if !ValidOperator(s.Operator) {
		return fmt.Errorf("%w: %q is not supported", ErrInvalidOperator, s.Operator)
	}
	if s.Frequency < 0 {
		return fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidFrequency, s.Frequency)
	}
	return nil
}
