package rules

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors returned by tree operations.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvariantViolation = errors.New("invariant violation")
)

// newID generates identifiers for groups and sub-conditions.
// Overridden in tests that need deterministic ids.
var newID = uuid.NewString

// NewTree returns a tree holding exactly one empty group.
func NewTree() Tree {
	return Tree{Groups: []ConditionGroup{newGroup()}}
}

// NewSubCondition returns a sub-condition with default values and a fresh id.
func NewSubCondition() SubCondition {
	return SubCondition{
		ID:        newID(),
		Target:    DefaultTarget,
		Operator:  DefaultOperator,
		Frequency: DefaultFrequency,
	}
}

// Hydrate adopts previously stored groups as a tree.
// No groups yields a fresh tree; anything else must pass ValidateTree.
func Hydrate(groups []ConditionGroup) (Tree, error) {
	if len(groups) == 0 {
		return NewTree(), nil
	}
	t := Tree{Groups: groups}.Clone()
	if err := ValidateTree(t); err != nil {
		return Tree{}, err
	}
	return t, nil
}

// AddGroup appends an empty group with a fresh id.
func AddGroup(t Tree) Tree {
	out := t.Clone()
	out.Groups = append(out.Groups, newGroup())
	return out
}

// RemoveGroup removes the group with groupID. An unknown id is a no-op.
// Removing the last remaining group fails with ErrInvariantViolation and
// returns t unchanged.
func RemoveGroup(t Tree, groupID string) (Tree, error) {
	idx := t.groupIndex(groupID)
	if idx < 0 {
		return t.Clone(), nil
	}
	if len(t.Groups) <= 1 {
		return t.Clone(), fmt.Errorf("%w: cannot remove the last condition group", ErrInvariantViolation)
	}

	out := Tree{Groups: make([]ConditionGroup, 0, len(t.Groups)-1)}
	for i, g := range t.Clone().Groups {
		if i != idx {
			out.Groups = append(out.Groups, g)
		}
	}
	return out, nil
}

// AddSubCondition appends a sub-condition to the named group. A nil sub
// appends the defaults. The appended sub-condition always receives a fresh id,
// which keeps ids unique across the whole tree. A supplied sub that fails
// ValidateSubCondition is rejected with ErrInvalidTree and t is unchanged.
func AddSubCondition(t Tree, groupID string, sub *SubCondition) (Tree, error) {
	idx := t.groupIndex(groupID)
	if idx < 0 {
		return t.Clone(), fmt.Errorf("%w: condition group %q", ErrNotFound, groupID)
	}

	s := NewSubCondition()
	if sub != nil {
		if err := ValidateSubCondition(*sub); err != nil {
			return t.Clone(), fmt.Errorf("%w: %w", ErrInvalidTree, err)
		}
		s = *sub
		s.ID = newID()
	}

	out := t.Clone()
	out.Groups[idx].SubConditions = append(out.Groups[idx].SubConditions, s)
	return out, nil
}

// RemoveSubCondition removes the named sub-condition from the named group.
// It is a no-op when either id is absent; a group may become empty.
func RemoveSubCondition(t Tree, groupID, subID string) Tree {
	out := t.Clone()
	idx := out.groupIndex(groupID)
	if idx < 0 {
		return out
	}

	subs := out.Groups[idx].SubConditions
	kept := subs[:0]
	for _, s := range subs {
		if s.ID != subID {
			kept = append(kept, s)
		}
	}
	out.Groups[idx].SubConditions = kept
	return out
}

func (t Tree) groupIndex(id string) int {
	for i, g := range t.Groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func newGroup() ConditionGroup {
	return ConditionGroup{ID: newID(), SubConditions: []SubCondition{}}
}

// Normalize returns a copy of t with operator aliases and target spellings
// in canonical form and fresh ids for groups and sub-conditions that have
// none. Values that cannot be parsed are kept for ValidateTree to report.
func Normalize(t Tree) Tree {
	out := t.Clone()
	for gi := range out.Groups {
		g := &out.Groups[gi]
		if g.ID == "" {
			g.ID = newID()
		}
		if g.SubConditions == nil {
			g.SubConditions = []SubCondition{}
		}
		for si := range g.SubConditions {
			s := &g.SubConditions[si]
			if s.ID == "" {
				s.ID = newID()
			}
			if target, ok := ParseTarget(string(s.Target)); ok {
				s.Target = target
			}
			if op, ok := ParseOperator(string(s.Operator)); ok {
				s.Operator = op
			}
		}
	}
	return out
}
