package store

import (
	"encoding/json"
	"fmt"

	"github.com/TimurManjosov/jobwatch/internal/rules"
)

// marshalConditions encodes a rule tree for a JSON/JSONB column.
func marshalConditions(tree rules.Tree) ([]byte, error) {
	if len(tree.Groups) == 0 {
		tree = rules.NewTree()
	}
	b, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode job conditions: %w", err)
	}
	return b, nil
}

// unmarshalConditions decodes a stored rule tree. Missing data yields a fresh
// tree, so every loaded task satisfies the one-group minimum.
func unmarshalConditions(raw []byte) (rules.Tree, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return rules.NewTree(), nil
	}

	var tree rules.Tree
	if err := json.Unmarshal(raw, &tree); err != nil {
		return rules.Tree{}, fmt.Errorf("decode job conditions: %w", err)
	}
	return rules.Hydrate(tree.Groups)
}
