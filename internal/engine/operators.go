package engine

import (
	"strings"

	"github.com/TimurManjosov/jobwatch/internal/rules"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OperatorHandler compares an observed count against a threshold.
type OperatorHandler interface {
	Check(count, frequency int) bool
}

type compareHandler struct {
	cmp func(a, b int) bool
}

func (h compareHandler) Check(count, frequency int) bool {
	return h.cmp(count, frequency)
}

var operatorHandlers = map[rules.Operator]OperatorHandler{
	rules.OpEq:  compareHandler{cmp: func(a, b int) bool { return a == b }},
	rules.OpNeq: compareHandler{cmp: func(a, b int) bool { return a != b }},
	rules.OpLt:  compareHandler{cmp: func(a, b int) bool { return a < b }},
	rules.OpLte: compareHandler{cmp: func(a, b int) bool { return a <= b }},
	rules.OpGt:  compareHandler{cmp: func(a, b int) bool { return a > b }},
	rules.OpGte: compareHandler{cmp: func(a, b int) bool { return a >= b }},
}

// getOperatorHandler resolves canonical symbols and their aliases.
func getOperatorHandler(op rules.Operator) (OperatorHandler, bool) {
	normalized, ok := rules.ParseOperator(string(op))
	if !ok {
		return nil, false
	}
	h, ok := operatorHandlers[normalized]
	return h, ok
}

// CountOccurrences counts non-overlapping occurrences of needle in haystack,
// scanning left to right and resuming after each match.
// An empty needle counts zero occurrences.
func CountOccurrences(haystack, needle string, caseInsensitive bool) int {
	if needle == "" {
		return 0
	}
	if caseInsensitive {
		haystack = normalizeCase(haystack)
		needle = normalizeCase(needle)
	}
	return strings.Count(haystack, needle)
}

// normalizeCase lower-cases with Unicode rules. A Caser keeps state, so each
// call gets its own.
func normalizeCase(value string) string {
	return cases.Lower(language.Und).String(value)
}
