// Package evaluation runs one rule tree against a batch of job postings.
//
// It sits on top of engine.Evaluate, which decides a single posting. A batch
// is evaluated concurrently; the tree is read-only, so no locking is needed.
// Results keep the order of the input postings.
//
// Edge Cases to Test:
//
//   - Empty batch: returns an empty, non-nil slice
//   - Postings without an ID: the index is used as the ID
//   - Large batches: goroutine count is capped by MaxWorkers
package evaluation

import (
	"runtime"
	"strconv"

	"github.com/TimurManjosov/jobwatch/internal/engine"
	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/sourcegraph/conc/iter"
)

// MaxWorkers caps the goroutines used for one batch.
var MaxWorkers = runtime.GOMAXPROCS(0)

// Posting is one scraped job posting to check.
type Posting struct {
	ID     string            `json:"id,omitempty"`
	Fields map[string]string `json:"fields"`
}

// PostingResult is the evaluation outcome of one posting.
type PostingResult struct {
	ID     string        `json:"id"`
	Result engine.Result `json:"result"`
}

// EvaluateAll evaluates every posting against tree.
func EvaluateAll(tree rules.Tree, postings []Posting) []PostingResult {
	if len(postings) == 0 {
		return []PostingResult{}
	}

	indexed := make([]indexedPosting, len(postings))
	for i, p := range postings {
		indexed[i] = indexedPosting{index: i, posting: p}
	}

	mapper := iter.Mapper[indexedPosting, PostingResult]{MaxGoroutines: MaxWorkers}
	return mapper.Map(indexed, func(ip *indexedPosting) PostingResult {
		id := ip.posting.ID
		if id == "" {
			id = strconv.Itoa(ip.index)
		}
		return PostingResult{
			ID:     id,
			Result: engine.Evaluate(tree, engine.FieldsFromMap(ip.posting.Fields)),
		}
	})
}

// Matched returns the IDs of the postings that satisfied the tree.
func Matched(results []PostingResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Result.Satisfied {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

type indexedPosting struct {
	index   int
	posting Posting
}
