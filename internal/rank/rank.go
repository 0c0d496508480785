// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank asks an LLM collaborator to select and justify the top papers
// for a day. The collaborator is an opaque function: papers and criteria in,
// an ordered selection with short texts out. Its ordering and tie-breaking
// are its own; this package only validates that the answer references the
// papers it was given.
package rank

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Backend abstracts the ranking collaborator so tests can supply a mock.
type Backend interface {
	Name() string
	Rank(ctx context.Context, papers []types.PaperRecord, criteria Criteria) (Selection, error)
}

// Criteria describes what the collaborator is asked for.
type Criteria struct {
	// Date is the submission day the papers were fetched for.
	Date time.Time

	// TopN is the number of papers to select (default 10).
	TopN int
}

// Selection is the collaborator's raw answer, ordered best first.
type Selection struct {
	Papers []SelectedPaper `json:"papers" yaml:"papers"`
}

// SelectedPaper is one collaborator pick, referencing a fetched record by ID.
type SelectedPaper struct {
	ID            string `json:"id" yaml:"id"`
	Summary       string `json:"summary" yaml:"summary"`
	Justification string `json:"justification" yaml:"justification"`
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Rank invokes the collaborator with retry and validates its selection
// against the fetched records. An empty paper sequence short-circuits to an
// empty ranking without calling the collaborator. Collaborator failures
// surface as opaque errors after retries are exhausted.
func Rank(ctx context.Context, backend Backend, papers []types.PaperRecord, criteria Criteria, maxRetries int) ([]types.RankedPaper, error) {
	if len(papers) == 0 {
		return nil, nil
	}
	if criteria.TopN <= 0 {
		criteria.TopN = 10
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	sel, err := callWithRetry(ctx, backend, papers, criteria, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("ranking collaborator %s: %w", backend.Name(), err)
	}

	return validateSelection(sel, papers, criteria.TopN)
}

// callWithRetry calls the collaborator with exponential backoff.
func callWithRetry(ctx context.Context, backend Backend, papers []types.PaperRecord, criteria Criteria, maxRetries int) (Selection, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Selection{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		sel, err := backend.Rank(ctx, papers, criteria)
		if err == nil {
			return sel, nil
		}
		lastErr = err
	}
	return Selection{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// validateSelection resolves collaborator picks against the fetched records.
// Unknown IDs are validation errors; duplicate picks collapse to the first
// occurrence; the selection is truncated to topN. Ranks are assigned from
// the collaborator's order.
func validateSelection(sel Selection, papers []types.PaperRecord, topN int) ([]types.RankedPaper, error) {
	byID := make(map[string]types.PaperRecord, len(papers))
	for _, p := range papers {
		byID[p.ID] = p
	}

	seen := make(map[string]bool)
	var ranked []types.RankedPaper
	var errs []string

	for i, pick := range sel.Papers {
		rec, ok := byID[pick.ID]
		if !ok {
			errs = append(errs, fmt.Sprintf("pick %d: unknown paper id %q", i, pick.ID))
			continue
		}
		if seen[pick.ID] {
			continue
		}
		seen[pick.ID] = true

		ranked = append(ranked, types.RankedPaper{
			PaperRecord:   rec,
			Rank:          len(ranked) + 1,
			Summary:       strings.TrimSpace(pick.Summary),
			Justification: strings.TrimSpace(pick.Justification),
		})
		if len(ranked) == topN {
			break
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid selection: %s", strings.Join(errs, "; "))
	}
	return ranked, nil
}
