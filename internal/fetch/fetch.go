// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch queries the arXiv API for papers submitted on a target day.
// See docs/ARCHITECTURE § Fetch.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// FetchError classifies upstream catalog failures: an unreachable endpoint,
// a non-200 response, or an unparseable feed. Individual malformed entries
// are not FetchErrors; they are skipped with a warning.
type FetchError struct {
	Category string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Category, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Output holds the fetched records and per-run statistics.
type Output struct {
	// Papers is the deduplicated record sequence in catalog return order,
	// merged across categories in input order.
	Papers []types.PaperRecord

	// DupsRemoved counts records dropped because their ID was already seen.
	DupsRemoved int

	// SkippedMalformed counts feed entries dropped for missing fields.
	SkippedMalformed int

	// CategoryErrors lists categories whose fetch failed outright.
	CategoryErrors []string
}

// Fetch retrieves every paper submitted on the target day in any of the
// configured categories. Categories are queried concurrently, staggered by
// the page delay, and merged deterministically: category input order first,
// catalog return order within a category, first occurrence of an ID wins.
//
// An empty result is a valid outcome, not an error. A failed category is
// reported on w and recorded in Output.CategoryErrors; Fetch returns an
// error only when every category fails.
func Fetch(ctx context.Context, client *http.Client, day time.Time, cfg types.FetchConfig, w io.Writer) (Output, error) {
	if len(cfg.Categories) == 0 {
		return Output{}, fmt.Errorf("at least one category is required")
	}
	if day.IsZero() {
		return Output{}, fmt.Errorf("target date is required")
	}
	day = truncateToDay(day)

	type catResult struct {
		idx      int
		records  []types.PaperRecord
		skipped  int
		warnings string
		err      error
	}

	ch := make(chan catResult, len(cfg.Categories))
	var wg sync.WaitGroup

	for i, cat := range cfg.Categories {
		if i > 0 && cfg.PageDelay > 0 {
			time.Sleep(cfg.PageDelay)
		}
		wg.Add(1)
		go func(i int, cat string) {
			defer wg.Done()
			// Warnings are buffered per category so goroutines never
			// share the caller's writer.
			var buf bytes.Buffer
			records, skipped, err := fetchCategory(ctx, client, cat, day, cfg, &buf)
			ch <- catResult{idx: i, records: records, skipped: skipped, warnings: buf.String(), err: err}
		}(i, cat)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	perCategory := make([][]types.PaperRecord, len(cfg.Categories))
	var out Output
	var failures []error

	for r := range ch {
		io.WriteString(w, r.warnings)
		out.SkippedMalformed += r.skipped
		if r.err != nil {
			cat := cfg.Categories[r.idx]
			out.CategoryErrors = append(out.CategoryErrors, cat)
			failures = append(failures, r.err)
			fmt.Fprintf(w, "warning: category %s failed: %v\n", cat, r.err)
			continue
		}
		perCategory[r.idx] = r.records
	}

	if len(failures) == len(cfg.Categories) {
		// Keep the *FetchError values reachable via errors.As so callers
		// can classify the outage.
		return Output{}, fmt.Errorf("all categories failed: %w", errors.Join(failures...))
	}

	seen := make(map[string]bool)
	for _, records := range perCategory {
		for _, rec := range records {
			if seen[rec.ID] {
				out.DupsRemoved++
				continue
			}
			seen[rec.ID] = true
			out.Papers = append(out.Papers, rec)
		}
	}

	return out, nil
}

// FormatTable writes fetched records as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	fmt.Fprintf(w, "%-14s  %-60s  %-20s  %-10s  %s\n",
		"ID", "Title", "Authors", "Date", "Categories")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, p := range out.Papers {
		title := p.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(w, "%-14s  %-60s  %-20s  %-10s  %s\n",
			p.ID, title, formatAuthors(p.Authors),
			p.SubmittedDate.Format("2006-01-02"), strings.Join(p.Categories, " "))
	}

	fmt.Fprintf(w, "\n%d papers", len(out.Papers))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	if out.SkippedMalformed > 0 {
		fmt.Fprintf(w, " (%d malformed entries skipped)", out.SkippedMalformed)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes fetched records as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Papers)
}

// FormatYAML writes fetched records as YAML to w.
func FormatYAML(out Output, w io.Writer) error {
	data, err := yaml.Marshal(out.Papers)
	if err != nil {
		return fmt.Errorf("marshaling papers: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
