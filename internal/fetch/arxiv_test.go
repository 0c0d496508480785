// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// --- buildDayQuery ---

func TestBuildDayQuery(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got := buildDayQuery("cs.CL", day)
	want := "cat:cs.CL+AND+submittedDate:[202403010000+TO+202403020000]"
	if got != want {
		t.Errorf("buildDayQuery() = %q, want %q", got, want)
	}
}

func TestBuildDayQueryMonthRollover(t *testing.T) {
	day := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got := buildDayQuery("stat.ML", day)
	want := "cat:stat.ML+AND+submittedDate:[202412310000+TO+202501010000]"
	if got != want {
		t.Errorf("buildDayQuery() = %q, want %q", got, want)
	}
}

// --- extractArxivID ---

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		name  string
		idURL string
		want  string
	}{
		{"versioned id", "http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"unversioned id", "http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"https scheme", "https://arxiv.org/abs/2403.00047v2", "2403.00047"},
		{"no abs path", "http://example.com/nothing", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractArxivID(tt.idURL); got != tt.want {
				t.Errorf("extractArxivID(%q) = %q, want %q", tt.idURL, got, tt.want)
			}
		})
	}
}

// --- recordFromEntry ---

func TestRecordFromEntry(t *testing.T) {
	entry := arxivEntry{
		ID:        "http://arxiv.org/abs/2403.00047v1",
		Title:     "A Study of\n  Attention",
		Summary:   "We study\n  attention.",
		Published: "2024-03-01T17:30:00Z",
		Authors:   []arxivAuthor{{Name: " Ada Lovelace "}, {Name: "Alan Turing"}},
		Primary:   arxivCategory{Term: "cs.CL"},
		Categories: []arxivCategory{
			{Term: "cs.CL"}, {Term: "cs.AI"},
		},
	}

	rec, err := recordFromEntry(entry)
	if err != nil {
		t.Fatalf("recordFromEntry() error = %v", err)
	}
	if rec.ID != "2403.00047" {
		t.Errorf("ID = %q, want 2403.00047", rec.ID)
	}
	if rec.Title != "A Study of Attention" {
		t.Errorf("Title = %q, line continuation not collapsed", rec.Title)
	}
	if rec.Abstract != "We study attention." {
		t.Errorf("Abstract = %q", rec.Abstract)
	}
	wantDay := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !rec.SubmittedDate.Equal(wantDay) {
		t.Errorf("SubmittedDate = %v, want %v (day granularity)", rec.SubmittedDate, wantDay)
	}
	if len(rec.Authors) != 2 || rec.Authors[0] != "Ada Lovelace" {
		t.Errorf("Authors = %v", rec.Authors)
	}
	if len(rec.Categories) != 2 || rec.Categories[0] != "cs.CL" || rec.Categories[1] != "cs.AI" {
		t.Errorf("Categories = %v, want primary first without duplicates", rec.Categories)
	}
	if rec.URL != entry.ID {
		t.Errorf("URL = %q, want entry id", rec.URL)
	}
}

func TestRecordFromEntryMalformed(t *testing.T) {
	valid := arxivEntry{
		ID:        "http://arxiv.org/abs/2403.00047v1",
		Title:     "Title",
		Published: "2024-03-01T17:30:00Z",
	}

	tests := []struct {
		name   string
		mutate func(e *arxivEntry)
	}{
		{"missing id", func(e *arxivEntry) { e.ID = "" }},
		{"unusable id", func(e *arxivEntry) { e.ID = "http://example.com/x" }},
		{"missing title", func(e *arxivEntry) { e.Title = "" }},
		{"whitespace title", func(e *arxivEntry) { e.Title = "  \n " }},
		{"missing date", func(e *arxivEntry) { e.Published = "" }},
		{"garbage date", func(e *arxivEntry) { e.Published = "yesterday" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if _, err := recordFromEntry(e); err == nil {
				t.Error("recordFromEntry() expected error, got nil")
			}
		})
	}
}

// --- paging against a mock arXiv server ---

// entryXML renders one Atom entry. An empty title or published field is
// omitted entirely, producing a malformed entry.
func entryXML(id, title, published string, cats ...string) string {
	var b strings.Builder
	b.WriteString("<entry>")
	fmt.Fprintf(&b, "<id>http://arxiv.org/abs/%s</id>", id)
	if title != "" {
		fmt.Fprintf(&b, "<title>%s</title>", title)
	}
	fmt.Fprintf(&b, "<summary>Abstract of %s.</summary>", id)
	if published != "" {
		fmt.Fprintf(&b, "<published>%s</published>", published)
	}
	b.WriteString("<author><name>Ada Lovelace</name></author>")
	for i, c := range cats {
		if i == 0 {
			fmt.Fprintf(&b, "<primary_category term=%q/>", c)
		}
		fmt.Fprintf(&b, "<category term=%q/>", c)
	}
	b.WriteString("</entry>")
	return b.String()
}

func feedXML(entries []string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<feed xmlns="http://www.w3.org/2005/Atom">` +
		strings.Join(entries, "") +
		`</feed>`
}

// pagingServer serves slices of entries according to the start and
// max_results query parameters, counting requests.
func pagingServer(t *testing.T, entries []string) (*httptest.Server, *int32) {
	t.Helper()
	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		max, _ := strconv.Atoi(r.URL.Query().Get("max_results"))
		end := start + max
		if start > len(entries) {
			start = len(entries)
		}
		if end > len(entries) {
			end = len(entries)
		}
		fmt.Fprint(w, feedXML(entries[start:end]))
	}))
	return ts, &requests
}

func testFetchCfg(pageSize int) types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "arxiv-digest-test/0.1",
		},
		MaxResults: 1000,
		PageSize:   pageSize,
		PageDelay:  0,
	}
}

var testDay = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestFetchCategoryStopsAtEarlierDate(t *testing.T) {
	// 47 matching records across 2 pages, then one dated the previous day.
	var entries []string
	for i := 0; i < 47; i++ {
		id := fmt.Sprintf("2403.%05dv1", i)
		entries = append(entries, entryXML(id, fmt.Sprintf("Paper %d", i), "2024-03-01T12:00:00Z", "cs.CL"))
	}
	entries = append(entries, entryXML("2402.99999v1", "Stale Paper", "2024-02-29T23:59:00Z", "cs.CL"))

	ts, requests := pagingServer(t, entries)
	defer ts.Close()
	oldBase := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = oldBase }()

	records, skipped, err := fetchCategory(context.Background(), ts.Client(), "cs.CL", testDay, testFetchCfg(25), io.Discard)
	if err != nil {
		t.Fatalf("fetchCategory() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(records) != 47 {
		t.Fatalf("len(records) = %d, want 47", len(records))
	}
	for _, r := range records {
		if !r.SubmittedDate.Equal(testDay) {
			t.Errorf("record %s dated %v, want %v", r.ID, r.SubmittedDate, testDay)
		}
	}
	// Page 1 (25) + page 2 (22 matching + the 2024-02-29 record) — paging
	// must stop at the stale record, never requesting a third page.
	if got := atomic.LoadInt32(requests); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestFetchCategorySkipsMalformedEntry(t *testing.T) {
	// 9 records across 3 pages; the middle of page 2 is missing its title.
	var entries []string
	for i := 0; i < 9; i++ {
		id := fmt.Sprintf("2403.%05dv1", i)
		title := fmt.Sprintf("Paper %d", i)
		if i == 4 {
			title = ""
		}
		entries = append(entries, entryXML(id, title, "2024-03-01T09:00:00Z", "cs.CL"))
	}

	ts, _ := pagingServer(t, entries)
	defer ts.Close()
	oldBase := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = oldBase }()

	var warnings strings.Builder
	records, skipped, err := fetchCategory(context.Background(), ts.Client(), "cs.CL", testDay, testFetchCfg(3), &warnings)
	if err != nil {
		t.Fatalf("fetchCategory() error = %v", err)
	}
	if len(records) != 8 {
		t.Errorf("len(records) = %d, want 8 (all well-formed entries)", len(records))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if !strings.Contains(warnings.String(), "malformed") {
		t.Errorf("expected a malformed-entry warning, got %q", warnings.String())
	}
}

func TestFetchCategorySkipsFollowingDay(t *testing.T) {
	// The submittedDate window can brush the following day; those entries
	// must be excluded without stopping the paging.
	entries := []string{
		entryXML("2403.00002v1", "Tomorrow", "2024-03-02T00:00:00Z", "cs.CL"),
		entryXML("2403.00001v1", "Today", "2024-03-01T10:00:00Z", "cs.CL"),
	}

	ts, _ := pagingServer(t, entries)
	defer ts.Close()
	oldBase := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = oldBase }()

	records, _, err := fetchCategory(context.Background(), ts.Client(), "cs.CL", testDay, testFetchCfg(10), io.Discard)
	if err != nil {
		t.Fatalf("fetchCategory() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != "2403.00001" {
		t.Errorf("records = %v, want only the target-day paper", records)
	}
}

func TestFetchCategoryRespectsMaxResults(t *testing.T) {
	var entries []string
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("2403.%05dv1", i)
		entries = append(entries, entryXML(id, fmt.Sprintf("Paper %d", i), "2024-03-01T12:00:00Z", "cs.CL"))
	}

	ts, _ := pagingServer(t, entries)
	defer ts.Close()
	oldBase := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = oldBase }()

	cfg := testFetchCfg(10)
	cfg.MaxResults = 15
	records, _, err := fetchCategory(context.Background(), ts.Client(), "cs.CL", testDay, cfg, io.Discard)
	if err != nil {
		t.Fatalf("fetchCategory() error = %v", err)
	}
	if len(records) != 15 {
		t.Errorf("len(records) = %d, want 15 (capped)", len(records))
	}
}

func TestFetchCategoryHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()
	oldBase := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = oldBase }()

	_, _, err := fetchCategory(context.Background(), ts.Client(), "cs.CL", testDay, testFetchCfg(10), io.Discard)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.Category != "cs.CL" {
		t.Errorf("FetchError.Category = %q, want cs.CL", fe.Category)
	}
}

func TestFetchCategoryUnparseableFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "this is not XML {")
	}))
	defer ts.Close()
	oldBase := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = oldBase }()

	_, _, err := fetchCategory(context.Background(), ts.Client(), "cs.CL", testDay, testFetchCfg(10), io.Discard)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
}
