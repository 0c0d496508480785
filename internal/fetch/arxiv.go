// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// fetchCategory pages through the arXiv API for one category until the whole
// target day has been covered. The feed is requested in reverse-chronological
// submittedDate order, so paging stops as soon as an entry dated before the
// target day appears, when a short page signals the end of the results, or
// when the per-category result cap is reached.
//
// Malformed entries (no usable ID, empty title, unparseable date) are skipped
// with a warning on w; they never abort the fetch. Transport failures,
// non-200 responses, and undecodable feeds are returned as a *FetchError.
func fetchCategory(ctx context.Context, client *http.Client, category string, day time.Time, cfg types.FetchConfig, w io.Writer) ([]types.PaperRecord, int, error) {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 500
	}

	query := buildDayQuery(category, day)

	var records []types.PaperRecord
	skipped := 0

	for start := 0; len(records) < maxResults; start += pageSize {
		if start > 0 && cfg.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, skipped, &FetchError{Category: category, Err: ctx.Err()}
			case <-time.After(cfg.PageDelay):
			}
		}

		url := fmt.Sprintf("%s?search_query=%s&start=%d&max_results=%d&sortBy=submittedDate&sortOrder=descending",
			arxivAPIBase, query, start, pageSize)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, skipped, &FetchError{Category: category, Err: fmt.Errorf("creating request: %w", err)}
		}
		req.Header.Set("User-Agent", cfg.UserAgent)

		resp, err := httputil.DoWithRetry(ctx, client, req, 0)
		if err != nil {
			return nil, skipped, &FetchError{Category: category, Err: fmt.Errorf("arXiv API request: %w", err)}
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, skipped, &FetchError{Category: category, Err: fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)}
		}

		var feed arxivFeed
		decodeErr := xml.NewDecoder(resp.Body).Decode(&feed)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, skipped, &FetchError{Category: category, Err: fmt.Errorf("parsing arXiv response: %w", decodeErr)}
		}

		if len(feed.Entries) == 0 {
			break
		}

		pastDay := false
		for _, entry := range feed.Entries {
			rec, err := recordFromEntry(entry)
			if err != nil {
				skipped++
				fmt.Fprintf(w, "warning: skipping malformed entry in %s: %v\n", category, err)
				continue
			}

			if rec.SubmittedDate.Before(day) {
				pastDay = true
				break
			}
			if !rec.SubmittedDate.Equal(day) {
				// The submittedDate window can brush the following day.
				continue
			}
			if !listsCategory(rec.Categories, category) {
				continue
			}

			records = append(records, rec)
			if len(records) >= maxResults {
				break
			}
		}

		if pastDay || len(feed.Entries) < pageSize {
			break
		}
	}

	return records, skipped, nil
}

// buildDayQuery constructs the search_query parameter: a category filter
// combined with a submittedDate window covering the whole target day.
func buildDayQuery(category string, day time.Time) string {
	const stamp = "200601021504"
	from := day.Format(stamp)
	to := day.AddDate(0, 0, 1).Format(stamp)
	return fmt.Sprintf("cat:%s+AND+submittedDate:[%s+TO+%s]", category, from, to)
}

// listsCategory reports whether the category tag appears in the record's
// category list. arXiv matches cat: queries against every listed category,
// not just the primary one; qualification mirrors that.
func listsCategory(categories []string, category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Primary    arxivCategory   `xml:"primary_category"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// recordFromEntry converts one feed entry into an immutable PaperRecord.
// It returns an error for entries missing a usable ID, a title, or a
// parseable publication timestamp; callers skip such entries.
func recordFromEntry(entry arxivEntry) (types.PaperRecord, error) {
	id := extractArxivID(entry.ID)
	if id == "" {
		return types.PaperRecord{}, fmt.Errorf("no usable identifier in %q", entry.ID)
	}

	title := collapseWhitespace(entry.Title)
	if title == "" {
		return types.PaperRecord{}, fmt.Errorf("entry %s has no title", id)
	}

	published, err := time.Parse(time.RFC3339, entry.Published)
	if err != nil {
		return types.PaperRecord{}, fmt.Errorf("entry %s has unparseable date %q", id, entry.Published)
	}

	rec := types.PaperRecord{
		ID:            id,
		Title:         title,
		Abstract:      collapseWhitespace(entry.Summary),
		SubmittedDate: truncateToDay(published),
		URL:           entry.ID,
	}

	for _, a := range entry.Authors {
		rec.Authors = append(rec.Authors, strings.TrimSpace(a.Name))
	}

	// Primary category first, then the remaining tags in feed order.
	if entry.Primary.Term != "" {
		rec.Categories = append(rec.Categories, entry.Primary.Term)
	}
	for _, c := range entry.Categories {
		if c.Term != "" && c.Term != entry.Primary.Term {
			rec.Categories = append(rec.Categories, c.Term)
		}
	}

	return rec, nil
}

// truncateToDay drops the time-of-day portion, keeping the UTC calendar date.
func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// collapseWhitespace trims a feed text field and folds the line-continuation
// whitespace arXiv inserts into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
