// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a ranked selection as a single HTML document.
// See docs/ARCHITECTURE § Report.
package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// reportTmpl is the HTML document template. Paper titles link to the arXiv
// abstract page and open in a new tab.
var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"joinAuthors": func(authors []string) string { return strings.Join(authors, ", ") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Georgia, serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
  h1 { font-size: 1.6rem; border-bottom: 2px solid #8c1515; padding-bottom: 0.4rem; }
  ol.papers { padding-left: 1.4rem; }
  ol.papers li { margin-bottom: 1.6rem; }
  .paper-title a { color: #8c1515; text-decoration: none; font-weight: bold; }
  .paper-title a:hover { text-decoration: underline; }
  .authors { color: #555; font-style: italic; margin: 0.2rem 0; }
  .summary { margin: 0.4rem 0; }
  .justification { margin: 0.4rem 0; color: #444; }
  .justification::before { content: "Why it matters: "; font-weight: bold; }
  .empty { color: #555; }
  footer { margin-top: 2rem; font-size: 0.8rem; color: #888; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Papers}}<ol class="papers">
{{range .Papers}}  <li>
    <div class="paper-title"><a href="{{.URL}}" target="_blank" rel="noopener">{{.Title}}</a></div>
    <div class="authors">{{joinAuthors .Authors}}</div>
    <div class="summary">{{.Summary}}</div>
    {{if .Justification}}<div class="justification">{{.Justification}}</div>
    {{end}}</li>
{{end}}</ol>
{{else}}<p class="empty">No qualifying papers were found for {{.Date}}.</p>
{{end}}<footer>Generated by arxiv-digest from arXiv metadata for {{.Date}}.</footer>
</body>
</html>
`))

// pageData feeds the report template.
type pageData struct {
	Title  string
	Date   string
	Papers []types.RankedPaper
}

// Render writes the HTML report for one day's selection to w.
func Render(w io.Writer, day time.Time, papers []types.RankedPaper, cfg types.ReportConfig) error {
	title := cfg.Title
	switch {
	case title != "":
	case len(papers) == 0:
		title = fmt.Sprintf("AI Research Papers for %s", day.Format("2006-01-02"))
	default:
		title = fmt.Sprintf("Top %d AI Research Papers for %s", len(papers), day.Format("2006-01-02"))
	}
	return reportTmpl.Execute(w, pageData{
		Title:  title,
		Date:   day.Format("2006-01-02"),
		Papers: papers,
	})
}

// Write renders the report and writes it to cfg.OutputPath using a temporary
// file and rename, so a failed render never leaves a truncated report behind.
// It returns the path written.
func Write(day time.Time, papers []types.RankedPaper, cfg types.ReportConfig) (string, error) {
	path := cfg.OutputPath
	if path == "" {
		path = "ai_research_report.html"
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	renderErr := Render(tmpFile, day, papers, cfg)
	closeErr := tmpFile.Close()
	if renderErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rendering report: %w", renderErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return path, nil
}
