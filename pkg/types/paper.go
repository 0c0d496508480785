// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the arxiv-digest pipeline.
// See docs/ARCHITECTURE § Pipeline Interface, § Data Structures.
package types

import "time"

// PaperRecord represents one paper's metadata for a single run. Records are
// built fresh from the arXiv API response, treated as immutable values, and
// discarded when the run completes.
type PaperRecord struct {
	// ID is the canonical arXiv identifier with any version suffix
	// stripped (e.g. "2403.01234").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the feed.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in feed order.
	Authors []string `json:"authors" yaml:"authors"`

	// Categories lists the paper's subject tags, primary category first.
	Categories []string `json:"categories" yaml:"categories"`

	// SubmittedDate is the submission date truncated to day granularity (UTC).
	SubmittedDate time.Time `json:"submitted_date" yaml:"submitted_date"`

	// URL is the canonical abstract page link (e.g. "https://arxiv.org/abs/2403.01234v1").
	URL string `json:"url" yaml:"url"`
}

// RankedPaper is a PaperRecord the ranking collaborator selected, together
// with its position and the collaborator's short texts for the report.
type RankedPaper struct {
	PaperRecord `yaml:",inline"`

	// Rank is the 1-based position assigned by the collaborator.
	Rank int `json:"rank" yaml:"rank"`

	// Summary is a 2-4 sentence condensation of the abstract.
	Summary string `json:"summary" yaml:"summary"`

	// Justification is the collaborator's 1-2 sentence rationale for
	// selecting this paper.
	Justification string `json:"justification" yaml:"justification"`
}
