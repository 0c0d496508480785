package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "arxiv-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Categories is the arXiv category filter (e.g. "cs.CL", "cs.AI").
	// At least one category is required.
	Categories []string `json:"categories" yaml:"categories"`

	// MaxResults caps the number of records fetched per category, to
	// bound runaway queries (default 500).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// PageSize is the number of results requested per API page (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// PageDelay is the politeness delay between consecutive page requests
	// to the arXiv API (default 3s).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// RankConfig holds settings for the ranking stage.
type RankConfig struct {
	AIConfig `yaml:",inline"`

	// TopN is the number of papers the collaborator is asked to select
	// (default 10).
	TopN int `json:"top_n" yaml:"top_n"`
}

// ReportConfig holds settings for the report stage.
type ReportConfig struct {
	// OutputPath is where the HTML report is written
	// (default "./ai_research_report.html").
	OutputPath string `json:"output_path" yaml:"output_path"`

	// Title overrides the report heading. When empty a heading is derived
	// from the target date and selection size.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`
	Rank   RankConfig   `json:"rank" yaml:"rank"`
	Report ReportConfig `json:"report" yaml:"report"`
}
