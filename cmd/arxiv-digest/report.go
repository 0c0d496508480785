package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-digest/internal/fetch"
	"github.com/pdiddy/arxiv-digest/internal/rank"
	"github.com/pdiddy/arxiv-digest/internal/report"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const (
	defaultTopN       = 10
	defaultModel      = "claude-sonnet-4-5-20250929"
	defaultOutputPath = "ai_research_report.html"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch, rank, and render the day's top papers as HTML",
	Long: `Report runs the full pipeline: fetch the day's papers, ask the LLM
collaborator to select and justify the top N, and write a single HTML
report. When the day yields no papers an empty report is still written.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("date", "", "target submission date (YYYY-MM-DD, required)")
	reportCmd.Flags().String("categories", "", "arXiv categories, comma-separated (e.g. cs.CL,cs.AI)")
	reportCmd.Flags().Int("max-results", 0, "per-category result cap (default 500)")
	reportCmd.Flags().Int("page-size", 0, "results requested per API page (default 100)")
	reportCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	reportCmd.Flags().Duration("delay", -1, "delay between consecutive page requests (default 3s)")
	reportCmd.Flags().String("user-agent", "", "User-Agent header for arXiv API requests")
	reportCmd.Flags().Int("top", 0, "number of papers to select (default 10)")
	reportCmd.Flags().String("model", "", "AI model identifier for ranking")
	reportCmd.Flags().String("api-key", "", "AI API key (default: .secrets/anthropic-api-key)")
	reportCmd.Flags().Int("max-retries", 0, "retry attempts for failed AI calls (default 3)")
	reportCmd.Flags().String("output", "", "HTML report output path (default ./ai_research_report.html)")

	rootCmd.AddCommand(reportCmd)
}

// rankSettings resolves the ranking stage configuration from flags, then the
// viper config file, then secrets and built-in defaults.
func rankSettings(cmd *cobra.Command) (types.RankConfig, error) {
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("rank.model")
	}
	if model == "" {
		model = defaultModel
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	apiKey = secretDefault("anthropic-api-key", apiKey)
	if apiKey == "" {
		return types.RankConfig{}, fmt.Errorf("no AI API key: provide --api-key or .secrets/anthropic-api-key")
	}

	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	if maxRetries == 0 {
		maxRetries = viper.GetInt("rank.max_retries")
	}

	topN, _ := cmd.Flags().GetInt("top")
	if topN == 0 {
		topN = viper.GetInt("rank.top_n")
	}
	if topN == 0 {
		topN = defaultTopN
	}

	return types.RankConfig{
		AIConfig: types.AIConfig{
			Model:      model,
			APIKey:     apiKey,
			MaxRetries: maxRetries,
		},
		TopN: topN,
	}, nil
}

// reportSettings resolves the report stage configuration.
func reportSettings(cmd *cobra.Command) types.ReportConfig {
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = viper.GetString("report.output_path")
	}
	if output == "" {
		output = defaultOutputPath
	}
	return types.ReportConfig{
		OutputPath: output,
		Title:      viper.GetString("report.title"),
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	fetchCfg, day, err := fetchSettings(cmd)
	if err != nil {
		return err
	}
	rankCfg, err := rankSettings(cmd)
	if err != nil {
		return err
	}
	reportCfg := reportSettings(cmd)

	client := &http.Client{Timeout: fetchCfg.Timeout}
	ctx := cmd.Context()

	fmt.Fprintf(os.Stderr, "Fetching papers for %s (%v)\n", day.Format("2006-01-02"), fetchCfg.Categories)
	out, err := fetch.Fetch(ctx, client, day, fetchCfg, os.Stderr)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Fetched %d papers\n", len(out.Papers))

	var ranked []types.RankedPaper
	if len(out.Papers) > 0 {
		// Ranking calls can run far longer than a catalog page fetch, so
		// the backend gets its own client without the fetch timeout;
		// cancellation is left to the command context.
		backend := &rank.ClaudeBackend{
			APIKey: rankCfg.APIKey,
			Model:  rankCfg.Model,
			Client: &http.Client{},
		}
		criteria := rank.Criteria{Date: day, TopN: rankCfg.TopN}

		fmt.Fprintf(os.Stderr, "Ranking with %s (top %d)\n", rankCfg.Model, rankCfg.TopN)
		ranked, err = rank.Rank(ctx, backend, out.Papers, criteria, rankCfg.MaxRetries)
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintln(os.Stderr, "No papers found; writing empty report")
	}

	path, err := report.Write(day, ranked, reportCfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d papers)\n", path, len(ranked))
	return nil
}
