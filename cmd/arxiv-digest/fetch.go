package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-digest/internal/fetch"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultPageDelay  = 3 * time.Second
	defaultPageSize   = 100
	defaultMaxResults = 500
	defaultUserAgent  = "arxiv-digest/0.1"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch arXiv papers for a target day and category set",
	Long: `Fetch queries the arXiv API for every paper submitted on the target date
in any of the given categories. Results are deduplicated by identifier and
kept in catalog return order. Finding no papers is a valid outcome.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("date", "", "target submission date (YYYY-MM-DD, required)")
	fetchCmd.Flags().String("categories", "", "arXiv categories, comma-separated (e.g. cs.CL,cs.AI)")
	fetchCmd.Flags().Int("max-results", 0, "per-category result cap (default 500)")
	fetchCmd.Flags().Int("page-size", 0, "results requested per API page (default 100)")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	fetchCmd.Flags().Duration("delay", -1, "delay between consecutive page requests (default 3s)")
	fetchCmd.Flags().String("user-agent", "", "User-Agent header for arXiv API requests")
	fetchCmd.Flags().Bool("json", false, "output papers as JSON")
	fetchCmd.Flags().Bool("yaml", false, "output papers as YAML")

	rootCmd.AddCommand(fetchCmd)
}

// fetchSettings resolves the fetch stage configuration from flags, then the
// viper config file, then built-in defaults.
func fetchSettings(cmd *cobra.Command) (types.FetchConfig, time.Time, error) {
	dateStr, _ := cmd.Flags().GetString("date")
	if dateStr == "" {
		dateStr = viper.GetString("fetch.date")
	}
	if dateStr == "" {
		return types.FetchConfig{}, time.Time{}, fmt.Errorf("provide a target date with --date YYYY-MM-DD")
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return types.FetchConfig{}, time.Time{}, fmt.Errorf("parsing --date %q: %w", dateStr, err)
	}

	catStr, _ := cmd.Flags().GetString("categories")
	var categories []string
	if catStr != "" {
		for _, c := range strings.Split(catStr, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
	} else {
		categories = viper.GetStringSlice("fetch.categories")
	}
	if len(categories) == 0 {
		return types.FetchConfig{}, time.Time{}, fmt.Errorf("provide at least one category with --categories")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = viper.GetDuration("fetch.timeout")
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}

	delay, _ := cmd.Flags().GetDuration("delay")
	if delay < 0 {
		if viper.IsSet("fetch.page_delay") {
			delay = viper.GetDuration("fetch.page_delay")
		} else {
			delay = defaultPageDelay
		}
	}

	maxResults, _ := cmd.Flags().GetInt("max-results")
	if maxResults == 0 {
		maxResults = viper.GetInt("fetch.max_results")
	}
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}

	pageSize, _ := cmd.Flags().GetInt("page-size")
	if pageSize == 0 {
		pageSize = viper.GetInt("fetch.page_size")
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}

	userAgent, _ := cmd.Flags().GetString("user-agent")
	if userAgent == "" {
		userAgent = viper.GetString("fetch.user_agent")
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: userAgent,
		},
		Categories: categories,
		MaxResults: maxResults,
		PageSize:   pageSize,
		PageDelay:  delay,
	}
	return cfg, day, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, day, err := fetchSettings(cmd)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: cfg.Timeout}

	out, err := fetch.Fetch(cmd.Context(), client, day, cfg, os.Stderr)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	switch {
	case asJSON:
		return fetch.FormatJSON(out, os.Stdout)
	case asYAML:
		return fetch.FormatYAML(out, os.Stdout)
	default:
		fetch.FormatTable(out, os.Stdout)
		return nil
	}
}
