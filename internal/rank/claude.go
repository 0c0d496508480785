// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/template"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// rankingPromptTmpl is the prompt sent to the Claude API. It lists the
// fetched papers and asks for a strict-JSON selection of the top N with a
// short summary and justification per pick.
var rankingPromptTmpl = template.Must(template.New("ranking").Parse(`You are a senior AI researcher reviewing new arXiv submissions. From the papers below, all submitted on {{.Date}}, select the {{.TopN}} most significant ones. Consider novelty, methodology, potential applications, and relevance to current AI trends.

For each selected paper provide:
- id: the paper's identifier, copied exactly from the list below
- summary: a concise 2-4 sentence summary of the abstract
- justification: 1-2 sentences on why it is a top paper

Order your selection from most to least significant. Respond with a JSON object containing a "papers" array. Do not include any text outside the JSON object, and do not invent identifiers that are not in the list.

Example response:
{"papers": [{"id": "2403.01234", "summary": "The paper introduces ...", "justification": "First method to ..."}]}

Papers:
{{.Papers}}
`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend implements Backend against the Claude Messages API.
type ClaudeBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

// Name returns the backend identifier.
func (c *ClaudeBackend) Name() string { return "claude" }

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// promptPaper is the reduced record serialized into the prompt.
type promptPaper struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract"`
}

// Rank calls the Claude API with the ranking prompt and parses the
// strict-JSON selection from the reply.
func (c *ClaudeBackend) Rank(ctx context.Context, papers []types.PaperRecord, criteria Criteria) (Selection, error) {
	prompt, err := renderPrompt(papers, criteria)
	if err != nil {
		return Selection{}, fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: 8192,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Selection{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Selection{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Selection{}, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Selection{}, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Selection{}, fmt.Errorf("decoding Claude response: %w", err)
	}

	if len(cResp.Content) == 0 {
		return Selection{}, fmt.Errorf("Claude API returned empty content")
	}

	var sel Selection
	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		if err := json.Unmarshal([]byte(block.Text), &sel); err != nil {
			return Selection{}, fmt.Errorf("parsing selection JSON: %w", err)
		}
		return sel, nil
	}

	return Selection{}, fmt.Errorf("no text content in Claude API response")
}

// renderPrompt executes the ranking prompt template for the given papers.
func renderPrompt(papers []types.PaperRecord, criteria Criteria) (string, error) {
	list := make([]promptPaper, 0, len(papers))
	for _, p := range papers {
		list = append(list, promptPaper{
			ID:       p.ID,
			Title:    p.Title,
			Authors:  p.Authors,
			Abstract: p.Abstract,
		})
	}

	listJSON, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling paper list: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Date   string
		TopN   int
		Papers string
	}{
		Date:   criteria.Date.Format("2006-01-02"),
		TopN:   criteria.TopN,
		Papers: string(listJSON),
	}
	if err := rankingPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
