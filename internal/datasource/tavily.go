package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finsightlab/finsight/internal/infra"
)

const tavilyBaseURL = "https://api.tavily.com"

// TavilySource provides general web context about a company, used to
// enrich the search query generation prompt.
type TavilySource struct {
	apiKey  string
	baseURL string
}

// TavilyOption configures the source.
type TavilyOption func(*TavilySource)

// WithTavilyBaseURL overrides the API base URL.
func WithTavilyBaseURL(u string) TavilyOption {
	return func(s *TavilySource) { s.baseURL = u }
}

// NewTavilySource creates a Tavily context search source.
func NewTavilySource(apiKey string, opts ...TavilyOption) *TavilySource {
	s := &TavilySource{
		apiKey:  apiKey,
		baseURL: tavilyBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TavilySource) Name() string { return "Tavily" }

type tavilySearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type tavilySearchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// ContextSearch returns the concatenated result snippets for a query,
// newline-joined. An empty string with nil error means no results.
func (s *TavilySource) ContextSearch(ctx context.Context, query string, maxResults int) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("%w: Tavily API key not configured", ErrProviderAuth)
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	data, err := json.Marshal(tavilySearchRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return "", fmt.Errorf("marshal tavily request: %w", err)
	}

	body, _, err := infra.DoPost(ctx, s.baseURL+"/search", bytes.NewReader(data), map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + s.apiKey,
	})
	if err != nil {
		return "", classifyHTTPError(err)
	}
	defer body.Close()

	var resp tavilySearchResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("%w: decode tavily response: %v", ErrProviderTransient, err)
	}

	snippets := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Content != "" {
			snippets = append(snippets, r.Content)
		}
	}
	return strings.Join(snippets, "\n"), nil
}
