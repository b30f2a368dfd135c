package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/phuslu/log"

	"github.com/finsightlab/finsight/internal/infra"
	"github.com/finsightlab/finsight/pkg/models"
)

const exaBaseURL = "https://api.exa.ai"

// ExaSource implements NewsSource against the Exa search API. Each search
// is followed by a contents request so articles carry full text.
type ExaSource struct {
	apiKey  string
	baseURL string
}

// ExaOption configures the source.
type ExaOption func(*ExaSource)

// WithExaBaseURL overrides the API base URL.
func WithExaBaseURL(u string) ExaOption {
	return func(s *ExaSource) { s.baseURL = u }
}

// NewExaSource creates an Exa news source.
func NewExaSource(apiKey string, opts ...ExaOption) *ExaSource {
	s := &ExaSource{
		apiKey:  apiKey,
		baseURL: exaBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExaSource) Name() string { return "Exa" }

type exaSearchRequest struct {
	Query              string `json:"query"`
	NumResults         int    `json:"numResults,omitempty"`
	StartPublishedDate string `json:"startPublishedDate,omitempty"`
	EndPublishedDate   string `json:"endPublishedDate,omitempty"`
	Type               string `json:"type,omitempty"`
}

type exaSearchResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate"`
	Author        string `json:"author"`
}

type exaSearchResponse struct {
	Results []exaSearchResult `json:"results"`
}

type exaContentsRequest struct {
	URLs []string `json:"urls"`
	Text bool     `json:"text"`
}

type exaContentsResponse struct {
	Results []struct {
		URL  string `json:"url"`
		Text string `json:"text"`
	} `json:"results"`
}

// SearchNews searches Exa for the query within the publication window and
// retrieves full article text. Articles whose contents fetch fails keep
// empty content rather than being dropped.
func (s *ExaSource) SearchNews(ctx context.Context, query string, from, to time.Time, limit int) ([]models.NewsArticle, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: Exa API key not configured", ErrProviderAuth)
	}

	req := exaSearchRequest{
		Query:              query,
		NumResults:         limit,
		StartPublishedDate: from.UTC().Format(time.RFC3339),
		EndPublishedDate:   to.UTC().Format(time.RFC3339),
		Type:               "auto",
	}

	var resp exaSearchResponse
	if err := s.postJSON(ctx, "/search", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	urls := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		urls = append(urls, r.URL)
	}
	textByURL := s.fetchContents(ctx, urls)

	now := time.Now()
	articles := make([]models.NewsArticle, 0, len(resp.Results))
	for _, r := range resp.Results {
		a := models.NewsArticle{
			Query:       query,
			Title:       r.Title,
			URL:         r.URL,
			Source:      hostOf(r.URL),
			Content:     textByURL[r.URL],
			CollectedAt: now,
		}
		if t, err := time.Parse(time.RFC3339, r.PublishedDate); err == nil {
			a.PublishedAt = t
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// fetchContents retrieves article text for the URLs. A failure degrades
// to empty contents; the articles are still scoreable from their titles.
func (s *ExaSource) fetchContents(ctx context.Context, urls []string) map[string]string {
	var resp exaContentsResponse
	err := s.postJSON(ctx, "/contents", exaContentsRequest{URLs: urls, Text: true}, &resp)
	if err != nil {
		log.Warn().Err(err).Int("urls", len(urls)).Msg("exa contents fetch failed")
		return nil
	}
	out := make(map[string]string, len(resp.Results))
	for _, r := range resp.Results {
		out[r.URL] = r.Text
	}
	return out
}

func (s *ExaSource) postJSON(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal exa request: %w", err)
	}

	body, _, err := infra.DoPost(ctx, s.baseURL+path, bytes.NewReader(data), map[string]string{
		"Content-Type": "application/json",
		"x-api-key":    s.apiKey,
	})
	if err != nil {
		return classifyHTTPError(err)
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode exa response: %v", ErrProviderTransient, err)
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
