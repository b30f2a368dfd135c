package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExaSearchNews(t *testing.T) {
	var searchReq exaSearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "exa-key" {
			t.Errorf("x-api-key header: got %q", got)
		}
		switch r.URL.Path {
		case "/search":
			json.NewDecoder(r.Body).Decode(&searchReq)
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"title": "Earnings beat", "url": "https://news.example.com/a", "publishedDate": "2026-08-20T10:00:00Z"},
					{"title": "New product", "url": "https://news.example.com/b", "publishedDate": "2026-08-21T09:00:00Z"},
				},
			})
		case "/contents":
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"url": "https://news.example.com/a", "text": "Full article text A."},
					{"url": "https://news.example.com/b", "text": "Full article text B."},
				},
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	src := NewExaSource("exa-key", WithExaBaseURL(srv.URL))
	from := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	articles, err := src.SearchNews(context.Background(), "ACME stock news", from, to, 5)
	if err != nil {
		t.Fatalf("SearchNews error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("articles: got %d, want 2", len(articles))
	}

	if searchReq.NumResults != 5 {
		t.Errorf("numResults: got %d, want 5", searchReq.NumResults)
	}
	if searchReq.StartPublishedDate != "2026-08-17T00:00:00Z" {
		t.Errorf("startPublishedDate: got %q", searchReq.StartPublishedDate)
	}
	if searchReq.EndPublishedDate != "2026-08-24T00:00:00Z" {
		t.Errorf("endPublishedDate: got %q", searchReq.EndPublishedDate)
	}

	a := articles[0]
	if a.Title != "Earnings beat" {
		t.Errorf("Title: got %q", a.Title)
	}
	if a.Content != "Full article text A." {
		t.Errorf("Content: got %q", a.Content)
	}
	if a.Source != "news.example.com" {
		t.Errorf("Source: got %q", a.Source)
	}
	if a.Query != "ACME stock news" {
		t.Errorf("Query: got %q", a.Query)
	}
	if a.PublishedAt.IsZero() {
		t.Error("PublishedAt not parsed")
	}
}

func TestExaSearchNewsContentsFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"title": "Headline only", "url": "https://news.example.com/x", "publishedDate": "2026-08-20T10:00:00Z"},
				},
			})
		case "/contents":
			http.Error(w, "upstream error", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	src := NewExaSource("exa-key", WithExaBaseURL(srv.URL))
	articles, err := src.SearchNews(context.Background(), "q", time.Now().AddDate(0, 0, -7), time.Now(), 3)
	if err != nil {
		t.Fatalf("SearchNews should not fail when only contents fail: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("articles: got %d, want 1", len(articles))
	}
	if articles[0].Content != "" {
		t.Errorf("Content should be empty on contents failure, got %q", articles[0].Content)
	}
}

func TestExaSearchNewsNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer srv.Close()

	src := NewExaSource("exa-key", WithExaBaseURL(srv.URL))
	articles, err := src.SearchNews(context.Background(), "q", time.Now().AddDate(0, 0, -7), time.Now(), 3)
	if err != nil {
		t.Fatalf("SearchNews error: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("articles: got %d, want 0", len(articles))
	}
}

func TestExaNoAPIKey(t *testing.T) {
	src := NewExaSource("")
	_, err := src.SearchNews(context.Background(), "q", time.Now(), time.Now(), 1)
	if !errors.Is(err, ErrProviderAuth) {
		t.Errorf("got %v, want ErrProviderAuth", err)
	}
}

// ── Tavily ──

func TestTavilyContextSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tvly-key" {
			t.Errorf("Authorization header: got %q", got)
		}
		var req tavilySearchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Query != "Acme Corp company" {
			t.Errorf("query: got %q", req.Query)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "About", "url": "https://acme.example.com", "content": "Acme builds widgets."},
				{"title": "Wiki", "url": "https://wiki.example.com", "content": "Acme is in the industrials sector."},
			},
		})
	}))
	defer srv.Close()

	src := NewTavilySource("tvly-key", WithTavilyBaseURL(srv.URL))
	ctx, err := src.ContextSearch(context.Background(), "Acme Corp company", 5)
	if err != nil {
		t.Fatalf("ContextSearch error: %v", err)
	}
	want := "Acme builds widgets.\nAcme is in the industrials sector."
	if ctx != want {
		t.Errorf("context: got %q, want %q", ctx, want)
	}
}

func TestTavilyNoAPIKey(t *testing.T) {
	src := NewTavilySource("")
	_, err := src.ContextSearch(context.Background(), "q", 5)
	if !errors.Is(err, ErrProviderAuth) {
		t.Errorf("got %v, want ErrProviderAuth", err)
	}
}
