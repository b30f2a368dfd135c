package datasource

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/finsightlab/finsight/internal/infra"
	"github.com/finsightlab/finsight/pkg/models"
)

// RSSSource implements NewsSource over public RSS feeds. It is the
// keyless fallback used when no Exa credentials are configured. Articles
// carry only the feed summary as content.
type RSSSource struct {
	feedURL func(query string) string
	cache   *infra.Cache
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// NewRSSSource creates an RSS news source backed by Yahoo Finance
// per-ticker headline feeds.
func NewRSSSource() *RSSSource {
	return &RSSSource{
		feedURL: yahooFinanceFeedURL,
		cache:   infra.NewCache(10 * time.Minute),
		limiter: infra.NewRateLimiter(2, time.Second),
		parser:  gofeed.NewParser(),
	}
}

// NewRSSSourceWithFeed creates an RSS source with a custom feed URL
// builder, used in tests.
func NewRSSSourceWithFeed(feedURL func(query string) string) *RSSSource {
	s := NewRSSSource()
	s.feedURL = feedURL
	return s
}

func (s *RSSSource) Name() string { return "RSS" }

// SearchNews fetches the feed for the query and filters items to the
// publication window. The query is treated as a ticker or keyword; items
// without a parseable date are kept.
func (s *RSSSource) SearchNews(ctx context.Context, query string, from, to time.Time, limit int) ([]models.NewsArticle, error) {
	cacheKey := fmt.Sprintf("rss:%s:%d", query, limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := s.parser.ParseURLWithContext(s.feedURL(query), ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: parse RSS feed for %q: %v", ErrProviderTransient, query, err)
	}

	now := time.Now()
	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Query:       query,
			Title:       item.Title,
			URL:         item.Link,
			Source:      feed.Title,
			Content:     stripHTML(item.Description),
			CollectedAt: now,
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
			if a.PublishedAt.Before(from) || a.PublishedAt.After(to) {
				continue
			}
		}
		articles = append(articles, a)
	}

	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	s.cache.Set(cacheKey, articles)
	return articles, nil
}

func yahooFinanceFeedURL(query string) string {
	// The headline feed accepts a ticker symbol.
	return "https://feeds.finance.yahoo.com/rss/2.0/headline?s=" + url.QueryEscape(query) + "&region=US&lang=en-US"
}

// stripHTML removes markup from feed descriptions using goquery.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
