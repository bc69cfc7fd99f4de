// Package search wraps the external web-search collaborator. It is a
// best-effort supplement to knowledge-base retrieval: every failure mode
// degrades to an empty result, never an error surfaced to the pipeline.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smallnest/campusrag/log"
)

const (
	defaultEndpoint = "https://api.firecrawl.dev/v0/search"
	defaultTimeout  = 10 * time.Second
	defaultLimit    = 3
)

// Searcher returns concatenated text snippets for a query, or an empty
// string when nothing useful could be fetched.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

// NopSearcher never returns snippets. Used when no search credential is
// configured.
type NopSearcher struct{}

func (NopSearcher) Search(ctx context.Context, query string) string { return "" }

var _ Searcher = NopSearcher{}

// FirecrawlClient queries the Firecrawl search API for supplementary
// markdown snippets.
type FirecrawlClient struct {
	client   *resty.Client
	endpoint string
	limit    int
	logger   log.Logger
}

var _ Searcher = (*FirecrawlClient)(nil)

type searchRequest struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats []string `json:"formats"`
}

type searchResponse struct {
	Data []struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// NewFirecrawlClient creates a search client. endpoint may be empty for the
// public API default.
func NewFirecrawlClient(apiKey, endpoint string, logger log.Logger) *FirecrawlClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if logger == nil {
		logger = log.NopLogger{}
	}

	client := resty.New().
		SetTimeout(defaultTimeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &FirecrawlClient{
		client:   client,
		endpoint: endpoint,
		limit:    defaultLimit,
		logger:   logger,
	}
}

// Search returns markdown snippets joined by blank lines, or "" on any
// failure.
func (c *FirecrawlClient) Search(ctx context.Context, query string) string {
	var result searchResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(searchRequest{
			Query:         query,
			Limit:         c.limit,
			ScrapeOptions: scrapeOptions{Formats: []string{"markdown"}},
		}).
		SetResult(&result).
		Post(c.endpoint)
	if err != nil {
		c.logger.Warn("web search failed: %v", err)
		return ""
	}
	if resp.IsError() {
		c.logger.Warn("web search returned status %d", resp.StatusCode())
		return ""
	}

	snippets := make([]string, 0, len(result.Data))
	for _, item := range result.Data {
		if s := strings.TrimSpace(item.Markdown); s != "" {
			snippets = append(snippets, s)
		}
	}
	return strings.Join(snippets, "\n\n")
}
