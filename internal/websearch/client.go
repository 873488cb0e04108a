package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"notelink-ai/internal/contextutil"
	"notelink-ai/internal/insight"
)

// defaultTimeout bounds one search request. Verification and agentic tools
// treat slow search the same as no search.
const defaultTimeout = 10 * time.Second

// Client queries a SearxNG-compatible JSON search endpoint. It implements
// insight.WebSearcher: failures of any kind read as zero results, never as
// errors, because search is an enrichment the pipeline must survive without.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a search client for a SearxNG-compatible endpoint.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs one query and returns at most k hits. Network errors, bad
// statuses, and malformed payloads all yield an empty slice.
func (c *Client) Search(ctx context.Context, query string, k int) []insight.SearchHit {
	logger := contextutil.LoggerFromContext(ctx)

	if c.baseURL == "" || query == "" || k <= 0 {
		return nil
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		logger.WarnContext(ctx, "failed to build search request", "error", err)
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "search request failed", "error", err)
		return nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		logger.WarnContext(ctx, "search returned bad status", "status", resp.StatusCode)
		return nil
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		logger.WarnContext(ctx, "failed to decode search response", "error", err)
		return nil
	}

	hits := make([]insight.SearchHit, 0, k)
	for _, result := range payload.Results {
		hits = append(hits, insight.SearchHit{
			Title:   result.Title,
			URL:     result.URL,
			Snippet: result.Content,
		})
		if len(hits) == k {
			break
		}
	}
	return hits
}
