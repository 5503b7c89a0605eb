package searchclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lucenthq/lucent/internal/engine"
	"github.com/lucenthq/lucent/internal/retry"
	"github.com/lucenthq/lucent/internal/urlnorm"
)

// HTTPClient calls a JSON web-search API (e.g. Brave Search). It decodes
// the fixed Brave response shape (web.results[] with title, url,
// description and age); neither the result path nor the field names are
// configurable.
type HTTPClient struct {
	BaseURL    string // e.g. "https://api.search.brave.com/res/v1/web/search"
	APIKey     string
	APIKeyHdr  string // header name carrying APIKey, default "X-Subscription-Token"
	httpClient *http.Client
}

// NewHTTPClient builds an HTTPClient. timeout bounds each individual
// request; internal/parallelsearch applies its own per-task timeout on top.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		APIKeyHdr: "X-Subscription-Token",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age"`
}

// Search issues one search call, retrying transient failures per spec.md
// §6.2/§7, and normalizes results into engine.SearchHit (id, domain, and
// provenance.originalRank are filled here; provenance.sourceQuery is
// filled by the caller, who knows which sub-query this came from).
func (c *HTTPClient) Search(ctx context.Context, subQuery string, maxResults int) ([]engine.SearchHit, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	var hits []engine.SearchHit
	err := retry.Do(ctx, nil, isHTTPTransient, func(ctx context.Context) error {
		result, err := c.doSearch(ctx, subQuery, maxResults)
		if err != nil {
			return err
		}
		hits = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searchclient: search %q: %w", subQuery, err)
	}
	return hits, nil
}

func (c *HTTPClient) doSearch(ctx context.Context, subQuery string, maxResults int) ([]engine.SearchHit, error) {
	q := url.Values{}
	q.Set("q", subQuery)
	q.Set("count", fmt.Sprintf("%d", maxResults))

	reqURL := c.BaseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set(c.APIKeyHdr, c.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("search provider error: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider rejected request: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	hits := make([]engine.SearchHit, 0, len(parsed.Web.Results))
	for i, r := range parsed.Web.Results {
		if r.URL == "" {
			continue
		}
		hits = append(hits, engine.SearchHit{
			ID:            urlnorm.ID(r.URL),
			URL:           r.URL,
			Title:         r.Title,
			Snippet:       r.Description,
			Domain:        urlnorm.Host(r.URL),
			PublishedHint: r.Age,
			Provenance: engine.Provenance{
				OriginalRank: i,
			},
		})
		if len(hits) >= maxResults {
			break
		}
	}
	return hits, nil
}

func isHTTPTransient(err error) bool {
	msg := err.Error()
	// Don't retry on requests the provider actively rejected (bad query,
	// auth failure) — only on network errors and 5xx.
	return !strings.Contains(msg, "rejected request")
}
