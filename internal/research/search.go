package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// SearchResult is one hit from the fact lookup service.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// SearchClient is the fact/search lookup service boundary.
type SearchClient interface {
	Lookup(ctx context.Context, query string) ([]SearchResult, error)
}

// HTTPSearchClient queries a JSON search API.
type HTTPSearchClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// SearchConfigFromEnv reads the search endpoint settings.
func SearchConfigFromEnv() (baseURL, apiKey string) {
	return os.Getenv("SEARCH_API_URL"), os.Getenv("SEARCH_API_KEY")
}

// NewHTTPSearchClient builds a search client for the given endpoint.
func NewHTTPSearchClient(baseURL, apiKey string) (*HTTPSearchClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("search api url not configured")
	}
	return &HTTPSearchClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Lookup performs one search request. Server-side errors and timeouts come
// back wrapped as retryable so the caller's backoff policy applies.
func (c *HTTPSearchClient) Lookup(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s?q=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, NewRetryableError(fmt.Errorf("search request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, NewRetryableError(fmt.Errorf("search returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var payload struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return payload.Results, nil
}

// MockSearchClient serves canned results keyed by query substring; tests and
// keyless local runs use it.
type MockSearchClient struct {
	Results []SearchResult
	Err     error
	Queries []string
}

// Lookup returns the canned results.
func (m *MockSearchClient) Lookup(ctx context.Context, query string) ([]SearchResult, error) {
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}
