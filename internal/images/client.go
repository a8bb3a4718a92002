package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// StockImage is one result from the stock-image lookup service.
type StockImage struct {
	URL          string `json:"url"`
	Description  string `json:"description"`
	Photographer string `json:"photographer"`
}

// Client is the stock-image lookup boundary.
type Client interface {
	Search(ctx context.Context, query string, count int) ([]StockImage, error)
}

// HTTPClient queries a JSON stock-image API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ConfigFromEnv reads the image endpoint settings.
func ConfigFromEnv() (baseURL, apiKey string) {
	return os.Getenv("IMAGE_API_URL"), os.Getenv("IMAGE_API_KEY")
}

// NewHTTPClient builds an image client for the given endpoint.
func NewHTTPClient(baseURL, apiKey string) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("image api url not configured")
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Search performs one lookup request.
func (c *HTTPClient) Search(ctx context.Context, query string, count int) ([]StockImage, error) {
	endpoint := fmt.Sprintf("%s?q=%s&per_page=%d", c.baseURL, url.QueryEscape(query), count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image service returned status %d", resp.StatusCode)
	}

	var payload struct {
		Images []StockImage `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode image response: %w", err)
	}
	return payload.Images, nil
}

// MockClient serves canned images for tests and keyless local runs.
type MockClient struct {
	Images  []StockImage
	Err     error
	Queries []string
}

// Search returns the canned images.
func (m *MockClient) Search(ctx context.Context, query string, count int) ([]StockImage, error) {
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	if count < len(m.Images) {
		return m.Images[:count], nil
	}
	return m.Images, nil
}
