package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API.
type Tavily struct {
	apiKey   string
	depth    string
	client   *http.Client
	endpoint string
}

// NewTavily constructs a Tavily provider. Depth is "basic" or "advanced";
// empty means basic.
func NewTavily(apiKey, depth string) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{apiKey: apiKey, depth: depth, client: defaultHTTPClient(), endpoint: tavilyEndpoint}
}

// WithClient returns a copy using client and endpoint. An empty endpoint
// keeps the current one.
func (t *Tavily) WithClient(client *http.Client, endpoint string) *Tavily {
	cp := *t
	cp.client = client
	if endpoint != "" {
		cp.endpoint = endpoint
	}
	return &cp
}

// Search posts query to Tavily.
func (t *Tavily) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}

	payload, err := json.Marshal(map[string]any{
		"query":        query,
		"api_key":      t.apiKey,
		"search_depth": t.depth,
		"max_results":  limit,
	})
	if err != nil {
		return nil, err
	}

	resp, err := doWithBackoff(ctx, t.client, 4, time.Second, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "tavily"); err != nil {
		return nil, err
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}
