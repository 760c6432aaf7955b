package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave calls the Brave Search API.
type Brave struct {
	apiKey   string
	client   *http.Client
	endpoint string
}

// NewBrave constructs a Brave provider.
func NewBrave(apiKey string) *Brave {
	return &Brave{apiKey: apiKey, client: defaultHTTPClient(), endpoint: braveEndpoint}
}

// WithClient returns a copy using client and endpoint. An empty endpoint
// keeps the current one.
func (b *Brave) WithClient(client *http.Client, endpoint string) *Brave {
	cp := *b
	cp.client = client
	if endpoint != "" {
		cp.endpoint = endpoint
	}
	return &cp
}

// Search queries Brave's web search endpoint.
func (b *Brave) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(b.apiKey) == "" {
		return nil, errors.New("brave: API key is missing")
	}
	if limit <= 0 {
		limit = defaultMaxResults
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(limit))
	reqURL := b.endpoint + "?" + params.Encode()

	resp, err := doWithBackoff(ctx, b.client, 4, time.Second, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Subscription-Token", b.apiKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "brave"); err != nil {
		return nil, err
	}

	var braveResp struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&braveResp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(braveResp.Web.Results))
	for _, r := range braveResp.Web.Results {
		results = append(results, SearchResult{
			Title:   stripTags(r.Title),
			URL:     r.URL,
			Snippet: stripTags(r.Description),
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// stripTags removes inline markup such as <strong> that Brave puts in titles
// and descriptions.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	text, err := htmlText(s)
	if err != nil {
		return s
	}
	return collapseSpace(text)
}
