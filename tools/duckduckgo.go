package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// ddgLimiter allows one query per second across every DuckDuckGo instance.
var ddgLimiter = rate.NewLimiter(rate.Every(time.Second), 1)

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It needs no API key.
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
	limiter  *rate.Limiter
	attempts int
	backoff  time.Duration
}

// DuckDuckGoOption configures a DuckDuckGo provider.
type DuckDuckGoOption func(*DuckDuckGo)

// WithDuckDuckGoClient sets the HTTP client.
func WithDuckDuckGoClient(c *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.client = c }
}

// WithDuckDuckGoEndpoint overrides the results page URL.
func WithDuckDuckGoEndpoint(endpoint string) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.endpoint = endpoint }
}

// WithDuckDuckGoLimiter replaces the shared rate limiter.
func WithDuckDuckGoLimiter(l *rate.Limiter) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.limiter = l }
}

// WithDuckDuckGoBackoff sets how many requests are made when rate limited
// and the initial delay between them.
func WithDuckDuckGoBackoff(attempts int, initial time.Duration) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		d.attempts = attempts
		d.backoff = initial
	}
}

// NewDuckDuckGo creates a DuckDuckGo provider.
func NewDuckDuckGo(opts ...DuckDuckGoOption) *DuckDuckGo {
	d := &DuckDuckGo{
		client:   defaultHTTPClient(),
		endpoint: duckDuckGoEndpoint,
		limiter:  ddgLimiter,
		attempts: 4,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search fetches the results page for query and parses up to limit hits.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)

	resp, err := doWithBackoff(ctx, d.client, d.attempts, d.backoff, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "text/html")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "duckduckgo"); err != nil {
		return nil, err
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo results: %w", err)
	}
	return parseDuckDuckGoResults(doc, limit), nil
}

// parseDuckDuckGoResults walks the results page. Each hit is a result__a
// link followed by an optional result__snippet element. Ads are skipped.
func parseDuckDuckGoResults(doc *html.Node, limit int) []SearchResult {
	var (
		results []SearchResult
		current *SearchResult
	)
	flush := func() {
		if current != nil && current.Title != "" && current.URL != "" {
			results = append(results, *current)
		}
		current = nil
	}

	var walk func(n *html.Node, inAd bool)
	walk = func(n *html.Node, inAd bool) {
		if limit > 0 && len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result--ad"):
				inAd = true
			case !inAd && n.Data == "a" && hasClass(n, "result__a"):
				flush()
				current = &SearchResult{
					Title: collapseSpace(nodeText(n)),
					URL:   decodeRedirect(attr(n, "href")),
				}
				return
			case !inAd && hasClass(n, "result__snippet"):
				if current != nil {
					current.Snippet = collapseSpace(nodeText(n))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inAd)
		}
	}
	walk(doc, false)
	if limit <= 0 || len(results) < limit {
		flush()
	}
	return results
}

// decodeRedirect unwraps DuckDuckGo's //duckduckgo.com/l/?uddg=<target> links.
func decodeRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	raw := href
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
