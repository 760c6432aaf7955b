package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/martinemde/reactagent/agentloop"
)

// WikipediaToolName is the registry name of the Wikipedia tool.
const WikipediaToolName = "wikipedia"

const (
	wikipediaAPI       = "https://en.wikipedia.org/w/api.php"
	summarySentences   = 3
	disambiguationSize = 5
)

var (
	errNoResults = errors.New("no search results")
	errNoPage    = errors.New("page does not exist")
)

// disambiguationError lists candidate pages for an ambiguous title.
type disambiguationError struct {
	Options []string
}

func (e *disambiguationError) Error() string {
	return fmt.Sprintf("ambiguous title, %d options", len(e.Options))
}

// WikiPage is a resolved article summary.
type WikiPage struct {
	Title   string
	Summary string
	URL     string
}

// Wikipedia looks articles up through the MediaWiki action API.
type Wikipedia struct {
	client   *http.Client
	endpoint string
}

// WikipediaOption configures a Wikipedia tool.
type WikipediaOption func(*Wikipedia)

// WithWikipediaClient sets the HTTP client.
func WithWikipediaClient(c *http.Client) WikipediaOption {
	return func(w *Wikipedia) { w.client = c }
}

// WithWikipediaEndpoint points the tool at another api.php, for example a
// different language edition.
func WithWikipediaEndpoint(endpoint string) WikipediaOption {
	return func(w *Wikipedia) { w.endpoint = endpoint }
}

// NewWikipedia creates a Wikipedia tool for English Wikipedia.
func NewWikipedia(opts ...WikipediaOption) *Wikipedia {
	w := &Wikipedia{client: defaultHTTPClient(), endpoint: wikipediaAPI}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register adds the tool to r under WikipediaToolName.
func (w *Wikipedia) Register(r *agentloop.ToolRegistry) {
	r.RegisterFunc(WikipediaToolName, "Look up a topic on Wikipedia and return a short summary. Input is a topic.", w.Call)
}

// Call resolves query to the best matching article and summarises it.
func (w *Wikipedia) Call(ctx context.Context, query string) string {
	page, err := w.Lookup(ctx, query)
	var disamb *disambiguationError
	switch {
	case err == nil:
		return fmt.Sprintf("Wikipedia: %s\n\nSummary: %s\n\nURL: %s", page.Title, page.Summary, page.URL)
	case errors.Is(err, errNoResults):
		return fmt.Sprintf("No Wikipedia results found for '%s'.", query)
	case errors.Is(err, errNoPage):
		return fmt.Sprintf("No Wikipedia page found for '%s'.", query)
	case errors.As(err, &disamb):
		return fmt.Sprintf("Multiple results found for '%s'. Please be more specific. Options include: %s",
			query, strings.Join(disamb.Options, ", "))
	default:
		return fmt.Sprintf("An error occurred while searching Wikipedia: %v", err)
	}
}

// Lookup searches for query and returns the summary of the top hit.
func (w *Wikipedia) Lookup(ctx context.Context, query string) (*WikiPage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errNoResults
	}
	titles, err := w.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, errNoResults
	}
	return w.page(ctx, titles[0])
}

func (w *Wikipedia) search(ctx context.Context, query string) ([]string, error) {
	var resp struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	err := w.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"10"},
		"srprop":   {""},
	}, &resp)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Query.Search))
	for _, s := range resp.Query.Search {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

func (w *Wikipedia) page(ctx context.Context, title string) (*WikiPage, error) {
	var resp struct {
		Query struct {
			Pages []struct {
				Title     string                     `json:"title"`
				Missing   bool                       `json:"missing"`
				Invalid   bool                       `json:"invalid"`
				Extract   string                     `json:"extract"`
				FullURL   string                     `json:"fullurl"`
				PageProps map[string]json.RawMessage `json:"pageprops"`
			} `json:"pages"`
		} `json:"query"`
	}
	err := w.get(ctx, url.Values{
		"action":      {"query"},
		"titles":      {title},
		"prop":        {"extracts|info|pageprops"},
		"explaintext": {"1"},
		"exsentences": {fmt.Sprint(summarySentences)},
		"inprop":      {"url"},
		"ppprop":      {"disambiguation"},
		"redirects":   {"1"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Query.Pages) == 0 {
		return nil, errNoPage
	}
	p := resp.Query.Pages[0]
	if p.Missing || p.Invalid {
		return nil, errNoPage
	}
	if _, ok := p.PageProps["disambiguation"]; ok {
		options, err := w.links(ctx, p.Title)
		if err != nil {
			return nil, err
		}
		return nil, &disambiguationError{Options: options}
	}
	return &WikiPage{
		Title:   p.Title,
		Summary: strings.TrimSpace(p.Extract),
		URL:     p.FullURL,
	}, nil
}

// links returns up to five article titles linked from a disambiguation page.
func (w *Wikipedia) links(ctx context.Context, title string) ([]string, error) {
	var resp struct {
		Query struct {
			Pages []struct {
				Links []struct {
					Title string `json:"title"`
				} `json:"links"`
			} `json:"pages"`
		} `json:"query"`
	}
	err := w.get(ctx, url.Values{
		"action":      {"query"},
		"titles":      {title},
		"prop":        {"links"},
		"plnamespace": {"0"},
		"pllimit":     {"50"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	var options []string
	for _, p := range resp.Query.Pages {
		for _, l := range p.Links {
			options = append(options, l.Title)
			if len(options) == disambiguationSize {
				return options, nil
			}
		}
	}
	return options, nil
}

func (w *Wikipedia) get(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	reqURL := w.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "react-agent/1.0 (https://github.com/martinemde/reactagent)")
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "wikipedia"); err != nil {
		return err
	}

	var apiErr struct {
		Error *struct {
			Code string `json:"code"`
			Info string `json:"info"`
		} `json:"error"`
	}
	dec := json.NewDecoder(resp.Body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode wikipedia response: %w", err)
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != nil {
		return fmt.Errorf("wikipedia api %s: %s", apiErr.Error.Code, apiErr.Error.Info)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode wikipedia response: %w", err)
	}
	return nil
}
