package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/reactagent/agentloop"
)

// SearchToolName is the registry name of the web search tool.
const SearchToolName = "search"

const (
	defaultMaxResults = 3
	snippetLimit      = 200
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider is a web search backend.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// WebSearch adapts a SearchProvider to a tool.
type WebSearch struct {
	provider   SearchProvider
	maxResults int
}

// NewWebSearch returns a search tool reporting at most maxResults hits.
// A maxResults of zero or less uses the default of 3.
func NewWebSearch(provider SearchProvider, maxResults int) *WebSearch {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &WebSearch{provider: provider, maxResults: maxResults}
}

// Call runs the search and formats the results.
func (w *WebSearch) Call(ctx context.Context, query string) string {
	results, err := w.provider.Search(ctx, query, w.maxResults)
	if err != nil {
		return fmt.Sprintf("An error occurred while searching: %v", err)
	}
	if len(results) > w.maxResults {
		results = results[:w.maxResults]
	}
	return FormatSearchResults(results)
}

// Register adds the tool to r under SearchToolName.
func (w *WebSearch) Register(r *agentloop.ToolRegistry) {
	r.RegisterFunc(SearchToolName, "Search the web. Input is a search query.", w.Call)
}

// FormatSearchResults renders results as numbered entries with snippets cut
// to 200 characters.
func FormatSearchResults(results []SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Search Results:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s...\n\n", i+1, r.Title, r.URL, truncateRunes(r.Snippet, snippetLimit))
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// NewSearchProvider returns the backend called name: "duckduckgo" (also the
// default for an empty name), "tavily" or "brave".
func NewSearchProvider(name, apiKey string) (SearchProvider, error) {
	switch strings.ToLower(name) {
	case "", "duckduckgo", "ddg":
		return NewDuckDuckGo(), nil
	case "tavily":
		if apiKey == "" {
			return nil, fmt.Errorf("search provider %q requires an API key", name)
		}
		return NewTavily(apiKey, ""), nil
	case "brave":
		if apiKey == "" {
			return nil, fmt.Errorf("search provider %q requires an API key", name)
		}
		return NewBrave(apiKey), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", name)
	}
}
