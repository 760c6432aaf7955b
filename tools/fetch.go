package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/martinemde/reactagent/agentloop"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FetchToolName is the registry name of the page fetch tool.
const FetchToolName = "fetch"

const maxFetchBytes = 32 * 1024

// Fetch downloads a web page and returns its readable text.
type Fetch struct {
	client *http.Client
}

// NewFetch creates a Fetch tool using a client with a modest timeout.
func NewFetch() *Fetch {
	return &Fetch{client: defaultHTTPClient()}
}

// NewFetchWithClient creates a Fetch tool using client.
func NewFetchWithClient(client *http.Client) *Fetch {
	return &Fetch{client: client}
}

// Call fetches the URL given as input.
func (f *Fetch) Call(ctx context.Context, input string) string {
	target := strings.TrimSpace(input)
	text, err := f.Fetch(ctx, target)
	if err != nil {
		return fmt.Sprintf("An error occurred while fetching '%s': %v", target, err)
	}
	if text == "" {
		return fmt.Sprintf("No readable text found at '%s'.", target)
	}
	return text
}

// Register adds the tool to r under FetchToolName.
func (f *Fetch) Register(r *agentloop.ToolRegistry) {
	r.RegisterFunc(FetchToolName, "Download a web page and return its text. Input is a URL.", f.Call)
}

// Fetch downloads rawURL and extracts text. Output is capped at 32 KiB.
func (f *Fetch) Fetch(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("fetch url is empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", fmt.Errorf("unsupported url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "fetch"); err != nil {
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", err
	}

	var text string
	if strings.Contains(resp.Header.Get("Content-Type"), "html") || looksLikeHTML(body) {
		text, err = readableText(string(body))
		if err != nil {
			return "", err
		}
	} else {
		text = strings.TrimSpace(string(body))
	}

	if len(text) > maxFetchBytes {
		text = text[:runeStart(text, maxFetchBytes)] + "\n[TRUNCATED]"
	}
	return text, nil
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// skipped elements carry no readable content.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Svg:      true,
	atom.Template: true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Pre: true, atom.Blockquote: true,
}

// readableText returns the visible text of an HTML document, one block per
// line.
func readableText(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blocks[n.DataAtom] {
			sb.WriteByte('\n')
		}
	}
	walk(root)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = collapseSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// htmlText returns the text content of an HTML fragment.
func htmlText(s string) (string, error) {
	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	return nodeText(root), nil
}

// runeStart moves i back to the start of the rune containing it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
