package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/martinemde/reactagent/agentloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMediaWiki answers the three query shapes the tool issues.
func fakeMediaWiki(t *testing.T, search, page, links string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "2", q.Get("formatversion"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("list") == "search":
			_, _ = w.Write([]byte(search))
		case q.Get("prop") == "links":
			_, _ = w.Write([]byte(links))
		default:
			assert.Equal(t, "3", q.Get("exsentences"))
			_, _ = w.Write([]byte(page))
		}
	}))
}

func wiki(srv *httptest.Server) *Wikipedia {
	return NewWikipedia(WithWikipediaClient(srv.Client()), WithWikipediaEndpoint(srv.URL))
}

func TestWikipediaSummary(t *testing.T) {
	srv := fakeMediaWiki(t,
		`{"query":{"search":[{"title":"Go (programming language)"},{"title":"Go (game)"}]}}`,
		`{"query":{"pages":[{"title":"Go (programming language)","extract":"Go is a language. It is compiled. It is typed.","fullurl":"https://en.wikipedia.org/wiki/Go_(programming_language)"}]}}`,
		``,
	)
	defer srv.Close()

	out := wiki(srv).Call(context.Background(), "golang")
	assert.Equal(t, "Wikipedia: Go (programming language)\n\n"+
		"Summary: Go is a language. It is compiled. It is typed.\n\n"+
		"URL: https://en.wikipedia.org/wiki/Go_(programming_language)", out)
}

func TestWikipediaNoResults(t *testing.T) {
	srv := fakeMediaWiki(t, `{"query":{"search":[]}}`, ``, ``)
	defer srv.Close()

	assert.Equal(t, "No Wikipedia results found for 'xyzzy'.", wiki(srv).Call(context.Background(), "xyzzy"))
}

func TestWikipediaMissingPage(t *testing.T) {
	srv := fakeMediaWiki(t,
		`{"query":{"search":[{"title":"Ghost"}]}}`,
		`{"query":{"pages":[{"title":"Ghost","missing":true}]}}`,
		``,
	)
	defer srv.Close()

	assert.Equal(t, "No Wikipedia page found for 'ghost'.", wiki(srv).Call(context.Background(), "ghost"))
}

func TestWikipediaDisambiguation(t *testing.T) {
	srv := fakeMediaWiki(t,
		`{"query":{"search":[{"title":"Mercury"}]}}`,
		`{"query":{"pages":[{"title":"Mercury","extract":"Mercury may refer to:","pageprops":{"disambiguation":""}}]}}`,
		`{"query":{"pages":[{"links":[{"title":"Mercury (planet)"},{"title":"Mercury (element)"},{"title":"Mercury (mythology)"},{"title":"Freddie Mercury"},{"title":"Mercury Records"},{"title":"Mercury program"}]}]}}`,
	)
	defer srv.Close()

	out := wiki(srv).Call(context.Background(), "mercury")
	assert.Equal(t, "Multiple results found for 'mercury'. Please be more specific. Options include: "+
		"Mercury (planet), Mercury (element), Mercury (mythology), Freddie Mercury, Mercury Records", out)
}

func TestWikipediaAPIError(t *testing.T) {
	srv := fakeMediaWiki(t, `{"error":{"code":"maxlag","info":"Waiting for a database server"}}`, ``, ``)
	defer srv.Close()

	out := wiki(srv).Call(context.Background(), "go")
	assert.Equal(t, "An error occurred while searching Wikipedia: wikipedia api maxlag: Waiting for a database server", out)
}

func TestWikipediaHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	out := wiki(srv).Call(context.Background(), "go")
	assert.Equal(t, "An error occurred while searching Wikipedia: wikipedia http 503", out)
}

func TestWikipediaRegister(t *testing.T) {
	r := agentloop.NewToolRegistry()
	NewWikipedia().Register(r)
	require.NotNil(t, r.Get(WikipediaToolName))
}
