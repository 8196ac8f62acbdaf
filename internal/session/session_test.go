package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/bookbar/internal/client"
	"github.com/JohnDeved/bookbar/internal/nav"
)

type chapter struct {
	part, slug, title, summary, body string
	number                           int
}

var book = []chapter{
	{"Introduction", "intro", "Welcome", "", "intro text", 1},
	{"Origins", "c1", "Beginnings", "Where it starts.", "The treaty was signed.", 1},
	{"Origins", "c2", "Growth", "", "Markets expanded quickly.", 2},
	{"Endnotes", "notes", "Notes", "All the notes.", "Footnote material.", 1},
}

func bookServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for _, c := range book {
		mux.HandleFunc("/book/"+c.slug, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, render(c.slug))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func render(current string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="w-dyn-list">`)
	var page chapter
	for _, c := range book {
		cls := "book-bar-chapter-link"
		if c.slug == current {
			cls += " w--current"
			page = c
		}
		fmt.Fprintf(&b, `<div class="w-dyn-item"><div class="chapter-bar--part-name">%s</div>`+
			`<div class="book-bar-chapter-number">%d</div><a class="%s" href="/book/%s">%s</a>`,
			c.part, c.number, cls, c.slug, c.title)
		if c.summary != "" {
			fmt.Fprintf(&b, `<div class="chapter--summary">%s</div>`, c.summary)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<h1 class="heading--29 is--chapter-title">%s</h1>`, page.title)
	fmt.Fprintf(&b, `<div class="book--richtext"><p>%s</p></div></body></html>`, page.body)
	return b.String()
}

func open(t *testing.T, srv *httptest.Server, slug string) *Session {
	t.Helper()
	s, err := Open(context.Background(), client.New(srv.URL, 0, 0), srv.URL+"/book/"+slug, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestOpen(t *testing.T) {
	srv := bookServer(t)
	s := open(t, srv, "c1")

	assert.Equal(t, srv.URL+"/book/c1", s.Current())
	assert.Equal(t, 3, s.Catalog().Len(), "introduction is dropped")
	assert.Equal(t, "Beginnings", s.Document().Title())

	text, ok := s.Cache().Lookup(s.Current())
	require.True(t, ok, "live chapter is cached on open")
	assert.Equal(t, "beginnings the treaty was signed. ", text)

	info, err := s.Nav()
	require.NoError(t, err)
	assert.False(t, info.Prev.Active)
	assert.True(t, info.Next.Active)
	assert.Equal(t, nav.LabelNext, info.Next.Label)
	assert.Equal(t, "Growth", info.Next.Heading)
	assert.Equal(t, nav.SummaryUnavailable, info.Next.Summary.Text)
	assert.True(t, info.TitleVisible)
}

func TestPrefetchAndSearch(t *testing.T) {
	srv := bookServer(t)
	s := open(t, srv, "c1")

	res := s.Query("markets")
	assert.True(t, res.NoResults, "c2 is not cached yet and the live page has no match")

	select {
	case <-s.StartPrefetch():
	case <-time.After(5 * time.Second):
		t.Fatal("prefetch did not finish")
	}
	assert.Equal(t, 3, s.Cache().Len())

	res = s.Refilter()
	assert.False(t, res.NoResults)
	assert.True(t, res.ChapterVisible(srv.URL+"/book/c2"))
	assert.False(t, res.ChapterVisible(srv.URL+"/book/c1"))
	assert.False(t, res.PartVisible("Endnotes"))

	res = s.Reset()
	assert.True(t, res.PartVisible("Endnotes"))
	assert.Empty(t, s.Term())
}

func TestNavigate_ReappliesQuery(t *testing.T) {
	srv := bookServer(t)
	s := open(t, srv, "c1")

	s.Query("quickly")
	assert.Zero(t, s.Document().HighlightCount())

	res, err := s.Navigate(context.Background(), srv.URL+"/book/c2")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/book/c2", s.Current())
	assert.Equal(t, 1, res.Matches)
	assert.True(t, s.Document().HasHighlight("quickly"))

	info, err := s.Nav()
	require.NoError(t, err)
	assert.True(t, info.Prev.Active)
	assert.Equal(t, srv.URL+"/book/c1", info.Prev.Ref)
	assert.Equal(t, nav.LabelReadMore, info.Next.Label)
	assert.False(t, info.Next.Summary.Visible)
}

func TestNavigate_UnknownRef(t *testing.T) {
	srv := bookServer(t)
	s := open(t, srv, "c1")

	_, err := s.Navigate(context.Background(), srv.URL+"/book/nowhere")
	assert.ErrorIs(t, err, nav.ErrUnknownChapter)
	assert.Equal(t, srv.URL+"/book/c1", s.Current())
}

func TestClose_CancelsPrefetch(t *testing.T) {
	block := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/book/c1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, render("c1"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer close(block)

	s, err := Open(context.Background(), client.New(srv.URL, 0, 0), srv.URL+"/book/c1", nil)
	require.NoError(t, err)

	done := s.StartPrefetch()
	s.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("prefetch was not canceled")
	}
	assert.Equal(t, 1, s.Cache().Len())
	assert.Equal(t, int64(2), s.Cache().Stats().Failed)
}

func TestFetch_ReturnsChapterPage(t *testing.T) {
	srv := bookServer(t)
	s := open(t, srv, "c1")

	doc, err := s.Fetch(context.Background(), srv.URL+"/book/c2")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/book/c2", doc.URL())
	assert.Equal(t, "Growth", doc.Title())
	assert.Equal(t, srv.URL+"/book/c1", s.Current(), "fetching does not change the live chapter")

	_, err = s.Fetch(context.Background(), srv.URL+"/book/missing")
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestOpen_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Open(context.Background(), client.New(srv.URL, 0, 0), srv.URL+"/book/x", nil)
	assert.Error(t, err)
}
