// Package session ties a fetched book together: one catalog, one content
// cache, the chapter currently on screen and the search engine that works on
// all three.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/JohnDeved/bookbar/internal/cache"
	"github.com/JohnDeved/bookbar/internal/catalog"
	"github.com/JohnDeved/bookbar/internal/logger"
	"github.com/JohnDeved/bookbar/internal/nav"
	"github.com/JohnDeved/bookbar/internal/page"
	"github.com/JohnDeved/bookbar/internal/search"
)

// Fetcher retrieves and parses a page by absolute URL, either as a bare node
// tree for the cache or as a chapter page.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*html.Node, error)
	FetchPage(ctx context.Context, url string) (*page.Document, error)
}

// Session is the reading state of one book. Fetch and the cache may be used
// from any goroutine; everything else belongs to the caller's event loop.
type Session struct {
	fetcher Fetcher
	logger  *slog.Logger

	cat    *catalog.Catalog
	cache  *cache.Cache
	engine *search.Engine

	doc     *page.Document
	current string
	result  search.Result

	ctx    context.Context
	cancel context.CancelFunc
}

// Open fetches the page at url, builds the catalog from its book bar and
// makes the page the live chapter. The returned session must be closed.
func Open(ctx context.Context, f Fetcher, url string, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = logger.Discard()
	}

	root, err := f.FetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching start page: %w", err)
	}

	records, err := page.ExtractRecords(root, url)
	if err != nil {
		return nil, fmt.Errorf("reading book bar: %w", err)
	}
	cat, err := catalog.Build(records)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}

	current, ok := page.CurrentRef(root, url)
	if !ok {
		current = url
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		fetcher: f,
		logger:  log,
		cat:     cat,
		cache:   cache.New(f, log.With("component", "cache")),
		ctx:     sctx,
		cancel:  cancel,
	}
	s.engine = search.New(cat, s.cache, nil)
	s.Activate(current, page.NewDocument(root, url))

	log.Info("opened book",
		"url", url,
		"current", current,
		"parts", len(cat.Parts),
		"chapters", cat.Len())
	return s, nil
}

// Catalog returns the book's catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.cat }

// Cache returns the content cache.
func (s *Session) Cache() *cache.Cache { return s.cache }

// Document returns the live chapter page.
func (s *Session) Document() *page.Document { return s.doc }

// Current returns the ref of the live chapter.
func (s *Session) Current() string { return s.current }

// Result returns the visibility state of the last query.
func (s *Session) Result() search.Result { return s.result }

// Term returns the normalized active query.
func (s *Session) Term() string { return s.engine.Term() }

// Nav resolves previous/next navigation for the live chapter.
func (s *Session) Nav() (nav.Info, error) {
	return nav.Resolve(s.cat, s.current)
}

// StartPrefetch fetches every chapter of the catalog in the background. The
// returned channel is closed when all fetches have finished or Close was
// called.
func (s *Session) StartPrefetch() <-chan struct{} {
	return s.cache.PrefetchAll(s.ctx, s.cat.Refs())
}

// Fetch loads the chapter page for ref without touching the session.
func (s *Session) Fetch(ctx context.Context, ref string) (*page.Document, error) {
	doc, err := s.fetcher.FetchPage(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching chapter: %w", err)
	}
	return doc, nil
}

// Activate makes doc the live chapter for ref and re-applies the active
// query to it.
func (s *Session) Activate(ref string, doc *page.Document) search.Result {
	s.doc = doc
	s.current = ref

	title, body := page.ExtractContent(doc.Root())
	s.cache.Store(ref, cache.Compose(title, body))

	s.engine.SetView(doc)
	s.result = s.engine.ApplyQuery(s.engine.Term())
	return s.result
}

// Navigate fetches ref and makes it the live chapter.
func (s *Session) Navigate(ctx context.Context, ref string) (search.Result, error) {
	if _, ok := s.cat.Find(ref); !ok {
		return s.result, fmt.Errorf("%w: %s", nav.ErrUnknownChapter, ref)
	}
	doc, err := s.Fetch(ctx, ref)
	if err != nil {
		return s.result, err
	}
	s.logger.Debug("navigated", "ref", ref)
	return s.Activate(ref, doc), nil
}

// Query highlights term on the live page and filters the catalog.
func (s *Session) Query(term string) search.Result {
	s.result = s.engine.ApplyQuery(term)
	return s.result
}

// Refilter recomputes visibility for the active query, picking up cache
// entries that arrived since the last query.
func (s *Session) Refilter() search.Result {
	if s.engine.Term() == "" {
		return s.result
	}
	matches := s.result.Matches
	s.result = s.engine.Filter(s.engine.Term())
	s.result.Matches = matches
	return s.result
}

// Reset clears the query.
func (s *Session) Reset() search.Result {
	s.result = s.engine.Reset()
	return s.result
}

// Close cancels outstanding prefetches.
func (s *Session) Close() {
	s.cancel()
}
