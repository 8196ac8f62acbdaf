// Package search runs incremental full-text search over a book: it highlights
// the term in the chapter on screen and decides which chapters and parts of
// the catalog stay visible.
package search

import (
	"strings"

	"github.com/JohnDeved/bookbar/internal/catalog"
)

// Cache is the read side of the chapter content cache.
type Cache interface {
	Lookup(ref string) (string, bool)
}

// View is the live, highlightable chapter page.
type View interface {
	ClearHighlights()
	Highlight(term string) int
	HasHighlight(term string) bool
}

// Result is the visibility state produced by a query.
type Result struct {
	Term      string          `json:"term"`
	Chapters  map[string]bool `json:"chapters"`
	Parts     map[string]bool `json:"parts"`
	NoResults bool            `json:"no_results"`
	Matches   int             `json:"matches"`
}

// ChapterVisible reports whether the chapter with ref is shown.
func (r Result) ChapterVisible(ref string) bool {
	return r.Chapters[ref]
}

// PartVisible reports whether the named part is shown.
func (r Result) PartVisible(name string) bool {
	return r.Parts[name]
}

// VisibleChapters returns the shown chapters in reading order.
func (r Result) VisibleChapters(cat *catalog.Catalog) []catalog.Chapter {
	var out []catalog.Chapter
	for _, ch := range cat.Flatten() {
		if r.Chapters[ch.Ref] {
			out = append(out, ch)
		}
	}
	return out
}

// Engine evaluates queries against a catalog, a content cache and an
// optional live view.
type Engine struct {
	cat   *catalog.Catalog
	cache Cache
	view  View
	term  string
}

// New creates an engine. view may be nil when no page is on screen.
func New(cat *catalog.Catalog, cache Cache, view View) *Engine {
	return &Engine{cat: cat, cache: cache, view: view}
}

// SetView replaces the live view. The current term is not re-applied.
func (e *Engine) SetView(view View) {
	e.view = view
}

// Term returns the normalized term of the last query.
func (e *Engine) Term() string {
	return e.term
}

// Normalize trims and lowercases a raw query.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ApplyQuery clears previous highlights, highlights the normalized term in
// the live view and filters the catalog. An empty term resets everything.
func (e *Engine) ApplyQuery(raw string) Result {
	if e.view != nil {
		e.view.ClearHighlights()
	}

	term := Normalize(raw)
	e.term = term
	if term == "" {
		return e.all()
	}

	matches := 0
	if e.view != nil {
		matches = e.view.Highlight(term)
	}
	res := e.Filter(term)
	res.Matches = matches
	return res
}

// Reset clears highlights and shows every chapter.
func (e *Engine) Reset() Result {
	return e.ApplyQuery("")
}

// Filter computes visibility for an already normalized term without touching
// highlights.
func (e *Engine) Filter(term string) Result {
	if term == "" {
		return e.all()
	}

	res := Result{
		Term:     term,
		Chapters: make(map[string]bool),
		Parts:    make(map[string]bool),
	}

	anyPart := false
	for _, p := range e.cat.Parts {
		partMatch := strings.Contains(strings.ToLower(p.Name), term)
		visible := false
		for _, ch := range p.Chapters {
			show := partMatch || e.chapterMatches(ch.Ref, term)
			res.Chapters[ch.Ref] = show
			visible = visible || show
		}
		res.Parts[p.Name] = visible
		anyPart = anyPart || visible
	}
	res.NoResults = !anyPart
	return res
}

func (e *Engine) chapterMatches(ref, term string) bool {
	if e.cache != nil {
		if text, ok := e.cache.Lookup(ref); ok && strings.Contains(text, term) {
			return true
		}
	}
	// Fall back to the markers on the live page, whichever chapter it is.
	return e.view != nil && e.view.HasHighlight(term)
}

func (e *Engine) all() Result {
	res := Result{
		Chapters: make(map[string]bool),
		Parts:    make(map[string]bool),
	}
	for _, p := range e.cat.Parts {
		res.Parts[p.Name] = true
		for _, ch := range p.Chapters {
			res.Chapters[ch.Ref] = true
		}
	}
	return res
}
