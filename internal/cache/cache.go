// Package cache prefetches the plain text of every chapter so that search can
// look beyond the page on screen.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/JohnDeved/bookbar/internal/logger"
	"github.com/JohnDeved/bookbar/internal/page"
)

// Fetcher retrieves a chapter page.
type Fetcher interface {
	FetchDocument(ctx context.Context, ref string) (*html.Node, error)
}

// Stats reports prefetch progress.
type Stats struct {
	Requested int64 `json:"requested"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Entries   int   `json:"entries"`
	Bytes     int64 `json:"bytes"`
}

// Pending returns how many fetches are still in flight.
func (s Stats) Pending() int64 {
	return s.Requested - s.Completed - s.Failed
}

// Cache maps chapter refs to lowercased "title body" text. Entries are
// written at most once. A missing entry means the chapter has not been
// fetched (yet), never that it does not match.
type Cache struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu       sync.RWMutex
	entries  map[string]string
	inFlight map[string]struct{}
	onChange func(Stats)

	requested atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	bytes     atomic.Int64
}

// New creates an empty cache.
func New(f Fetcher, log *slog.Logger) *Cache {
	if log == nil {
		log = logger.Discard()
	}
	return &Cache{
		fetcher:  f,
		logger:   log,
		entries:  make(map[string]string),
		inFlight: make(map[string]struct{}),
	}
}

// SetOnChange sets a function called whenever a fetch finishes.
func (c *Cache) SetOnChange(fn func(Stats)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Compose builds the searchable text of a chapter.
func Compose(title, body string) string {
	return strings.ToLower(title) + " " + strings.ToLower(body)
}

// Lookup returns the cached text for ref.
func (c *Cache) Lookup(ref string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[ref]
	return text, ok
}

// Store records text for ref unless an entry already exists. It reports
// whether the entry was written.
func (c *Cache) Store(ref, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[ref]; exists {
		return false
	}
	c.entries[ref] = text
	c.bytes.Add(int64(len(text)))
	return true
}

// Len returns the number of cached chapters.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of prefetch progress.
func (c *Cache) Stats() Stats {
	return Stats{
		Requested: c.requested.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
		Entries:   c.Len(),
		Bytes:     c.bytes.Load(),
	}
}

// PrefetchAll fetches every ref concurrently, one goroutine per ref, and
// returns a channel that is closed once all of them have finished. Refs that
// are already cached or already being fetched are skipped. Failures are
// logged and leave the entry absent; nothing is retried. Canceling ctx stops
// outstanding fetches.
func (c *Cache) PrefetchAll(ctx context.Context, refs []string) <-chan struct{} {
	done := make(chan struct{})

	var wg sync.WaitGroup
	for _, ref := range refs {
		if !c.claim(ref) {
			continue
		}
		c.requested.Add(1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.fetchOne(ctx, ref)
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (c *Cache) claim(ref string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[ref]; ok {
		return false
	}
	if _, ok := c.inFlight[ref]; ok {
		return false
	}
	c.inFlight[ref] = struct{}{}
	return true
}

func (c *Cache) fetchOne(ctx context.Context, ref string) {
	defer c.notify()
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, ref)
		c.mu.Unlock()
	}()

	doc, err := c.fetcher.FetchDocument(ctx, ref)
	if err != nil {
		c.failed.Add(1)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			c.logger.Debug("prefetch canceled", "ref", ref)
			return
		}
		c.logger.Warn("prefetch failed", "ref", ref, "error", err)
		return
	}

	title, body := page.ExtractContent(doc)
	c.Store(ref, Compose(title, body))
	c.completed.Add(1)
	c.logger.Debug("prefetched chapter", "ref", ref, "bytes", len(title)+len(body))
}

func (c *Cache) notify() {
	c.mu.RLock()
	fn := c.onChange
	c.mu.RUnlock()
	if fn != nil {
		fn(c.Stats())
	}
}
