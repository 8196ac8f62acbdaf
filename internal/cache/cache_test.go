package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	calls  map[string]int
	block  chan struct{}
	active atomic.Int64
	peak   atomic.Int64
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, calls: make(map[string]int)}
}

func (f *fakeFetcher) FetchDocument(ctx context.Context, ref string) (*html.Node, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[ref]++
	body, ok := f.pages[ref]
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, errors.New("HTTP 404")
	}
	return html.Parse(strings.NewReader(body))
}

func chapterHTML(title, body string) string {
	return `<h1 class="heading--29 is--chapter-title">` + title + `</h1>` +
		`<div class="book--richtext"><p>` + body + `</p></div>`
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("prefetch did not finish")
	}
}

func TestPrefetchAll_PopulatesLowercasedEntries(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		"/a": chapterHTML("The Start", "Once UPON a time."),
		"/b": chapterHTML("Second", "More text."),
	})
	c := New(f, nil)

	wait(t, c.PrefetchAll(context.Background(), []string{"/a", "/b"}))

	text, ok := c.Lookup("/a")
	require.True(t, ok)
	assert.Equal(t, "the start once upon a time. ", text)
	assert.Equal(t, 2, c.Len())

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Requested)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Pending())
	assert.Positive(t, stats.Bytes)
}

func TestPrefetchAll_FailureLeavesEntryAbsent(t *testing.T) {
	f := newFakeFetcher(map[string]string{"/a": chapterHTML("A", "a")})
	c := New(f, nil)

	wait(t, c.PrefetchAll(context.Background(), []string{"/a", "/missing"}))

	_, ok := c.Lookup("/missing")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Failed)
	assert.Equal(t, 1, f.calls["/missing"], "failures are not retried")
}

func TestPrefetchAll_SkipsCachedRefs(t *testing.T) {
	f := newFakeFetcher(map[string]string{"/a": chapterHTML("A", "a")})
	c := New(f, nil)

	wait(t, c.PrefetchAll(context.Background(), []string{"/a"}))
	wait(t, c.PrefetchAll(context.Background(), []string{"/a", "/a"}))

	assert.Equal(t, 1, f.calls["/a"])
}

func TestPrefetchAll_RunsAllFetchesConcurrently(t *testing.T) {
	pages := map[string]string{}
	var refs []string
	for _, r := range []string{"/1", "/2", "/3", "/4", "/5", "/6"} {
		pages[r] = chapterHTML(r, r)
		refs = append(refs, r)
	}
	f := newFakeFetcher(pages)
	f.block = make(chan struct{})
	c := New(f, nil)

	done := c.PrefetchAll(context.Background(), refs)
	require.Eventually(t, func() bool { return f.active.Load() == int64(len(refs)) },
		5*time.Second, 5*time.Millisecond)
	assert.Zero(t, c.Len(), "entries are absent while fetches are in flight")

	close(f.block)
	wait(t, done)
	assert.Equal(t, int64(len(refs)), f.peak.Load())
	assert.Equal(t, len(refs), c.Len())
}

func TestPrefetchAll_CancelStopsOutstanding(t *testing.T) {
	f := newFakeFetcher(map[string]string{"/a": chapterHTML("A", "a")})
	f.block = make(chan struct{})
	c := New(f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := c.PrefetchAll(ctx, []string{"/a"})
	cancel()
	wait(t, done)

	_, ok := c.Lookup("/a")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Failed)
}

func TestStore_WriteOnce(t *testing.T) {
	c := New(newFakeFetcher(nil), nil)
	assert.True(t, c.Store("/a", "first"))
	assert.False(t, c.Store("/a", "second"))

	text, _ := c.Lookup("/a")
	assert.Equal(t, "first", text)
}

func TestOnChange(t *testing.T) {
	f := newFakeFetcher(map[string]string{"/a": chapterHTML("A", "a")})
	c := New(f, nil)

	var calls atomic.Int64
	c.SetOnChange(func(Stats) { calls.Add(1) })
	wait(t, c.PrefetchAll(context.Background(), []string{"/a", "/b"}))

	assert.Equal(t, int64(2), calls.Load())
}

func TestCompose(t *testing.T) {
	assert.Equal(t, "title body text ", Compose("Title", "Body TEXT "))
}
