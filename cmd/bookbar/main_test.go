package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/bookbar/internal/client"
	"github.com/JohnDeved/bookbar/internal/prefs"
)

func TestResolveTarget(t *testing.T) {
	c := client.New("https://example.org/book", 0, 0)

	book, start, err := resolveTarget(c, nil, []string{"chapter-2"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/book/chapter-2", book)
	assert.Equal(t, book, start)

	book, start, err = resolveTarget(c, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/book", book)
	assert.Equal(t, book, start)
}

func TestResolveTarget_ResumesLastBook(t *testing.T) {
	db, err := prefs.OpenDB(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.RememberBook("https://books.test/one", "https://books.test/one/c3"))

	book, start, err := resolveTarget(client.New("", 0, 0), db, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://books.test/one", book)
	assert.Equal(t, "https://books.test/one/c3", start)
}

func TestResolveTarget_NothingToOpen(t *testing.T) {
	_, _, err := resolveTarget(client.New("", 0, 0), nil, nil)
	assert.Error(t, err)

	_, _, err = resolveTarget(client.New("", 0, 0), nil, []string{"relative"})
	assert.Error(t, err)
}
