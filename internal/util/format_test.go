package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "2.0 MB", FormatBytes(2*1024*1024))
}

func TestShortRef(t *testing.T) {
	assert.Equal(t, "/book/chapter-1", ShortRef("https://example.com/book/chapter-1/", 40))
	assert.Equal(t, "/", ShortRef("https://example.com", 40))
	assert.Equal(t, "/a?x=1", ShortRef("https://example.com/a?x=1", 40))
	assert.Equal(t, "...pter-12", ShortRef("https://example.com/book/chapter-12", 10))
	assert.Len(t, ShortRef("https://example.com/book/chapter-12", 10), 10)
	assert.Equal(t, "relative/ref", ShortRef("relative/ref", 40))
}
