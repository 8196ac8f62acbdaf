package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/bookbar/internal/catalog"
)

func buildCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Build([]catalog.Record{
		{PartName: "Part One", Number: 1, Ref: "/p1c1", Title: "Beginnings", Summary: "Where it starts.", HasSummary: true},
		{PartName: "Part One", Number: 2, Ref: "/p1c2", Title: "Middles"},
		{PartName: "Part Two", Number: 1, Ref: "/p2c1", Title: "Turns", Summary: "A turn.", HasSummary: true},
		{PartName: catalog.EndnotesPart, Number: 1, Ref: "/notes", Title: "Notes", Summary: "Ignored text", HasSummary: true},
	})
	require.NoError(t, err)
	return cat
}

func TestResolve_Middle(t *testing.T) {
	cat := buildCatalog(t)

	info, err := Resolve(cat, "/p1c2")
	require.NoError(t, err)

	assert.Equal(t, 1, info.Position)
	assert.Equal(t, 4, info.Total)
	assert.Equal(t, Control{Active: true, Ref: "/p1c1"}, info.Prev)
	assert.True(t, info.Next.Active)
	assert.Equal(t, "/p2c1", info.Next.Ref)
	assert.Equal(t, LabelNext, info.Next.Label)
	assert.Equal(t, "Turns", info.Next.Heading)
	assert.Equal(t, SummaryPanel{Visible: true, Text: "A turn."}, info.Next.Summary)
	assert.False(t, info.TitleVisible, "second chapter of a part hides its title")
}

func TestResolve_FirstChapterHasNoPrev(t *testing.T) {
	cat := buildCatalog(t)

	info, err := Resolve(cat, "/p1c1")
	require.NoError(t, err)

	assert.False(t, info.Prev.Active)
	assert.Empty(t, info.Prev.Ref)
	assert.True(t, info.TitleVisible)
}

func TestResolve_MissingSummaryPlaceholder(t *testing.T) {
	cat := buildCatalog(t)

	info, err := Resolve(cat, "/p1c1")
	require.NoError(t, err)

	assert.Equal(t, "/p1c2", info.Next.Ref)
	assert.Equal(t, LabelNext, info.Next.Label)
	assert.True(t, info.Next.Summary.Visible)
	assert.Equal(t, "Summary not available", info.Next.Summary.Text)
}

func TestResolve_NextIsEndnotes(t *testing.T) {
	cat := buildCatalog(t)

	info, err := Resolve(cat, "/p2c1")
	require.NoError(t, err)

	assert.True(t, info.Next.Active)
	assert.Equal(t, "/notes", info.Next.Ref)
	assert.Equal(t, "Read more", info.Next.Label)
	assert.False(t, info.Next.Summary.Visible)
	assert.True(t, info.TitleVisible)
}

func TestResolve_NextTitledEpilogue(t *testing.T) {
	cat, err := catalog.Build([]catalog.Record{
		{PartName: "Part One", Number: 1, Ref: "/a", Title: "A"},
		{PartName: "Part One", Number: 2, Ref: "/b", Title: catalog.EpilogueTitle, Summary: "x", HasSummary: true},
	})
	require.NoError(t, err)

	info, err := Resolve(cat, "/a")
	require.NoError(t, err)
	assert.Equal(t, LabelReadMore, info.Next.Label)
	assert.False(t, info.Next.Summary.Visible)
}

func TestResolve_LastChapter(t *testing.T) {
	cat := buildCatalog(t)

	info, err := Resolve(cat, "/notes")
	require.NoError(t, err)

	assert.False(t, info.Next.Active)
	assert.Empty(t, info.Next.Ref)
	assert.Empty(t, info.Next.Label)
	assert.Equal(t, NoNextChapterNotice, info.Next.Heading)
	assert.False(t, info.Next.Summary.Visible)
	assert.Empty(t, info.Next.Summary.Text)
	assert.True(t, info.Prev.Active)
	assert.False(t, info.TitleVisible, "back matter never shows the chapter title")
}

func TestResolve_UnknownRef(t *testing.T) {
	cat := buildCatalog(t)

	info, err := Resolve(cat, "/missing")
	assert.ErrorIs(t, err, ErrUnknownChapter)
	assert.False(t, info.Prev.Active)
	assert.False(t, info.Next.Active)
	assert.Equal(t, -1, info.Position)
}

func TestResolve_HeadingFallsBackToRef(t *testing.T) {
	cat, err := catalog.Build([]catalog.Record{
		{PartName: "P", Number: 1, Ref: "/a", Title: "A"},
		{PartName: "P", Number: 2, Ref: "/b"},
	})
	require.NoError(t, err)

	info, err := Resolve(cat, "/a")
	require.NoError(t, err)
	assert.Equal(t, "/b", info.Next.Heading)
}
