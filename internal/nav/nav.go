package nav

import (
	"errors"

	"github.com/JohnDeved/bookbar/internal/catalog"
)

// Display text used by the next-chapter panel.
const (
	LabelNext           = "Next Chapter"
	LabelReadMore       = "Read more"
	SummaryUnavailable  = "Summary not available"
	NoNextChapterNotice = "No next chapter available"
)

// ErrUnknownChapter means the current page is not part of the catalog.
var ErrUnknownChapter = errors.New("current chapter not found in catalog")

// Control is a prev/next link.
type Control struct {
	Active bool   `json:"active"`
	Ref    string `json:"ref,omitempty"`
}

// SummaryPanel describes the teaser shown under the next-chapter button.
type SummaryPanel struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text"`
}

// NextControl is the next link plus the panel metadata that goes with it.
type NextControl struct {
	Control
	Label   string       `json:"label"`
	Heading string       `json:"heading"`
	Summary SummaryPanel `json:"summary"`
}

// Info is everything the presentation layer needs to render navigation for
// the chapter on screen.
type Info struct {
	Current      catalog.Chapter `json:"current"`
	Position     int             `json:"position"`
	Total        int             `json:"total"`
	Prev         Control         `json:"prev"`
	Next         NextControl     `json:"next"`
	TitleVisible bool            `json:"title_visible"`
}

// Resolve computes previous/next navigation for currentRef. An unknown ref
// yields an inert Info and ErrUnknownChapter.
func Resolve(cat *catalog.Catalog, currentRef string) (Info, error) {
	pos, ok := cat.Position(currentRef)
	if !ok {
		return Info{Position: -1, Total: cat.Len()}, ErrUnknownChapter
	}
	current, _ := cat.At(pos)

	info := Info{
		Current:      current,
		Position:     pos,
		Total:        cat.Len(),
		TitleVisible: titleVisible(cat, current),
	}

	if prev, ok := cat.At(pos - 1); ok {
		info.Prev = Control{Active: true, Ref: prev.Ref}
	}

	next, ok := cat.At(pos + 1)
	if !ok {
		info.Next = NextControl{Heading: NoNextChapterNotice}
		return info, nil
	}

	heading := next.Title
	if heading == "" {
		heading = next.Ref
	}
	info.Next = NextControl{
		Control: Control{Active: true, Ref: next.Ref},
		Heading: heading,
	}
	if readMore(next) {
		info.Next.Label = LabelReadMore
		return info, nil
	}

	info.Next.Label = LabelNext
	info.Next.Summary = SummaryPanel{Visible: true, Text: SummaryUnavailable}
	if next.HasSummary {
		info.Next.Summary.Text = next.Summary
	}
	return info, nil
}

// readMore reports whether the next chapter is back matter, which gets a
// generic label and no summary teaser.
func readMore(next catalog.Chapter) bool {
	return catalog.IsBackMatter(next.PartName) || next.Title == catalog.EpilogueTitle
}

// titleVisible reports whether the chapter heading should be shown: only on
// the first chapter of an ordinary part.
func titleVisible(cat *catalog.Catalog, ch catalog.Chapter) bool {
	if catalog.IsBackMatter(ch.PartName) {
		return false
	}
	part, ok := cat.Part(ch.PartName)
	if !ok || len(part.Chapters) == 0 {
		return false
	}
	return part.Chapters[0].Ref == ch.Ref
}
