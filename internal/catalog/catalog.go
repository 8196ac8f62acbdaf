package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Part names that get special treatment in ordering, navigation labels and
// title display.
const (
	IntroductionPart     = "Introduction"
	AcknowledgementsPart = "Acknowledgements"
	EndnotesPart         = "Endnotes"
	EpilogueTitle        = "Epilogue: A Vision for Strengthening Medicaid and Advancing Health Equity"
)

var (
	// ErrDuplicateChapter is returned when two records share a part and chapter number.
	ErrDuplicateChapter = errors.New("duplicate chapter number")
	// ErrDuplicateRef is returned when two records point at the same chapter page.
	ErrDuplicateRef = errors.New("duplicate chapter reference")
)

// Record is one raw, ungrouped entry from the book bar.
type Record struct {
	PartName   string
	Number     int
	Ref        string // Absolute URL of the chapter page
	Title      string
	Summary    string
	HasSummary bool
}

// Chapter is a single readable page within a part.
type Chapter struct {
	Ref        string `json:"ref"`
	Title      string `json:"title"`
	PartName   string `json:"part"`
	Number     int    `json:"number"`
	Summary    string `json:"summary,omitempty"`
	HasSummary bool   `json:"has_summary"`
}

// Part is a named group of chapters ordered by chapter number.
type Part struct {
	Name     string    `json:"name"`
	Chapters []Chapter `json:"chapters"`
}

// Catalog is the ordered sequence of parts built from the book bar.
type Catalog struct {
	Parts []Part `json:"parts"`

	order []Chapter
	index map[string]int
}

// IsBackMatter reports whether a part name is one of the trailing sections
// (acknowledgements, endnotes, epilogue).
func IsBackMatter(partName string) bool {
	return partRank(partName) > 0
}

// partRank places ordinary parts first, then acknowledgements, endnotes and
// the epilogue, in that order.
func partRank(name string) int {
	switch name {
	case AcknowledgementsPart:
		return 1
	case EndnotesPart:
		return 2
	case EpilogueTitle:
		return 3
	default:
		return 0
	}
}

func compareParts(a, b string) int {
	if c := cmp.Compare(partRank(a), partRank(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// Build groups records by part, orders the parts and the chapters within each
// part, and returns the resulting catalog. Introduction records are dropped.
func Build(records []Record) (*Catalog, error) {
	groups := make(map[string][]Chapter)
	var names []string
	seenRefs := make(map[string]string)

	for _, r := range records {
		if r.PartName == IntroductionPart {
			continue
		}
		if prev, ok := seenRefs[r.Ref]; ok {
			return nil, fmt.Errorf("%w: %s (parts %q and %q)", ErrDuplicateRef, r.Ref, prev, r.PartName)
		}
		seenRefs[r.Ref] = r.PartName

		if _, ok := groups[r.PartName]; !ok {
			names = append(names, r.PartName)
		}
		for _, ch := range groups[r.PartName] {
			if ch.Number == r.Number {
				return nil, fmt.Errorf("%w: part %q chapter %d", ErrDuplicateChapter, r.PartName, r.Number)
			}
		}
		groups[r.PartName] = append(groups[r.PartName], Chapter{
			Ref:        r.Ref,
			Title:      r.Title,
			PartName:   r.PartName,
			Number:     r.Number,
			Summary:    r.Summary,
			HasSummary: r.HasSummary,
		})
	}

	slices.SortStableFunc(names, compareParts)

	cat := &Catalog{Parts: make([]Part, 0, len(names))}
	for _, name := range names {
		chapters := groups[name]
		slices.SortStableFunc(chapters, func(a, b Chapter) int {
			return cmp.Compare(a.Number, b.Number)
		})
		cat.Parts = append(cat.Parts, Part{Name: name, Chapters: chapters})
	}
	cat.reindex()
	return cat, nil
}

func (c *Catalog) reindex() {
	c.order = c.order[:0]
	c.index = make(map[string]int)
	for _, p := range c.Parts {
		for _, ch := range p.Chapters {
			c.index[ch.Ref] = len(c.order)
			c.order = append(c.order, ch)
		}
	}
}

// Flatten returns the linear reading order: parts in catalog order, chapters
// in number order within each part.
func (c *Catalog) Flatten() []Chapter {
	return slices.Clone(c.order)
}

// Len returns the number of chapters in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Position returns the index of ref in the reading order.
func (c *Catalog) Position(ref string) (int, bool) {
	i, ok := c.index[ref]
	return i, ok
}

// At returns the chapter at position i of the reading order.
func (c *Catalog) At(i int) (Chapter, bool) {
	if i < 0 || i >= len(c.order) {
		return Chapter{}, false
	}
	return c.order[i], true
}

// Find looks up a chapter by its reference.
func (c *Catalog) Find(ref string) (Chapter, bool) {
	i, ok := c.index[ref]
	if !ok {
		return Chapter{}, false
	}
	return c.order[i], true
}

// Part returns the part with the given name.
func (c *Catalog) Part(name string) (Part, bool) {
	for _, p := range c.Parts {
		if p.Name == name {
			return p, true
		}
	}
	return Part{}, false
}

// Refs returns every chapter reference in reading order.
func (c *Catalog) Refs() []string {
	refs := make([]string, len(c.order))
	for i, ch := range c.order {
		refs[i] = ch.Ref
	}
	return refs
}
