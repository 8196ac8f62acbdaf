package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JohnDeved/bookbar/internal/catalog"
	"github.com/JohnDeved/bookbar/internal/search"
)

// tocRow is one line of the contents sidebar: a part heading or a chapter.
type tocRow struct {
	part    string
	chapter catalog.Chapter
	isPart  bool
}

// tocModel manages the table of contents sidebar.
type tocModel struct {
	cat       *catalog.Catalog
	result    search.Result
	current   string
	rows      []tocRow
	chapters  []int // indices into rows of selectable chapter rows
	cursor    int   // index into chapters
	offset    int   // first visible row
	height    int
	noResults bool
}

func newTocModel(cat *catalog.Catalog, res search.Result, current string) tocModel {
	t := tocModel{cat: cat, current: current, height: 20}
	t.setResult(res)
	t.selectRef(current)
	return t
}

// setResult rebuilds the visible rows from a search result, keeping the
// cursor on the same chapter when it is still visible.
func (t *tocModel) setResult(res search.Result) {
	prev := ""
	if sel := t.selected(); sel != nil {
		prev = sel.Ref
	}

	t.result = res
	t.noResults = res.NoResults
	t.rows = t.rows[:0]
	t.chapters = t.chapters[:0]
	for _, p := range t.cat.Parts {
		if !res.PartVisible(p.Name) {
			continue
		}
		t.rows = append(t.rows, tocRow{part: p.Name, isPart: true})
		for _, ch := range p.Chapters {
			if !res.ChapterVisible(ch.Ref) {
				continue
			}
			t.chapters = append(t.chapters, len(t.rows))
			t.rows = append(t.rows, tocRow{part: p.Name, chapter: ch})
		}
	}

	t.cursor = 0
	t.offset = 0
	if prev != "" {
		t.selectRef(prev)
	}
}

func (t *tocModel) setCurrent(ref string) {
	t.current = ref
	t.selectRef(ref)
}

func (t *tocModel) selectRef(ref string) {
	for i, row := range t.chapters {
		if t.rows[row].chapter.Ref == ref {
			t.cursor = i
			t.normalizeViewport()
			return
		}
	}
}

func (t *tocModel) selected() *catalog.Chapter {
	if t.cursor >= 0 && t.cursor < len(t.chapters) {
		return &t.rows[t.chapters[t.cursor]].chapter
	}
	return nil
}

func (t *tocModel) normalizeViewport() {
	if len(t.chapters) == 0 {
		t.cursor = 0
		t.offset = 0
		return
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	if t.cursor >= len(t.chapters) {
		t.cursor = len(t.chapters) - 1
	}
	row := t.chapters[t.cursor]
	// Keep the part heading of the first chapter in view.
	if t.cursor == 0 {
		row = 0
	}
	if row < t.offset {
		t.offset = row
	}
	if t.height > 0 && t.chapters[t.cursor] >= t.offset+t.height {
		t.offset = t.chapters[t.cursor] - t.height + 1
	}
	maxOffset := max(0, len(t.rows)-t.height)
	if t.offset > maxOffset {
		t.offset = maxOffset
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

func (t *tocModel) moveUp() {
	if t.cursor > 0 {
		t.cursor--
	}
	t.normalizeViewport()
}

func (t *tocModel) moveDown() {
	if t.cursor < len(t.chapters)-1 {
		t.cursor++
	}
	t.normalizeViewport()
}

func (t *tocModel) pageUp() {
	t.cursor -= max(1, t.height/2)
	t.normalizeViewport()
}

func (t *tocModel) pageDown() {
	t.cursor += max(1, t.height/2)
	t.normalizeViewport()
}

func (t *tocModel) goHome() {
	t.cursor = 0
	t.normalizeViewport()
}

func (t *tocModel) goEnd() {
	t.cursor = len(t.chapters) - 1
	t.normalizeViewport()
}

func (t *tocModel) view(th theme, width int, focused bool) string {
	var sb strings.Builder
	rowWidth := max(12, width-th.chapter.GetHorizontalFrameSize())

	if t.noResults {
		sb.WriteString(th.muted.Render(padToWidth("  No results", width)))
		sb.WriteString("\n")
		return sb.String()
	}

	t.normalizeViewport()
	end := min(len(t.rows), t.offset+t.height)
	sel := -1
	if t.cursor < len(t.chapters) {
		sel = t.chapters[t.cursor]
	}

	for i := t.offset; i < end; i++ {
		row := t.rows[i]
		if row.isPart {
			name := truncateText(row.part, width-th.partName.GetHorizontalFrameSize())
			sb.WriteString(th.partName.Render(padToWidth(name, width-th.partName.GetHorizontalFrameSize())))
			sb.WriteString("\n")
			continue
		}

		label := fmt.Sprintf("%d. %s", row.chapter.Number, chapterLabel(row.chapter))
		label = padToWidth(truncateText(label, rowWidth), rowWidth)
		switch {
		case i == sel && focused:
			sb.WriteString(th.selected.Render(label))
		case row.chapter.Ref == t.current:
			sb.WriteString(th.current.Render(label))
		default:
			sb.WriteString(th.chapter.Render(label))
		}
		sb.WriteString("\n")
	}

	if len(t.rows) > t.height && len(t.chapters) > 0 {
		sb.WriteString(th.muted.Render(fmt.Sprintf("  %d/%d", t.cursor+1, len(t.chapters))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func chapterLabel(ch catalog.Chapter) string {
	if ch.Title != "" {
		return ch.Title
	}
	return ch.Ref
}

func truncateText(s string, maxWidth int) string {
	if maxWidth < 4 {
		return s
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	r := []rune(s)
	if len(r) <= maxWidth {
		return s
	}
	return string(r[:maxWidth-3]) + "..."
}

func padToWidth(s string, width int) string {
	pad := width - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}
