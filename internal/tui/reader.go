package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JohnDeved/bookbar/internal/nav"
	"github.com/JohnDeved/bookbar/internal/page"
)

// renderChapter lays out the live chapter page for a reader of the given
// width: optional part heading, title, body blocks and the navigation panel.
func renderChapter(th theme, doc *page.Document, info nav.Info, width int) string {
	width = max(20, width)
	wrap := lipgloss.NewStyle().Width(width)
	gap := strings.Repeat("\n", th.paragraphGap())

	var sections []string

	if info.TitleVisible && info.Current.PartName != "" {
		sections = append(sections, wrap.Render(th.muted.Render(strings.ToUpper(info.Current.PartName))))
	}

	title := doc.TitleBlocks()
	if len(title) == 0 && info.Current.Title != "" {
		sections = append(sections, wrap.Render(th.title.Render(info.Current.Title)))
	}
	for _, b := range title {
		sections = append(sections, wrap.Render(renderSpans(th, th.title, b.Spans)))
	}

	body := doc.BodyBlocks()
	if len(body) == 0 {
		sections = append(sections, th.muted.Render("(this chapter has no text)"))
	}
	for _, b := range body {
		style := th.paragraph
		prefix := ""
		switch b.Kind {
		case page.BlockHeading:
			style = th.heading
		case page.BlockListItem:
			prefix = th.paragraph.Render("• ")
		}
		sections = append(sections, wrap.Render(prefix+renderSpans(th, style, b.Spans)))
	}

	sections = append(sections, renderNav(th, info, width))
	return strings.Join(sections, "\n"+gap)
}

func renderSpans(th theme, style lipgloss.Style, spans []page.Span) string {
	var sb strings.Builder
	for _, s := range spans {
		if s.Marked {
			sb.WriteString(th.mark.Render(s.Text))
			continue
		}
		sb.WriteString(style.Render(s.Text))
	}
	return sb.String()
}

// renderNav draws the previous button and the next-chapter panel.
func renderNav(th theme, info nav.Info, width int) string {
	var lines []string

	if info.Prev.Active {
		lines = append(lines, th.prevButton.Render("← Previous (p)"))
	}

	inner := max(10, width-th.nextPanel.GetHorizontalFrameSize())
	var panel []string
	if !info.Next.Active {
		panel = append(panel, th.nextHeading.Render(nav.NoNextChapterNotice))
	} else {
		panel = append(panel, th.nextButton.Render(info.Next.Label+" → (n)"))
		panel = append(panel, "")
		panel = append(panel, th.nextHeading.Width(inner).Render(info.Next.Heading))
		if info.Next.Summary.Visible {
			panel = append(panel, "")
			panel = append(panel, lipgloss.NewStyle().Width(inner).Render(info.Next.Summary.Text))
		}
	}
	lines = append(lines, th.nextPanel.Width(width).Render(strings.Join(panel, "\n")))
	return strings.Join(lines, "\n")
}
