package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/JohnDeved/bookbar/internal/prefs"
)

// palette is one reading theme.
type palette struct {
	background      lipgloss.Color
	text            lipgloss.Color
	btnBackground   lipgloss.Color
	btnActive       lipgloss.Color
	currentLink     lipgloss.Color
	nextBackground  lipgloss.Color
	nextBackground2 lipgloss.Color
	nextButtonBg    lipgloss.Color
	nextButtonColor lipgloss.Color
	searchBorder    lipgloss.Color
	link            lipgloss.Color
}

var palettes = map[string]palette{
	prefs.ThemeLight: {
		background:      lipgloss.Color("#fffcf4"),
		text:            lipgloss.Color("#252733"),
		btnBackground:   lipgloss.Color("#fef7e7"),
		btnActive:       lipgloss.Color("#fff1cc"),
		currentLink:     lipgloss.Color("#808eff"),
		nextBackground:  lipgloss.Color("#ffde9f"),
		nextBackground2: lipgloss.Color("#fef7e7"),
		nextButtonBg:    lipgloss.Color("#252733"),
		nextButtonColor: lipgloss.Color("#fffcf4"),
		searchBorder:    lipgloss.Color("#beb9ad"),
		link:            lipgloss.Color("#001cff"),
	},
	prefs.ThemeMedium: {
		background:      lipgloss.Color("#F0F3FF"),
		text:            lipgloss.Color("#252733"),
		btnBackground:   lipgloss.Color("#E6EAFF"),
		btnActive:       lipgloss.Color("#D6DDFF"),
		currentLink:     lipgloss.Color("#808eff"),
		nextBackground:  lipgloss.Color("#BAC2FF"),
		nextBackground2: lipgloss.Color("#F0F3FF"),
		nextButtonBg:    lipgloss.Color("#252733"),
		nextButtonColor: lipgloss.Color("#fffcf4"),
		searchBorder:    lipgloss.Color("#beb9ad"),
		link:            lipgloss.Color("#001cff"),
	},
	prefs.ThemeDark: {
		background:      lipgloss.Color("#252733"),
		text:            lipgloss.Color("#EEEEEE"),
		btnBackground:   lipgloss.Color("#383A4D"),
		btnActive:       lipgloss.Color("#4C5066"),
		currentLink:     lipgloss.Color("#FFDE9F"),
		nextBackground:  lipgloss.Color("#363848"),
		nextBackground2: lipgloss.Color("#696B7E"),
		nextButtonBg:    lipgloss.Color("#BAC2FF"),
		nextButtonColor: lipgloss.Color("#252733"),
		searchBorder:    lipgloss.Color("#646672"),
		link:            lipgloss.Color("#BAC2FF"),
	},
}

// theme holds every style the reader renders with. It is rebuilt whenever a
// preference changes.
type theme struct {
	prefs prefs.Preferences

	base         lipgloss.Style
	title        lipgloss.Style
	heading      lipgloss.Style
	paragraph    lipgloss.Style
	listItem     lipgloss.Style
	mark         lipgloss.Style
	muted        lipgloss.Style
	errorText    lipgloss.Style
	partName     lipgloss.Style
	chapter      lipgloss.Style
	current      lipgloss.Style
	selected     lipgloss.Style
	nextPanel    lipgloss.Style
	nextButton   lipgloss.Style
	nextHeading  lipgloss.Style
	prevButton   lipgloss.Style
	searchPrompt lipgloss.Style
	searchBox    lipgloss.Style
	statusBar    lipgloss.Style
	badge        lipgloss.Style
	sidebar      lipgloss.Style
	help         lipgloss.Style
}

func newTheme(p prefs.Preferences) theme {
	pal, ok := palettes[p.Theme]
	if !ok {
		pal = palettes[prefs.ThemeLight]
	}
	serif := p.Font == prefs.FontSerif

	base := lipgloss.NewStyle().
		Foreground(pal.text).
		Background(pal.background)

	t := theme{prefs: p, base: base}

	t.title = base.
		Bold(true).
		Italic(serif).
		Foreground(pal.text).
		MarginBottom(1)

	t.heading = base.
		Bold(true).
		Italic(serif)

	t.paragraph = base
	t.listItem = base.PaddingLeft(2)

	t.mark = lipgloss.NewStyle().
		Background(pal.nextBackground).
		Foreground(lipgloss.Color("#252733")).
		Bold(true)

	t.muted = base.Foreground(pal.searchBorder)

	t.errorText = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	t.partName = base.
		Bold(true).
		Italic(serif).
		Foreground(pal.text).
		PaddingLeft(1)

	t.chapter = base.
		PaddingLeft(2).
		PaddingRight(1)

	t.current = base.
		Foreground(pal.currentLink).
		Bold(true).
		PaddingLeft(2).
		PaddingRight(1)

	t.selected = lipgloss.NewStyle().
		Background(pal.btnActive).
		Foreground(lipgloss.Color("#252733")).
		Bold(true).
		PaddingLeft(2).
		PaddingRight(1)

	t.nextPanel = lipgloss.NewStyle().
		Background(pal.nextBackground).
		Foreground(pal.text).
		Padding(1, 2).
		MarginTop(1)

	t.nextButton = lipgloss.NewStyle().
		Background(pal.nextButtonBg).
		Foreground(pal.nextButtonColor).
		Bold(true).
		PaddingLeft(1).
		PaddingRight(1)

	t.nextHeading = lipgloss.NewStyle().
		Background(pal.nextBackground).
		Foreground(pal.text).
		Bold(true).
		Italic(serif)

	t.prevButton = lipgloss.NewStyle().
		Background(pal.btnBackground).
		Foreground(pal.text).
		PaddingLeft(1).
		PaddingRight(1)

	t.searchPrompt = lipgloss.NewStyle().
		Foreground(pal.link).
		Bold(true)

	t.searchBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(pal.searchBorder).
		PaddingLeft(1)

	t.statusBar = lipgloss.NewStyle().
		Background(pal.btnBackground).
		Foreground(pal.text).
		PaddingLeft(1).
		PaddingRight(1)

	t.badge = lipgloss.NewStyle().
		Foreground(pal.link)

	t.sidebar = lipgloss.NewStyle().
		Background(pal.nextBackground2).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(pal.searchBorder)

	t.help = lipgloss.NewStyle().
		Foreground(pal.searchBorder)

	return t
}

// paragraphGap is the number of blank lines between body blocks.
func (t theme) paragraphGap() int {
	if t.prefs.Size == prefs.SizeBig {
		return 2
	}
	return 1
}
