package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JohnDeved/bookbar/internal/cache"
	"github.com/JohnDeved/bookbar/internal/logger"
	"github.com/JohnDeved/bookbar/internal/nav"
	"github.com/JohnDeved/bookbar/internal/page"
	"github.com/JohnDeved/bookbar/internal/prefs"
	"github.com/JohnDeved/bookbar/internal/session"
	"github.com/JohnDeved/bookbar/internal/util"
)

// Focus identifies the pane receiving keys.
type Focus int

const (
	FocusReader Focus = iota
	FocusContents
	FocusSearch
)

const sidebarMaxWidth = 36

// Messages
type chapterMsg struct {
	ref string
	doc *page.Document
	err error
}

type cacheUpdateMsg struct{ stats cache.Stats }

type prefetchDoneMsg struct{}

type statusClearMsg struct{ id int }

// Model is the main Bubble Tea model.
type Model struct {
	sess    *session.Session
	db      *prefs.DB
	logger  *slog.Logger
	bookURL string

	prefs  prefs.Preferences
	theme  theme
	toc    tocModel
	search searchModel
	reader viewport.Model

	spinner    spinner.Model
	focus      Focus
	loading    string
	info       nav.Info
	navErr     error
	stats      cache.Stats
	prefetched bool

	width     int
	height    int
	showHelp  bool
	statusMsg string
	statusID  int
}

// NewModel creates the TUI model. db may be nil, in which case preference
// changes are not persisted.
func NewModel(s *session.Session, db *prefs.DB, p prefs.Preferences, log *slog.Logger, bookURL string) Model {
	if log == nil {
		log = logger.Discard()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	th := newTheme(p)
	m := Model{
		sess:    s,
		db:      db,
		logger:  log,
		bookURL: bookURL,
		prefs:   p,
		theme:   th,
		toc:     newTocModel(s.Catalog(), s.Result(), s.Current()),
		search:  newSearchModel(th),
		reader:  viewport.New(80, 20),
		spinner: sp,
		stats:   s.Cache().Stats(),
	}
	m.refreshNav()
	m.renderReader()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.renderReader()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case chapterMsg:
		return m.handleChapter(msg)

	case cacheUpdateMsg:
		m.stats = msg.stats
		if m.sess.Term() != "" {
			m.toc.setResult(m.sess.Refilter())
		}
		return m, nil

	case prefetchDoneMsg:
		m.prefetched = true
		m.stats = m.sess.Cache().Stats()
		return m, m.setStatus(fmt.Sprintf("Cached %d of %d chapters", m.stats.Entries, m.sess.Catalog().Len()))

	case statusClearMsg:
		if msg.id == m.statusID {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.focus == FocusSearch {
		return m.updateSearchInput(msg)
	}
	return m, nil
}

func (m *Model) layout() {
	bodyHeight := max(3, m.height-4)
	sw := m.sidebarWidth()
	m.toc.height = max(1, bodyHeight-1)
	m.reader.Width = max(20, m.width-sw-3)
	m.reader.Height = bodyHeight
}

func (m Model) sidebarWidth() int {
	return min(sidebarMaxWidth, max(16, m.width/3))
}

func (m *Model) refreshNav() {
	m.info, m.navErr = nav.Resolve(m.sess.Catalog(), m.sess.Current())
	if m.navErr != nil {
		m.logger.Warn("navigation unavailable", "ref", m.sess.Current(), "error", m.navErr)
	}
}

func (m *Model) renderReader() {
	m.reader.SetContent(renderChapter(m.theme, m.sess.Document(), m.info, m.reader.Width))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.focus == FocusSearch {
		switch key {
		case "esc":
			m.search.input.Blur()
			m.focus = FocusReader
			return m, nil
		case "enter":
			m.search.input.Blur()
			m.focus = FocusContents
			return m, nil
		}
		return m.updateSearchInput(msg)
	}

	if m.showHelp {
		switch key {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "/", "ctrl+f":
		m.focus = FocusSearch
		return m, m.search.input.Focus()
	case "tab", "shift+tab":
		if m.focus == FocusReader {
			m.focus = FocusContents
		} else {
			m.focus = FocusReader
		}
		return m, nil
	case "x":
		m.search.clear()
		m.toc.setResult(m.sess.Reset())
		m.renderReader()
		return m, m.setStatus("Search cleared")
	case "n", "right", "l":
		if !m.info.Next.Active {
			return m, m.setStatus(nav.NoNextChapterNotice)
		}
		return m.open(m.info.Next.Ref)
	case "p", "left", "h":
		if !m.info.Prev.Active {
			return m, m.setStatus("This is the first chapter")
		}
		return m.open(m.info.Prev.Ref)
	case "f":
		return m.togglePref(prefs.KeyFont)
	case "s":
		return m.togglePref(prefs.KeySize)
	case "t":
		return m.togglePref(prefs.KeyTheme)
	}

	if m.focus == FocusContents {
		switch key {
		case "up", "k":
			m.toc.moveUp()
		case "down", "j":
			m.toc.moveDown()
		case "pgup", "ctrl+u":
			m.toc.pageUp()
		case "pgdown", "ctrl+d":
			m.toc.pageDown()
		case "home", "g":
			m.toc.goHome()
		case "end", "G":
			m.toc.goEnd()
		case "enter":
			if sel := m.toc.selected(); sel != nil {
				return m.open(sel.Ref)
			}
		case "esc":
			m.focus = FocusReader
		}
		return m, nil
	}

	switch key {
	case "g", "home":
		m.reader.GotoTop()
		return m, nil
	case "G", "end":
		m.reader.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.reader, cmd = m.reader.Update(msg)
	return m, cmd
}

func (m Model) updateSearchInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	if m.search.changed() {
		res := m.sess.Query(m.search.input.Value())
		m.search.setResult(res)
		m.toc.setResult(res)
		m.renderReader()
	}
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.X < m.sidebarWidth() {
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.toc.moveUp()
		case tea.MouseButtonWheelDown:
			m.toc.moveDown()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.reader, cmd = m.reader.Update(msg)
	return m, cmd
}

func (m Model) open(ref string) (tea.Model, tea.Cmd) {
	if m.loading != "" {
		return m, nil
	}
	m.loading = ref
	return m, tea.Batch(m.spinner.Tick, m.loadChapter(ref))
}

func (m Model) handleChapter(msg chapterMsg) (tea.Model, tea.Cmd) {
	m.loading = ""
	if msg.err != nil {
		m.logger.Error("loading chapter failed", "ref", msg.ref, "error", msg.err)
		return m, m.setStatus(fmt.Sprintf("Error: %v", msg.err))
	}

	res := m.sess.Activate(msg.ref, msg.doc)
	m.search.setResult(res)
	m.toc.setResult(res)
	m.toc.setCurrent(msg.ref)
	m.refreshNav()
	m.renderReader()
	m.reader.GotoTop()

	if m.db != nil {
		if err := m.db.RememberBook(m.bookURL, msg.ref); err != nil {
			m.logger.Warn("saving reading position failed", "error", err)
		}
	}
	return m, nil
}

func (m Model) togglePref(key string) (tea.Model, tea.Cmd) {
	m.prefs = m.prefs.Next(key)
	m.theme = newTheme(m.prefs)
	m.search.input.PromptStyle = m.theme.searchPrompt
	m.renderReader()

	value, _ := m.prefs.Get(key)
	if m.db != nil {
		if _, err := m.db.Set(key, value); err != nil {
			m.logger.Warn("saving preference failed", "key", key, "error", err)
			return m, m.setStatus(fmt.Sprintf("Could not save %s: %v", key, err))
		}
	}
	return m, m.setStatus(fmt.Sprintf("%s: %s", strings.ToUpper(key[:1])+key[1:], value))
}

// Commands

func (m Model) loadChapter(ref string) tea.Cmd {
	s := m.sess
	return func() tea.Msg {
		doc, err := s.Fetch(context.Background(), ref)
		return chapterMsg{ref: ref, doc: doc, err: err}
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.theme.help.Render(strings.Repeat("─", m.width)))
	sb.WriteString("\n")

	bodyHeight := m.reader.Height
	if m.showHelp {
		sb.WriteString(lipgloss.NewStyle().Height(bodyHeight).Render(m.helpView(bodyHeight)))
	} else {
		sw := m.sidebarWidth()
		sidebar := m.theme.sidebar.
			Width(sw).
			Height(bodyHeight).
			Render(m.toc.view(m.theme, sw, m.focus == FocusContents))
		reader := lipgloss.NewStyle().PaddingLeft(1).Render(m.reader.View())
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, sidebar, reader))
	}
	sb.WriteString("\n")

	sb.WriteString(m.search.view(m.theme, m.width, m.sess.Result()))
	sb.WriteString("\n")

	statusLine := m.statusMsg
	if statusLine == "" {
		statusLine = m.defaultStatus()
	}
	sb.WriteString(m.theme.statusBar.Width(m.width).Render(statusLine))
	return sb.String()
}

func (m Model) headerView() string {
	title := m.theme.title.UnsetMarginBottom().Render(" bookbar ")

	var parts []string
	if m.navErr == nil && m.info.Total > 0 {
		parts = append(parts, fmt.Sprintf("Chapter %d/%d", m.info.Position+1, m.info.Total))
		if m.info.Current.PartName != "" {
			parts = append(parts, m.info.Current.PartName)
		}
	} else if errors.Is(m.navErr, nav.ErrUnknownChapter) {
		parts = append(parts, "not in contents")
	}

	stats := m.stats
	cached := fmt.Sprintf("cached %d/%d (%s)", stats.Entries, m.sess.Catalog().Len(), util.FormatBytes(stats.Bytes))
	if stats.Failed > 0 {
		cached += fmt.Sprintf(", %d failed", stats.Failed)
	}
	if stats.Pending() > 0 && !m.prefetched {
		cached = m.spinner.View() + " " + cached
	}
	if m.loading != "" {
		cached = m.spinner.View() + " loading " + util.ShortRef(m.loading, 30) + "  " + cached
	}

	left := title + " " + m.theme.help.Render(strings.Join(parts, " · "))
	right := m.theme.badge.Render(cached)
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) defaultStatus() string {
	switch m.focus {
	case FocusSearch:
		return "type to search  Enter:browse matches  Esc:back to reader"
	case FocusContents:
		return "j/k:select  Enter:open  Tab:reader  /:search  x:clear search  ?:help"
	}
	return "j/k:scroll  n/p:next/prev  Tab:contents  /:search  f/s/t:font/size/theme  ?:help"
}

func (m Model) helpView(maxLines int) string {
	lines := []string{
		"  Keyboard Shortcuts",
		"  ──────────────────",
		"",
		"  Global:",
		"    Tab           Switch between reader and contents",
		"    / or Ctrl+F   Search the book",
		"    x             Clear search",
		"    n / p         Next / previous chapter",
		"    f             Toggle font (Sans/Serif)",
		"    s             Toggle size (Normal/Big)",
		"    t             Cycle theme (Light/Medium/Dark)",
		"    ?             Toggle help",
		"    q / Ctrl+C    Quit",
		"",
		"  Reader:",
		"    j/k / Up/Down Scroll",
		"    PgUp / PgDn   Page up/down",
		"    g / G         Top/bottom",
		"",
		"  Contents:",
		"    j/k           Select chapter",
		"    Enter         Open chapter",
		"",
		"  Search:",
		"    type          Highlight and filter as you type",
		"    Enter         Browse matching chapters",
		"    Esc           Back to reader (search stays active)",
		"",
		"  Press ? or Esc to close help.",
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return m.theme.help.Render(strings.Join(lines, "\n"))
}

func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusID++
	id := m.statusID
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return statusClearMsg{id: id}
	})
}

// Run starts the reader and prefetches every chapter in the background. The
// caller closes the session.
func Run(s *session.Session, db *prefs.DB, p prefs.Preferences, log *slog.Logger, bookURL string) error {
	m := NewModel(s, db, p, log, bookURL)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Wire up cache notifications.
	s.Cache().SetOnChange(func(st cache.Stats) {
		prog.Send(cacheUpdateMsg{stats: st})
	})
	done := s.StartPrefetch()
	go func() {
		<-done
		prog.Send(prefetchDoneMsg{})
	}()

	_, err := prog.Run()
	return err
}
