package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/JohnDeved/bookbar/internal/search"
)

// searchModel manages the search input line.
type searchModel struct {
	input   textinput.Model
	applied string
	matches int
}

func newSearchModel(th theme) searchModel {
	ti := textinput.New()
	ti.Placeholder = "Search the book..."
	ti.CharLimit = 256
	ti.Width = 40
	ti.Prompt = "Search: "
	ti.PromptStyle = th.searchPrompt
	return searchModel{input: ti}
}

// changed reports whether the input differs from the last applied query.
func (s *searchModel) changed() bool {
	return s.input.Value() != s.applied
}

func (s *searchModel) setResult(res search.Result) {
	s.applied = s.input.Value()
	s.matches = res.Matches
}

func (s *searchModel) clear() {
	s.input.SetValue("")
	s.applied = ""
	s.matches = 0
}

func (s *searchModel) view(th theme, width int, res search.Result) string {
	s.input.Width = max(10, width-30)
	line := s.input.View()

	if strings.TrimSpace(s.input.Value()) != "" {
		var info string
		switch {
		case res.NoResults:
			info = th.errorText.Render("  no results")
		case s.matches == 1:
			info = th.badge.Render("  1 match on this page")
		default:
			info = th.badge.Render(fmt.Sprintf("  %d matches on this page", s.matches))
		}
		line += info
	}
	return padToWidth(line, width)
}
