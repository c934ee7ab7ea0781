package lineedit

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
)

// HistoryEntry is one prior command shown in reverse search, newest first.
type HistoryEntry struct {
	Command string
	When    time.Time
}

// searchState tracks the Ctrl+R reverse history search overlay.
type searchState struct {
	active   bool
	query    string
	matches  []int // indices into the editor's history slice
	selected int
}

func (s *searchState) reset() {
	*s = searchState{}
}

type historySource []HistoryEntry

func (h historySource) String(i int) string { return h[i].Command }
func (h historySource) Len() int            { return len(h) }

// refresh recomputes matches for the current query. Duplicate commands
// keep only their most recent occurrence. An empty query lists everything.
func (s *searchState) refresh(history []HistoryEntry) {
	seen := make(map[string]bool, len(history))
	var candidates []int
	for i, entry := range history {
		if seen[entry.Command] {
			continue
		}
		seen[entry.Command] = true
		candidates = append(candidates, i)
	}

	if s.query == "" {
		s.matches = candidates
		s.selected = 0
		return
	}

	subset := make(historySource, len(candidates))
	for i, idx := range candidates {
		subset[i] = history[idx]
	}

	results := fuzzy.FindFrom(s.query, subset)
	s.matches = make([]int, len(results))
	for i, r := range results {
		s.matches[i] = candidates[r.Index]
	}
	s.selected = 0
}

func (s *searchState) up() {
	if s.selected > 0 {
		s.selected--
	}
}

func (s *searchState) down() {
	if s.selected < len(s.matches)-1 {
		s.selected++
	}
}

func (s *searchState) selectedEntry(history []HistoryEntry) (HistoryEntry, bool) {
	if s.selected < 0 || s.selected >= len(s.matches) {
		return HistoryEntry{}, false
	}
	return history[s.matches[s.selected]], true
}

var (
	searchPromptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	searchSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	searchNormalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	searchTimeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// view renders the search prompt line plus a scrolling match list.
func (s *searchState) view(history []HistoryEntry, height, width int) string {
	prefix := "(reverse-i-search)"
	matchText := ""
	if entry, ok := s.selectedEntry(history); ok {
		matchText = entry.Command
	} else if s.query != "" {
		prefix = "(failed reverse-i-search)"
	}

	var b strings.Builder
	b.WriteString(searchPromptStyle.Render(fmt.Sprintf("%s`%s': %s", prefix, s.query, matchText)))

	if len(s.matches) == 0 {
		return b.String()
	}

	if height <= 0 {
		height = 8
	}
	start := 0
	if s.selected >= height {
		start = s.selected - height + 1
	}
	end := start + height
	if end > len(s.matches) {
		end = len(s.matches)
	}

	const timeWidth = 15
	cmdWidth := width - timeWidth - 6
	if cmdWidth < 10 {
		cmdWidth = 10
	}

	for i := start; i < end; i++ {
		entry := history[s.matches[i]]

		marker := "  "
		style := searchNormalStyle
		if i == s.selected {
			marker = "> "
			style = searchSelectedStyle
		}

		cmd := entry.Command
		if runewidth.StringWidth(cmd) > cmdWidth {
			cmd = runewidth.Truncate(cmd, cmdWidth, "…")
		} else {
			cmd = runewidth.FillRight(cmd, cmdWidth)
		}

		when := humanize.Time(entry.When)
		if len(when) > timeWidth {
			when = when[:timeWidth]
		}

		b.WriteString("\n")
		b.WriteString(style.Render(marker + cmd))
		b.WriteString("  ")
		b.WriteString(searchTimeStyle.Render(when))
	}

	return b.String()
}
