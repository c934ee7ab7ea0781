package lineedit

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

var (
	boxSelectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	boxNormalStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	boxDescriptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// candidateBox renders the cycling candidate list shown under the prompt.
// Candidates are laid out one per row with aligned descriptions; rows
// scroll in pages when the list is taller than height.
func candidateBox(cs *completionState, height, width int) string {
	if !cs.showBox() {
		return ""
	}
	if height <= 0 {
		height = 8
	}

	maxValueWidth := 0
	for _, c := range cs.candidates {
		if w := runewidth.StringWidth(c.Value); w > maxValueWidth {
			maxValueWidth = w
		}
	}

	selected := cs.selected
	if selected < 0 {
		selected = 0
	}
	page := selected / height
	start := page * height
	end := start + height
	if end > len(cs.candidates) {
		end = len(cs.candidates)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		c := cs.candidates[i]

		marker := "  "
		style := boxNormalStyle
		if i == cs.selected {
			marker = "> "
			style = boxSelectedStyle
		}

		line := marker + runewidth.FillRight(c.Value, maxValueWidth)
		row := style.Render(line)
		if c.Description != "" {
			desc := c.Description
			avail := width - runewidth.StringWidth(line) - 2
			if avail > 4 && runewidth.StringWidth(desc) > avail {
				desc = truncate.StringWithTail(desc, uint(avail), "…")
			}
			row += "  " + boxDescriptionStyle.Render(desc)
		}

		if i > start {
			b.WriteString("\n")
		}
		b.WriteString(row)
	}

	return b.String()
}
