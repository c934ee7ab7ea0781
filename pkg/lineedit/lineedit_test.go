package lineedit

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider completes command names against a tiny fixed table, using
// the same span semantics the completion engine produces.
type mockProvider struct{}

func (mockProvider) Candidates(line string, pos int) []Candidate {
	word := line[:pos]
	if strings.HasPrefix(word, "GE") {
		return []Candidate{
			{Value: "GET", Start: 0, End: pos, Description: "Get the value of a key"},
			{Value: "GETSET", Start: 0, End: pos},
		}
	}
	if strings.HasPrefix(word, "IN") {
		return []Candidate{
			{Value: "INFO", Start: 0, End: pos},
		}
	}
	return nil
}

func press(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func typeRunes(t *testing.T, m model, s string) model {
	t.Helper()
	for _, r := range s {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestTabCompletionCycle(t *testing.T) {
	m := newModel(Options{Prompt: "> ", Provider: mockProvider{}})
	m = typeRunes(t, m, "GE")

	tab := tea.KeyMsg{Type: tea.KeyTab}

	// First Tab extends to the common prefix of GET and GETSET.
	m = press(t, m, tab)
	assert.Equal(t, "GET", m.input.Value())
	assert.Equal(t, 3, m.input.Position())
	assert.True(t, m.completion.active)

	// Cycling replaces the extension against the original line.
	m = press(t, m, tab)
	assert.Equal(t, "GET", m.input.Value())

	m = press(t, m, tab)
	assert.Equal(t, "GETSET", m.input.Value())
	assert.Equal(t, 6, m.input.Position())

	// Wraps back to the first candidate.
	m = press(t, m, tab)
	assert.Equal(t, "GET", m.input.Value())
}

func TestShiftTabCyclesBackward(t *testing.T) {
	m := newModel(Options{Prompt: "> ", Provider: mockProvider{}})
	m = typeRunes(t, m, "GE")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "GETSET", m.input.Value())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "GET", m.input.Value())
}

func TestSingleCandidateAppliesImmediately(t *testing.T) {
	m := newModel(Options{Prompt: "> ", Provider: mockProvider{}})
	m = typeRunes(t, m, "IN")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "INFO", m.input.Value())
	assert.Equal(t, 4, m.input.Position())
}

func TestEscapeRestoresOriginalLine(t *testing.T) {
	m := newModel(Options{Prompt: "> ", Provider: mockProvider{}})
	m = typeRunes(t, m, "GE")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, "GET", m.input.Value())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "GE", m.input.Value())
	assert.Equal(t, 2, m.input.Position())
	assert.False(t, m.completion.active)
}

func TestEnterAcceptsSelectedCandidateBeforeSubmitting(t *testing.T) {
	m := newModel(Options{Prompt: "> ", Provider: mockProvider{}})
	m = typeRunes(t, m, "GE")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	// First Enter closes the candidate box without submitting.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, editing, m.state)
	assert.Equal(t, "GET", m.input.Value())
	assert.False(t, m.completion.active)

	// Second Enter submits.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, submitted, m.state)
	assert.Equal(t, "GET", m.result)
}

func TestTypingEndsCompletionSession(t *testing.T) {
	m := newModel(Options{Prompt: "> ", Provider: mockProvider{}})
	m = typeRunes(t, m, "GE")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, m.completion.active)

	m = typeRunes(t, m, "X")
	assert.False(t, m.completion.active)
	assert.Equal(t, "GETX", m.input.Value())
}

func TestCtrlCInterrupts(t *testing.T) {
	m := newModel(Options{Prompt: "> "})
	m = typeRunes(t, m, "GET foo")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, interrupted, m.state)
	assert.Equal(t, "GET foo", m.result)
}

func TestCtrlDClosesOnlyOnEmptyLine(t *testing.T) {
	m := newModel(Options{Prompt: "> "})
	m = typeRunes(t, m, "GET foo")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Equal(t, editing, m.state)

	m.input.SetValue("")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Equal(t, closed, m.state)
}

func TestHistoryNavigation(t *testing.T) {
	hist := []HistoryEntry{
		{Command: "SET k v"},
		{Command: "GET k"},
	}
	m := newModel(Options{Prompt: "> ", History: hist})
	m = typeRunes(t, m, "DEL")

	up := tea.KeyMsg{Type: tea.KeyUp}
	down := tea.KeyMsg{Type: tea.KeyDown}

	m = press(t, m, up)
	assert.Equal(t, "SET k v", m.input.Value())

	m = press(t, m, up)
	assert.Equal(t, "GET k", m.input.Value())

	// Pressing Up at the oldest entry stays put.
	m = press(t, m, up)
	assert.Equal(t, "GET k", m.input.Value())

	m = press(t, m, down)
	assert.Equal(t, "SET k v", m.input.Value())

	// Down past the newest entry restores the draft.
	m = press(t, m, down)
	assert.Equal(t, "DEL", m.input.Value())
}

func TestReverseSearchFlow(t *testing.T) {
	hist := []HistoryEntry{
		{Command: "GET user:1", When: time.Now()},
		{Command: "SET user:1 alice", When: time.Now().Add(-time.Minute)},
		{Command: "KEYS *", When: time.Now().Add(-time.Hour)},
	}
	m := newModel(Options{Prompt: "> ", History: hist})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.True(t, m.search.active)

	m = typeRunes(t, m, "user")
	entry, ok := m.search.selectedEntry(m.history)
	require.True(t, ok)
	assert.Contains(t, entry.Command, "user:1")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.search.active)
	assert.Contains(t, m.input.Value(), "user:1")
}

func TestReverseSearchEscapeKeepsLine(t *testing.T) {
	hist := []HistoryEntry{{Command: "GET k"}}
	m := newModel(Options{Prompt: "> ", History: hist})
	m = typeRunes(t, m, "SET")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = typeRunes(t, m, "GE")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.search.active)
	assert.Equal(t, "SET", m.input.Value())
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		want       string
	}{
		{"empty", nil, ""},
		{"single", []Candidate{{Value: "GET"}}, "GET"},
		{"shared", []Candidate{{Value: "GET"}, {Value: "GETSET"}, {Value: "GETDEL"}}, "GET"},
		{"disjoint", []Candidate{{Value: "GET"}, {Value: "SET"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commonPrefix(tt.candidates))
		})
	}
}
