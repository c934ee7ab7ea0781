// Package lineedit implements the interactive prompt: a single-line
// editor with Tab completion driven by a CompletionProvider, arrow-key
// history navigation, and Ctrl+R fuzzy history search.
package lineedit

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned when the user presses Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

// Options configures a single ReadLine call.
type Options struct {
	Prompt   string
	Provider CompletionProvider
	// History holds prior commands, newest first. Used by both arrow-key
	// navigation and Ctrl+R search.
	History []HistoryEntry
	// BoxHeight caps the candidate and search list height. Zero means a
	// small default.
	BoxHeight int
}

type editorState int

const (
	editing editorState = iota
	submitted
	interrupted
	closed
)

type model struct {
	input   textinput.Model
	opts    Options
	history []HistoryEntry

	completion completionState
	search     searchState

	// history navigation: -1 means editing the current draft
	histIdx int
	draft   string

	width  int
	state  editorState
	result string
}

func newModel(opts Options) model {
	ti := textinput.New()
	ti.Prompt = opts.Prompt
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Focus()

	m := model{
		input:   ti,
		opts:    opts,
		history: opts.History,
		histIdx: -1,
		width:   80,
	}
	m.completion.reset()
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(m.opts.Prompt) - 1
		return m, nil

	case tea.KeyMsg:
		if m.search.active {
			return m.updateSearch(msg)
		}
		return m.updateEditing(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.handleTab()
		return m, nil

	case "shift+tab":
		if c, ok := m.completion.prev(); ok {
			m.applyCandidate(c)
		}
		return m, nil

	case "esc", "escape":
		if m.completion.active {
			m.input.SetValue(m.completion.origLine)
			m.input.SetCursor(m.completion.origCursor)
			m.completion.reset()
		}
		return m, nil

	case "enter":
		if _, ok := m.completion.current(); ok && m.completion.showBox() {
			m.completion.reset()
			return m, nil
		}
		m.completion.reset()
		m.result = m.input.Value()
		m.state = submitted
		return m, tea.Quit

	case "ctrl+c":
		m.result = m.input.Value()
		m.state = interrupted
		return m, tea.Quit

	case "ctrl+d":
		if strings.TrimSpace(m.input.Value()) == "" {
			m.state = closed
			return m, tea.Quit
		}

	case "ctrl+r":
		m.completion.reset()
		m.search.active = true
		m.search.query = ""
		m.search.refresh(m.history)
		return m, nil

	case "up", "ctrl+p":
		m.completion.reset()
		m.historyPrev()
		return m, nil

	case "down", "ctrl+n":
		m.completion.reset()
		m.historyNext()
		return m, nil
	}

	// Any other key ends the completion session and goes to the editor.
	m.completion.reset()
	m.histIdx = -1

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) handleTab() {
	if m.completion.active {
		if c, ok := m.completion.next(); ok {
			m.applyCandidate(c)
		}
		return
	}
	if m.opts.Provider == nil {
		return
	}

	candidates := m.opts.Provider.Candidates(m.input.Value(), m.input.Position())
	if len(candidates) == 0 {
		return
	}

	m.completion.begin(m.input.Value(), m.input.Position(), candidates)
	if len(candidates) == 1 {
		m.completion.selected = 0
		m.applyCandidate(candidates[0])
		return
	}

	if common := commonPrefix(candidates); len(common) > m.completion.end-m.completion.start {
		m.applyCandidate(Candidate{Value: common, Start: m.completion.start, End: m.completion.end})
	}
}

// applyCandidate replaces the completion span with the candidate value and
// moves the cursor past it. The span end is updated so cycling to the next
// candidate replaces what this one inserted.
func (m *model) applyCandidate(c Candidate) {
	line := m.completion.origLine
	start := m.completion.start
	if start > len(line) {
		start = len(line)
	}
	end := m.completion.origEnd()
	if end > len(line) {
		end = len(line)
	}

	m.input.SetValue(line[:start] + c.Value + line[end:])
	m.input.SetCursor(start + len(c.Value))
	m.completion.end = start + len(c.Value)
}

func (m *model) historyPrev() {
	if len(m.history) == 0 || m.histIdx >= len(m.history)-1 {
		return
	}
	if m.histIdx == -1 {
		m.draft = m.input.Value()
	}
	m.histIdx++
	m.input.SetValue(m.history[m.histIdx].Command)
	m.input.CursorEnd()
}

func (m *model) historyNext() {
	if m.histIdx == -1 {
		return
	}
	m.histIdx--
	if m.histIdx == -1 {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.history[m.histIdx].Command)
	}
	m.input.CursorEnd()
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "left", "right":
		if entry, ok := m.search.selectedEntry(m.history); ok {
			m.input.SetValue(entry.Command)
			m.input.CursorEnd()
		}
		m.search.reset()
		return m, nil

	case "esc", "escape", "ctrl+c", "ctrl+g", "ctrl+r":
		m.search.reset()
		return m, nil

	case "up":
		m.search.up()
		return m, nil

	case "down":
		m.search.down()
		return m, nil

	case "backspace":
		if m.search.query != "" {
			runes := []rune(m.search.query)
			m.search.query = string(runes[:len(runes)-1])
			m.search.refresh(m.history)
		}
		return m, nil
	}

	if len(msg.Runes) > 0 && unicode.IsPrint(msg.Runes[0]) {
		m.search.query += string(msg.Runes)
		m.search.refresh(m.history)
	}
	return m, nil
}

func (m model) View() string {
	if m.state != editing {
		return ""
	}
	if m.search.active {
		return m.search.view(m.history, m.boxHeight(), m.width)
	}

	view := m.input.View()
	if box := candidateBox(&m.completion, m.boxHeight(), m.width); box != "" {
		view += "\n" + box
	}
	return view
}

func (m model) boxHeight() int {
	if m.opts.BoxHeight > 0 {
		return m.opts.BoxHeight
	}
	return 8
}

// origEnd returns the span end at session start, before any candidate was
// applied on top of the original line.
func (cs *completionState) origEnd() int {
	if len(cs.candidates) > 0 {
		return cs.candidates[0].End
	}
	return cs.end
}

func commonPrefix(candidates []Candidate) string {
	if len(candidates) == 0 {
		return ""
	}
	prefix := []rune(candidates[0].Value)
	for _, c := range candidates[1:] {
		runes := []rune(c.Value)
		n := len(prefix)
		if len(runes) < n {
			n = len(runes)
		}
		i := 0
		for i < n && prefix[i] == runes[i] {
			i++
		}
		prefix = prefix[:i]
		if len(prefix) == 0 {
			break
		}
	}
	return string(prefix)
}

// ReadLine presents the prompt and returns the submitted line. It returns
// ErrInterrupted on Ctrl+C and io.EOF on Ctrl+D at an empty prompt.
func ReadLine(opts Options) (string, error) {
	p := tea.NewProgram(newModel(opts))
	final, err := p.Run()
	if err != nil {
		return "", err
	}

	m, ok := final.(model)
	if !ok {
		return "", errors.New("lineedit: unexpected final model")
	}

	switch m.state {
	case interrupted:
		fmt.Printf("%s%s^C\n", opts.Prompt, m.result)
		return "", ErrInterrupted
	case closed:
		fmt.Printf("%s\n", opts.Prompt)
		return "", io.EOF
	default:
		fmt.Printf("%s%s\n", opts.Prompt, m.result)
		return m.result, nil
	}
}
