package lineedit

// Candidate is a single completion suggestion together with the byte span
// of the input line it replaces.
type Candidate struct {
	Value       string
	Start       int
	End         int
	Description string
}

// CompletionProvider produces candidates for the given input line and
// cursor position. Implementations must be safe to call from the render
// loop and must never block on I/O.
type CompletionProvider interface {
	Candidates(line string, pos int) []Candidate
}

// completionState tracks an in-flight Tab completion session. Candidates
// are queried once when the session starts; Tab and Shift+Tab cycle
// through the frozen list until the user edits the line.
type completionState struct {
	active     bool
	candidates []Candidate
	selected   int

	// span of the line currently covered by the applied candidate
	start int
	end   int

	// line content and cursor before the session started, restored on Esc
	origLine   string
	origCursor int
}

func (cs *completionState) reset() {
	*cs = completionState{selected: -1}
}

func (cs *completionState) begin(line string, cursor int, candidates []Candidate) {
	cs.active = true
	cs.candidates = candidates
	cs.selected = -1
	cs.start = candidates[0].Start
	cs.end = candidates[0].End
	cs.origLine = line
	cs.origCursor = cursor
}

func (cs *completionState) next() (Candidate, bool) {
	if !cs.active || len(cs.candidates) == 0 {
		return Candidate{}, false
	}
	cs.selected = (cs.selected + 1) % len(cs.candidates)
	return cs.candidates[cs.selected], true
}

func (cs *completionState) prev() (Candidate, bool) {
	if !cs.active || len(cs.candidates) == 0 {
		return Candidate{}, false
	}
	cs.selected--
	if cs.selected < 0 {
		cs.selected = len(cs.candidates) - 1
	}
	return cs.candidates[cs.selected], true
}

func (cs *completionState) current() (Candidate, bool) {
	if !cs.active || cs.selected < 0 || cs.selected >= len(cs.candidates) {
		return Candidate{}, false
	}
	return cs.candidates[cs.selected], true
}

func (cs *completionState) showBox() bool {
	return cs.active && len(cs.candidates) > 1
}
