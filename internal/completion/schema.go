// Package completion computes context-aware completion candidates for the
// interactive prompt. It is fed by two background-refreshed caches: command
// schemas fetched from the server and a best-effort snapshot of existing
// keys. Completion itself never touches the network; it only reads whatever
// snapshot is currently installed.
package completion

import "strings"

// ArgRole is the semantic kind of a command's positional argument. The
// engine switches on the role to pick a candidate source.
type ArgRole int

const (
	// RoleValue is free text; the engine offers generic, non-binding hints.
	RoleValue ArgRole = iota
	// RoleKey arguments complete from the key cache.
	RoleKey
	// RoleField names a hash field; there is no enumeration source for
	// fields, so it behaves like free text.
	RoleField
	// RoleNumeric arguments get numeric placeholder hints.
	RoleNumeric
	// RoleEnum arguments complete from the schema's literal set for the slot.
	RoleEnum
	// RolePattern arguments get glob pattern hints.
	RolePattern
)

// Unbounded marks a schema that accepts any number of trailing arguments of
// its last declared role.
const Unbounded = -1

// CommandSchema describes one command's name, arity and argument shape.
// A schema is immutable once built; refresh replaces the whole schema set
// rather than mutating entries.
//
// Name is the canonical uppercase form and may contain a single space for
// container subcommands ("CONFIG GET").
type CommandSchema struct {
	Name    string
	Summary string

	// MinArgs and MaxArgs count arguments after the command name.
	// MaxArgs may be Unbounded.
	MinArgs int
	MaxArgs int

	// Roles describes each positional argument. When MaxArgs is Unbounded,
	// positions past the end of Roles repeat the last declared role.
	Roles []ArgRole

	// Literals holds the suggestion set for RoleEnum slots, keyed by
	// argument position.
	Literals map[int][]string
}

// RoleAt returns the role governing the given argument position, clamping
// to the last declared role for unbounded trailing arguments. The second
// return is false when the position is past everything the schema declares.
func (s *CommandSchema) RoleAt(position int) (ArgRole, bool) {
	if position < 0 || len(s.Roles) == 0 {
		return RoleValue, false
	}
	if position < len(s.Roles) {
		return s.Roles[position], true
	}
	if s.MaxArgs == Unbounded || position < s.MaxArgs {
		return s.Roles[len(s.Roles)-1], true
	}
	return RoleValue, false
}

// LiteralsAt returns the literal suggestion set for the given argument
// position, clamped the same way RoleAt clamps roles.
func (s *CommandSchema) LiteralsAt(position int) []string {
	if s.Literals == nil {
		return nil
	}
	if lits, ok := s.Literals[position]; ok {
		return lits
	}
	if position >= len(s.Roles) && len(s.Roles) > 0 && (s.MaxArgs == Unbounded || position < s.MaxArgs) {
		return s.Literals[len(s.Roles)-1]
	}
	return nil
}

// FirstWord returns the schema name's first word; for single-word schemas
// that is the whole name.
func (s *CommandSchema) FirstWord() string {
	if i := strings.IndexByte(s.Name, ' '); i >= 0 {
		return s.Name[:i]
	}
	return s.Name
}

// SecondWord returns the subcommand word of a compound schema name, or an
// empty string for single-word schemas.
func (s *CommandSchema) SecondWord() string {
	if i := strings.IndexByte(s.Name, ' '); i >= 0 {
		return s.Name[i+1:]
	}
	return ""
}

// CandidateKind says which source produced a candidate. Hints are
// non-binding placeholders, distinguishable from authoritative candidates
// by this field rather than by their content.
type CandidateKind int

const (
	CandidateCommand CandidateKind = iota
	CandidateSubcommand
	CandidateKey
	CandidateLiteral
	CandidateHint
)

// Candidate is one proposed completion plus the span of the input line it
// replaces. Accepting a candidate replaces the whole partial token, not
// just the text after the cursor.
type Candidate struct {
	Value       string
	Start       int
	End         int
	Kind        CandidateKind
	Description string
}
