package completion

import "strings"

// TokenKind classifies the token under the cursor.
type TokenKind int

const (
	// KindCommand means the cursor sits on the command name itself.
	KindCommand TokenKind = iota
	// KindSubcommand means the cursor sits on the second word of a
	// container command whose schemas are keyed by two-word names.
	KindSubcommand
	// KindArg means the cursor sits on a positional argument.
	KindArg
)

// LineContext is the transient, per-request description of what is being
// completed: the token span in the input, its classification and the raw
// prefix text typed so far.
type LineContext struct {
	Kind TokenKind

	// Command is the uppercased command governing an argument token; for
	// KindSubcommand it is the container's first word. Empty for
	// KindCommand.
	Command string

	// Position is the argument index (0-based, counted after the command
	// name) for KindArg.
	Position int

	// Prefix is the raw text of the token from its start to the cursor.
	Prefix string

	// Start and End delimit the whole token in the input line; accepting
	// a candidate replaces this span.
	Start int
	End   int
}

// SchemaResolver is the slice of schema knowledge the parser needs to
// classify tokens. MetadataCache satisfies it.
type SchemaResolver interface {
	HasSchema(name string) bool
	HasSubcommands(first string) bool
}

// ContextParser tokenizes an in-progress input line and determines what
// kind of token the cursor is on.
type ContextParser struct {
	resolver SchemaResolver
}

func NewContextParser(resolver SchemaResolver) *ContextParser {
	return &ContextParser{resolver: resolver}
}

type token struct {
	text  string
	start int
	end   int
}

// tokenize splits a line on whitespace, tracking byte offsets. A token
// wrapped in matching quote characters stays one token even when it
// contains spaces; an unbalanced quote deterministically extends the token
// to the end of the line rather than failing.
func tokenize(line string) []token {
	var tokens []token
	i := 0
	for i < len(line) {
		if line[i] == ' ' || line[i] == '\t' {
			i++
			continue
		}
		start := i
		var quote byte
		for i < len(line) {
			ch := line[i]
			if quote != 0 {
				if ch == quote {
					quote = 0
				}
			} else if ch == '"' || ch == '\'' {
				quote = ch
			} else if ch == ' ' || ch == '\t' {
				break
			}
			i++
		}
		tokens = append(tokens, token{text: line[start:i], start: start, end: i})
	}
	return tokens
}

// SplitArgs splits a submitted line into command arguments, honoring the
// same quoting rules as completion tokenization. Surrounding quotes are
// stripped from each argument.
func SplitArgs(line string) []string {
	tokens := tokenize(line)
	args := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		args = append(args, unquote(tok.text))
	}
	return args
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Classify determines the token under the cursor and its completion
// context. It never fails; a malformed or empty line degrades to an empty
// command prefix at the cursor.
func (p *ContextParser) Classify(line string, cursor int) LineContext {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(line) {
		cursor = len(line)
	}

	tokens := tokenize(line)

	// Locate the token holding the cursor, or synthesize an empty token
	// when the cursor sits in whitespace.
	index := len(tokens)
	current := token{start: cursor, end: cursor}
	for i, tok := range tokens {
		if cursor < tok.start {
			index = i
			break
		}
		if cursor <= tok.end {
			index = i
			current = tok
			break
		}
	}

	prefix := current.text
	if cursor-current.start < len(prefix) {
		prefix = prefix[:cursor-current.start]
	}

	if index == 0 {
		return LineContext{
			Kind:   KindCommand,
			Prefix: prefix,
			Start:  current.start,
			End:    current.end,
		}
	}

	first := strings.ToUpper(tokens[0].text)

	// Compound commands: when the first two tokens jointly name a schema,
	// the second token belongs to the command, not the arguments.
	if index >= 2 {
		combined := first + " " + strings.ToUpper(tokens[1].text)
		if p.resolver.HasSchema(combined) {
			return LineContext{
				Kind:     KindArg,
				Command:  combined,
				Position: index - 2,
				Prefix:   prefix,
				Start:    current.start,
				End:      current.end,
			}
		}
	}

	// Completing the second word of a container command that has no
	// schema of its own.
	if index == 1 && !p.resolver.HasSchema(first) && p.resolver.HasSubcommands(first) {
		return LineContext{
			Kind:    KindSubcommand,
			Command: first,
			Prefix:  prefix,
			Start:   current.start,
			End:     current.end,
		}
	}

	return LineContext{
		Kind:     KindArg,
		Command:  first,
		Position: index - 1,
		Prefix:   prefix,
		Start:    current.start,
		End:      current.end,
	}
}
