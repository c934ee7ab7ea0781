package completion

import (
	"strings"

	"github.com/samber/lo"
)

// CompletionEngine turns an in-progress input line into an ordered,
// deduplicated list of candidates. Each call is a pure function of the
// line, the cursor and the currently installed cache snapshots; nothing
// persists across calls and nothing here can fail or block.
type CompletionEngine struct {
	metadata *MetadataCache
	keys     *KeyCache
	parser   *ContextParser
}

func NewCompletionEngine(metadata *MetadataCache, keys *KeyCache) *CompletionEngine {
	return &CompletionEngine{
		metadata: metadata,
		keys:     keys,
		parser:   NewContextParser(metadata),
	}
}

// Complete returns candidates for the token under the cursor. Missing or
// stale cache data yields an empty list, never an error.
func (e *CompletionEngine) Complete(line string, cursor int) []Candidate {
	ctx := e.parser.Classify(line, cursor)

	var candidates []Candidate
	switch ctx.Kind {
	case KindCommand:
		candidates = e.commandCandidates(ctx)
	case KindSubcommand:
		candidates = e.subcommandCandidates(ctx)
	case KindArg:
		candidates = e.argCandidates(ctx)
	}

	return lo.UniqBy(candidates, func(c Candidate) string { return c.Value })
}

func (e *CompletionEngine) commandCandidates(ctx LineContext) []Candidate {
	names := e.metadata.MatchingCommands(ctx.Prefix)
	candidates := make([]Candidate, 0, len(names))
	for _, name := range names {
		var summary string
		if schema, ok := e.metadata.GetSchema(name); ok {
			summary = schema.Summary
		}
		candidates = append(candidates, Candidate{
			Value:       name,
			Start:       ctx.Start,
			End:         ctx.End,
			Kind:        CandidateCommand,
			Description: summary,
		})
	}
	return candidates
}

func (e *CompletionEngine) subcommandCandidates(ctx LineContext) []Candidate {
	subs := e.metadata.MatchingSubcommands(ctx.Command, ctx.Prefix)
	candidates := make([]Candidate, 0, len(subs))
	for _, sub := range subs {
		var summary string
		if schema, ok := e.metadata.GetSchema(ctx.Command + " " + sub); ok {
			summary = schema.Summary
		}
		candidates = append(candidates, Candidate{
			Value:       sub,
			Start:       ctx.Start,
			End:         ctx.End,
			Kind:        CandidateSubcommand,
			Description: summary,
		})
	}
	return candidates
}

func (e *CompletionEngine) argCandidates(ctx LineContext) []Candidate {
	schema, ok := e.metadata.GetSchema(ctx.Command)
	if !ok {
		// Unrecognized command: no schema-driven suggestions.
		return nil
	}

	role, ok := schema.RoleAt(ctx.Position)
	if !ok {
		return nil
	}

	switch role {
	case RoleKey:
		keys := e.keys.MatchingKeys(ctx.Prefix)
		return e.spanCandidates(ctx, keys, CandidateKey)

	case RoleEnum:
		literals := filterPrefixFold(schema.LiteralsAt(ctx.Position), ctx.Prefix)
		return e.spanCandidates(ctx, literals, CandidateLiteral)

	case RoleNumeric:
		return e.spanCandidates(ctx, filterPrefix(numericHints, ctx.Prefix), CandidateHint)

	case RolePattern:
		return e.spanCandidates(ctx, filterPrefix(patternHints, ctx.Prefix), CandidateHint)

	case RoleValue, RoleField:
		return e.spanCandidates(ctx, filterPrefix(genericValueHints, ctx.Prefix), CandidateHint)
	}

	return nil
}

func (e *CompletionEngine) spanCandidates(ctx LineContext, values []string, kind CandidateKind) []Candidate {
	candidates := make([]Candidate, 0, len(values))
	for _, v := range values {
		candidates = append(candidates, Candidate{
			Value: v,
			Start: ctx.Start,
			End:   ctx.End,
			Kind:  kind,
		})
	}
	return candidates
}

func filterPrefix(values []string, prefix string) []string {
	if prefix == "" {
		return values
	}
	return lo.Filter(values, func(v string, _ int) bool {
		return strings.HasPrefix(v, prefix)
	})
}

// filterPrefixFold matches case-insensitively; literal sets mix uppercase
// option tokens with lowercase parameter names.
func filterPrefixFold(values []string, prefix string) []string {
	if prefix == "" {
		return values
	}
	upper := strings.ToUpper(prefix)
	return lo.Filter(values, func(v string, _ int) bool {
		return strings.HasPrefix(strings.ToUpper(v), upper)
	})
}
