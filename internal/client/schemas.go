package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/robottwo/redline/internal/completion"
	"github.com/robottwo/redline/internal/resp"
)

// commandDocsMinVersion is the first server release with COMMAND DOCS.
var commandDocsMinVersion = semver.MustParse("7.0.0")

// FetchCommandSchemas retrieves the server's command table. Arity always
// comes from COMMAND; on servers that support it, COMMAND DOCS adds
// summaries, argument roles and subcommand schemas. Implements
// completion.SchemaFetcher.
func (c *Client) FetchCommandSchemas(ctx context.Context) ([]*completion.CommandSchema, error) {
	schemas, err := c.fetchArities(ctx)
	if err != nil {
		return nil, err
	}

	if c.version != nil && !c.version.LessThan(commandDocsMinVersion) {
		if err := c.applyCommandDocs(ctx, schemas); err != nil {
			// Docs are an enrichment; arity data alone is still useful.
			c.logger.Warn("COMMAND DOCS unavailable, using arity only", zap.Error(err))
		}
	}

	out := make([]*completion.CommandSchema, 0, len(schemas))
	for _, schema := range schemas {
		out = append(out, schema)
	}
	return out, nil
}

// fetchArities runs COMMAND and maps each entry's arity onto min and max
// argument counts. Positive arity is exact (arity counts the command name
// itself); negative arity is a minimum with unbounded maximum.
func (c *Client) fetchArities(ctx context.Context) (map[string]*completion.CommandSchema, error) {
	reply, err := c.Execute(ctx, "COMMAND")
	if err != nil {
		return nil, err
	}
	if reply.IsError() {
		return nil, fmt.Errorf("COMMAND failed: %s", reply.Str)
	}

	schemas := make(map[string]*completion.CommandSchema, len(reply.Elems))
	for _, entry := range reply.Elems {
		if len(entry.Elems) < 2 {
			continue
		}
		name := strings.ToUpper(entry.Elems[0].Text())
		if name == "" {
			continue
		}

		arity := entry.Elems[1].Int
		schema := &completion.CommandSchema{Name: name}
		if arity >= 1 {
			schema.MinArgs = int(arity) - 1
			schema.MaxArgs = int(arity) - 1
		} else {
			schema.MinArgs = int(-arity) - 1
			schema.MaxArgs = completion.Unbounded
		}
		schemas[name] = schema
	}
	return schemas, nil
}

// applyCommandDocs enriches the arity table with COMMAND DOCS output:
// summaries, per-argument roles and compound schemas for subcommands.
func (c *Client) applyCommandDocs(ctx context.Context, schemas map[string]*completion.CommandSchema) error {
	reply, err := c.Execute(ctx, "COMMAND", "DOCS")
	if err != nil {
		return err
	}
	if reply.IsError() {
		return fmt.Errorf("COMMAND DOCS failed: %s", reply.Str)
	}

	for name, doc := range fieldPairs(reply) {
		upper := strings.ToUpper(name)
		schema, ok := schemas[upper]
		if !ok {
			schema = &completion.CommandSchema{Name: upper, MaxArgs: completion.Unbounded}
			schemas[upper] = schema
		}
		applyDoc(schema, doc, schemas)
	}
	return nil
}

// fieldPairs reads an aggregate value as field/value pairs. RESP3 replies
// use the map type; RESP2 encodes the same data as a flat array.
func fieldPairs(v resp.Value) map[string]resp.Value {
	fields := make(map[string]resp.Value, len(v.Elems)/2)
	for i := 0; i+1 < len(v.Elems); i += 2 {
		if name := v.Elems[i].Text(); name != "" {
			fields[name] = v.Elems[i+1]
		}
	}
	return fields
}

// applyDoc fills one schema from its docs entry and registers compound
// schemas for any subcommands it declares.
func applyDoc(schema *completion.CommandSchema, doc resp.Value, schemas map[string]*completion.CommandSchema) {
	fields := fieldPairs(doc)

	if summary := fields["summary"].Text(); summary != "" {
		schema.Summary = summary
	}

	if args := fields["arguments"]; len(args.Elems) > 0 {
		roles, literals := parseArguments(args.Elems)
		if len(roles) > 0 {
			schema.Roles = roles
		}
		if len(literals) > 0 {
			schema.Literals = literals
		}
	}

	for subName, subDoc := range fieldPairs(fields["subcommands"]) {
		// Subcommand doc names come as "container|sub".
		sub := subName
		if i := strings.LastIndexByte(sub, '|'); i >= 0 {
			sub = sub[i+1:]
		}
		compound := schema.Name + " " + strings.ToUpper(sub)
		subSchema, ok := schemas[compound]
		if !ok {
			subSchema = &completion.CommandSchema{Name: compound, MaxArgs: completion.Unbounded}
			schemas[compound] = subSchema
		}
		applyDoc(subSchema, subDoc, schemas)
	}
}

// parseArguments maps a documented argument list onto roles, collecting
// token literals from oneof and pure-token entries.
func parseArguments(args []resp.Value) ([]completion.ArgRole, map[int][]string) {
	var roles []completion.ArgRole
	literals := make(map[int][]string)

	for i, arg := range args {
		fields := fieldPairs(arg)

		switch fields["type"].Text() {
		case "key":
			roles = append(roles, completion.RoleKey)
		case "pattern":
			roles = append(roles, completion.RolePattern)
		case "integer", "double", "unix-time":
			roles = append(roles, completion.RoleNumeric)
		case "oneof", "pure-token":
			roles = append(roles, completion.RoleEnum)
			if tokens := collectTokens(fields); len(tokens) > 0 {
				literals[i] = tokens
			}
		default:
			roles = append(roles, completion.RoleValue)
		}
	}

	if len(literals) == 0 {
		literals = nil
	}
	return roles, literals
}

// collectTokens gathers the pure-token spellings under an argument doc,
// including one level of oneof nesting.
func collectTokens(fields map[string]resp.Value) []string {
	var tokens []string
	if tok := fields["token"].Text(); tok != "" {
		tokens = append(tokens, tok)
	}
	for _, nested := range fields["arguments"].Elems {
		if tok := fieldPairs(nested)["token"].Text(); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
