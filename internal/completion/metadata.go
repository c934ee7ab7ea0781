package completion

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SchemaFetcher retrieves the server's command list with per-command arity
// and whatever argument documentation the server offers.
type SchemaFetcher interface {
	FetchCommandSchemas(ctx context.Context) ([]*CommandSchema, error)
}

// schemaSnapshot is an immutable view of all known schemas. Refresh builds
// a new one and swaps the pointer; readers never see a partial update.
type schemaSnapshot struct {
	schemas map[string]*CommandSchema

	// names holds every single-word command name plus the deduplicated
	// first words of compound names, sorted ascending.
	names []string

	// subcommands maps a container command's first word to its sorted
	// subcommand words.
	subcommands map[string][]string
}

func buildSchemaSnapshot(schemas map[string]*CommandSchema) *schemaSnapshot {
	nameSet := make(map[string]struct{}, len(schemas))
	subs := make(map[string][]string)
	for _, schema := range schemas {
		first := schema.FirstWord()
		nameSet[first] = struct{}{}
		if second := schema.SecondWord(); second != "" {
			subs[first] = append(subs[first], second)
		}
	}

	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)
	for first := range subs {
		sort.Strings(subs[first])
	}

	return &schemaSnapshot{schemas: schemas, names: names, subcommands: subs}
}

// MetadataCache holds the set of known command schemas. One writer (the
// background refresher) replaces the snapshot wholesale; any number of
// readers serve completion requests lock-free off the current snapshot.
type MetadataCache struct {
	snapshot  atomic.Pointer[schemaSnapshot]
	fetcher   SchemaFetcher
	overrides map[string]*CommandSchema
	logger    *zap.Logger
}

// NewMetadataCache returns a cache pre-seeded with the builtin schema
// table, optionally overlaid with user-supplied overrides. fetcher may be
// nil, in which case Refresh keeps serving the builtin table.
func NewMetadataCache(fetcher SchemaFetcher, overrides map[string]*CommandSchema, logger *zap.Logger) *MetadataCache {
	c := &MetadataCache{
		fetcher:   fetcher,
		overrides: overrides,
		logger:    logger,
	}
	c.snapshot.Store(buildSchemaSnapshot(c.merge(nil)))
	return c
}

// GetSchema looks up a schema by name, case-insensitively. Compound names
// ("config get") resolve too.
func (c *MetadataCache) GetSchema(name string) (*CommandSchema, bool) {
	schema, ok := c.snapshot.Load().schemas[strings.ToUpper(name)]
	return schema, ok
}

// HasSchema reports whether a schema exists for the name.
func (c *MetadataCache) HasSchema(name string) bool {
	_, ok := c.GetSchema(name)
	return ok
}

// HasSubcommands reports whether the given first word names a container
// command with compound schemas under it.
func (c *MetadataCache) HasSubcommands(first string) bool {
	_, ok := c.snapshot.Load().subcommands[strings.ToUpper(first)]
	return ok
}

// AllCommandNames returns every known command name, sorted ascending.
// Compound schemas are represented by their first word only.
func (c *MetadataCache) AllCommandNames() []string {
	return c.snapshot.Load().names
}

// MatchingCommands returns the sorted command names whose canonical form
// starts with the uppercased prefix.
func (c *MetadataCache) MatchingCommands(prefix string) []string {
	upper := strings.ToUpper(prefix)
	names := c.snapshot.Load().names
	// names is sorted, so the matches form a contiguous run.
	start := sort.SearchStrings(names, upper)
	var out []string
	for _, name := range names[start:] {
		if !strings.HasPrefix(name, upper) {
			break
		}
		out = append(out, name)
	}
	return out
}

// MatchingSubcommands returns the sorted subcommand words of the given
// container command that start with the uppercased prefix.
func (c *MetadataCache) MatchingSubcommands(first, prefix string) []string {
	subs := c.snapshot.Load().subcommands[strings.ToUpper(first)]
	upper := strings.ToUpper(prefix)
	return lo.Filter(subs, func(s string, _ int) bool {
		return strings.HasPrefix(s, upper)
	})
}

// Refresh fetches the server's command list and atomically installs a new
// snapshot built from builtins, the fetched schemas and user overrides, in
// that precedence order. On any fetch error the previous snapshot stays in
// place: stale-but-valid data beats empty data.
func (c *MetadataCache) Refresh(ctx context.Context) error {
	if c.fetcher == nil {
		return nil
	}

	fetched, err := c.fetcher.FetchCommandSchemas(ctx)
	if err != nil {
		c.logger.Warn("command metadata refresh failed, keeping previous snapshot", zap.Error(err))
		return err
	}

	c.snapshot.Store(buildSchemaSnapshot(c.merge(fetched)))
	c.logger.Debug("command metadata refreshed", zap.Int("commands", len(fetched)))
	return nil
}

// merge layers fetched schemas over the builtin table and user overrides
// over both. Fetched entries keep builtin roles and literals when the
// server had nothing better to say about a slot.
func (c *MetadataCache) merge(fetched []*CommandSchema) map[string]*CommandSchema {
	builtins := builtinSchemas()
	out := make(map[string]*CommandSchema, len(builtins)+len(fetched))
	for name, schema := range builtins {
		out[name] = schema
	}

	for _, schema := range fetched {
		name := strings.ToUpper(schema.Name)
		merged := *schema
		merged.Name = name
		if base, ok := builtins[name]; ok {
			if len(merged.Roles) == 0 {
				merged.Roles = base.Roles
			}
			if merged.Literals == nil {
				merged.Literals = base.Literals
			}
			if merged.Summary == "" {
				merged.Summary = base.Summary
			}
		}
		out[name] = &merged
	}

	for name, schema := range c.overrides {
		upper := strings.ToUpper(name)
		merged := *schema
		merged.Name = upper
		if base, ok := out[upper]; ok {
			if len(merged.Roles) == 0 {
				merged.Roles = base.Roles
			}
			if merged.Literals == nil {
				merged.Literals = base.Literals
			}
			if merged.Summary == "" {
				merged.Summary = base.Summary
			}
			if merged.MinArgs == 0 && merged.MaxArgs == 0 {
				merged.MinArgs = base.MinArgs
				merged.MaxArgs = base.MaxArgs
			}
		}
		out[upper] = &merged
	}

	return out
}
