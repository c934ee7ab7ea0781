package completion

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/tchap/go-patricia/v2/patricia"
	"go.uber.org/zap"
)

// KeyFetcher enumerates server keys matching a glob pattern.
type KeyFetcher interface {
	FetchKeys(ctx context.Context, pattern string) ([]string, error)
}

// keySnapshot is an immutable point-in-time view of the server's keyspace.
// Keys are indexed in a radix trie for prefix lookup.
type keySnapshot struct {
	trie       *patricia.Trie
	count      int
	pattern    string
	capturedAt time.Time
}

func buildKeySnapshot(keys []string, pattern string, capturedAt time.Time) *keySnapshot {
	trie := patricia.NewTrie()
	count := 0
	for _, key := range keys {
		if trie.Insert(patricia.Prefix(key), struct{}{}) {
			count++
		}
	}
	return &keySnapshot{trie: trie, count: count, pattern: pattern, capturedAt: capturedAt}
}

// KeyCache holds a best-effort snapshot of existing keys. Staleness is
// bounded by the refresh interval; a suggested key may no longer exist and
// consumers must treat the contents as advisory. Same single-writer,
// many-reader snapshot discipline as MetadataCache.
type KeyCache struct {
	snapshot atomic.Pointer[keySnapshot]
	fetcher  KeyFetcher
	logger   *zap.Logger
	now      func() time.Time
}

// NewKeyCache returns an empty cache. fetcher may be nil for offline use.
func NewKeyCache(fetcher KeyFetcher, logger *zap.Logger) *KeyCache {
	c := &KeyCache{
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
	c.snapshot.Store(buildKeySnapshot(nil, "", time.Time{}))
	return c
}

// MatchingKeys returns all cached keys starting with prefix, sorted
// lexicographically. Key names are server-defined, so matching is
// case-sensitive. An empty cache yields an empty result, never an error.
func (c *KeyCache) MatchingKeys(prefix string) []string {
	snap := c.snapshot.Load()
	var out []string
	_ = snap.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		out = append(out, string(p))
		return nil
	})
	sort.Strings(out)
	return out
}

// Len returns the number of keys in the current snapshot.
func (c *KeyCache) Len() int {
	return c.snapshot.Load().count
}

// CapturedAt returns when the current snapshot was taken; the zero time
// means no refresh has succeeded yet.
func (c *KeyCache) CapturedAt() time.Time {
	return c.snapshot.Load().capturedAt
}

// Refresh enumerates keys matching pattern and atomically installs a new
// snapshot. On error the previous snapshot remains authoritative.
func (c *KeyCache) Refresh(ctx context.Context, pattern string) error {
	if c.fetcher == nil {
		return nil
	}

	keys, err := c.fetcher.FetchKeys(ctx, pattern)
	if err != nil {
		c.logger.Warn("key cache refresh failed, keeping previous snapshot",
			zap.String("pattern", pattern), zap.Error(err))
		return err
	}

	c.snapshot.Store(buildKeySnapshot(keys, pattern, c.now()))
	c.logger.Debug("key cache refreshed",
		zap.String("pattern", pattern), zap.Int("keys", len(keys)))
	return nil
}
