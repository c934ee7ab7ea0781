package completion

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingKeyFetcher struct {
	calls atomic.Int64
	keys  []string
}

func (f *countingKeyFetcher) FetchKeys(ctx context.Context, pattern string) ([]string, error) {
	f.calls.Add(1)
	return f.keys, nil
}

type countingSchemaFetcher struct {
	calls atomic.Int64
}

func (f *countingSchemaFetcher) FetchCommandSchemas(ctx context.Context) ([]*CommandSchema, error) {
	f.calls.Add(1)
	return nil, nil
}

func TestRefresher_RefreshNow(t *testing.T) {
	schemaFetcher := &countingSchemaFetcher{}
	keyFetcher := &countingKeyFetcher{keys: []string{"user:1"}}

	metadata := NewMetadataCache(schemaFetcher, nil, zap.NewNop())
	keys := NewKeyCache(keyFetcher, zap.NewNop())
	r := NewRefresher(metadata, keys, RefresherOptions{}, zap.NewNop())

	r.RefreshNow(context.Background())

	assert.Equal(t, int64(1), schemaFetcher.calls.Load())
	assert.Equal(t, int64(1), keyFetcher.calls.Load())
	assert.Equal(t, []string{"user:1"}, keys.MatchingKeys(""))
}

func TestRefresher_BackgroundLoops(t *testing.T) {
	schemaFetcher := &countingSchemaFetcher{}
	keyFetcher := &countingKeyFetcher{}

	metadata := NewMetadataCache(schemaFetcher, nil, zap.NewNop())
	keys := NewKeyCache(keyFetcher, zap.NewNop())
	r := NewRefresher(metadata, keys, RefresherOptions{
		MetadataInterval: 5 * time.Millisecond,
		KeysInterval:     5 * time.Millisecond,
		Timeout:          time.Second,
	}, zap.NewNop())

	r.Start()
	require.Eventually(t, func() bool {
		return schemaFetcher.calls.Load() >= 2 && keyFetcher.calls.Load() >= 2
	}, 2*time.Second, time.Millisecond)
	r.Stop()

	// No further attempts once stopped.
	schemaCalls := schemaFetcher.calls.Load()
	keyCalls := keyFetcher.calls.Load()
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, schemaCalls, schemaFetcher.calls.Load())
	assert.Equal(t, keyCalls, keyFetcher.calls.Load())
}

func TestRefresher_StopWithoutStart(t *testing.T) {
	metadata := NewMetadataCache(nil, nil, zap.NewNop())
	keys := NewKeyCache(nil, zap.NewNop())
	r := NewRefresher(metadata, keys, RefresherOptions{}, zap.NewNop())

	// Must not panic or block.
	r.Stop()
}

func TestRefresherOptions_Defaults(t *testing.T) {
	var opts RefresherOptions
	opts.applyDefaults()

	assert.Equal(t, DefaultMetadataInterval, opts.MetadataInterval)
	assert.Equal(t, DefaultKeysInterval, opts.KeysInterval)
	assert.Equal(t, DefaultRefreshTimeout, opts.Timeout)
	assert.Equal(t, DefaultKeyPattern, opts.KeyPattern)
}
