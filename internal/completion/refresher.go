package completion

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMetadataInterval = 5 * time.Minute
	DefaultKeysInterval     = 30 * time.Second
	DefaultRefreshTimeout   = 5 * time.Second
	DefaultKeyPattern       = "*"
)

// RefresherOptions configures the background refresh loops. Zero fields
// take the documented defaults, so the client is usable unconfigured.
type RefresherOptions struct {
	MetadataInterval time.Duration
	KeysInterval     time.Duration
	// Timeout bounds a single refresh attempt; an attempt that exceeds it
	// abandons its update and the previous snapshot stays in place.
	Timeout    time.Duration
	KeyPattern string
}

func (o *RefresherOptions) applyDefaults() {
	if o.MetadataInterval <= 0 {
		o.MetadataInterval = DefaultMetadataInterval
	}
	if o.KeysInterval <= 0 {
		o.KeysInterval = DefaultKeysInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultRefreshTimeout
	}
	if o.KeyPattern == "" {
		o.KeyPattern = DefaultKeyPattern
	}
}

// Refresher owns the background timeline that keeps both caches loosely
// consistent with server state. It never shares a lock with the
// interactive path; all it does is ask the caches to swap snapshots.
// Refresh errors are logged by the caches and otherwise swallowed.
type Refresher struct {
	metadata *MetadataCache
	keys     *KeyCache
	opts     RefresherOptions
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRefresher(metadata *MetadataCache, keys *KeyCache, opts RefresherOptions, logger *zap.Logger) *Refresher {
	opts.applyDefaults()
	return &Refresher{
		metadata: metadata,
		keys:     keys,
		opts:     opts,
		logger:   logger,
	}
}

// RefreshNow runs one synchronous refresh of both caches, used at startup
// before the first prompt and by the _refresh builtin. Failures leave the
// previous snapshots intact.
func (r *Refresher) RefreshNow(ctx context.Context) {
	attempt := func(refresh func(context.Context) error) {
		tctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
		_ = refresh(tctx)
	}
	attempt(r.metadata.Refresh)
	attempt(func(ctx context.Context) error {
		return r.keys.Refresh(ctx, r.opts.KeyPattern)
	})
}

// Start launches the two refresh loops. Call Stop to shut them down.
func (r *Refresher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(2)
	go r.loop(ctx, r.opts.MetadataInterval, r.metadata.Refresh)
	go r.loop(ctx, r.opts.KeysInterval, func(ctx context.Context) error {
		return r.keys.Refresh(ctx, r.opts.KeyPattern)
	})

	r.logger.Debug("cache refresher started",
		zap.Duration("metadata_interval", r.opts.MetadataInterval),
		zap.Duration("keys_interval", r.opts.KeysInterval),
		zap.String("key_pattern", r.opts.KeyPattern))
}

// Stop cancels any in-flight refresh and waits for the loops to exit.
func (r *Refresher) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.cancel = nil
}

func (r *Refresher) loop(ctx context.Context, interval time.Duration, refresh func(context.Context) error) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
			_ = refresh(tctx)
			cancel()
		}
	}
}
