package discover

import (
	"context"
	"log/slog"
	"sync"
)

// Config configures a Registry. Only Client is required; all other fields
// have defaults applied by NewRegistry.
type Config struct {
	// Client is the CoordClient backend. Required.
	Client CoordClient

	// Codec encodes/decodes Instance <-> path segment. Defaults to
	// DefaultCodec{} when nil.
	Codec Codec

	// MaxBlockingWorkers bounds the blocking-worker pool. Defaults to
	// defaultPoolWorkers when <= 0.
	MaxBlockingWorkers int

	// Logger receives structured diagnostics. Defaults to slog.Default()
	// when nil.
	Logger *slog.Logger
}

// Registry bundles the registration engine and the watch engine behind the
// three operations a caller needs (Register, Deregister, Watch) and owns
// the shared ancestor cache and blocking-worker pool both engines draw
// from. It is safe for concurrent use.
type Registry struct {
	client CoordClient
	codec  Codec
	logger *slog.Logger
	pool   *blockingPool
	cache  *ancestorCache
	engine *engine

	mu       sync.Mutex
	closed   bool
	watchers map[*Watcher]struct{}
}

// NewRegistry constructs a Registry over the given CoordClient backend.
func NewRegistry(cfg Config) *Registry {
	codec := cfg.Codec
	if codec == nil {
		codec = DefaultCodec{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := newAncestorCache()
	pool := newBlockingPool(cfg.MaxBlockingWorkers)

	return &Registry{
		client:   cfg.Client,
		codec:    codec,
		logger:   logger,
		pool:     pool,
		cache:    cache,
		engine:   newEngine(cfg.Client, codec, cache, pool, logger),
		watchers: make(map[*Watcher]struct{}),
	}
}

// Register publishes ins to the coordination tree. Ephemeral vs.
// persistent semantics follow ins.Dynamic().
func (r *Registry) Register(ctx context.Context, ins *Instance) error {
	if err := ins.Validate(); err != nil {
		return newValidationError("Registry.Register", err)
	}
	if r.isClosed() {
		return ErrClosed
	}
	return r.engine.Register(ctx, ins)
}

// Deregister removes ins's leaf from the coordination tree.
func (r *Registry) Deregister(ctx context.Context, ins *Instance) error {
	if r.isClosed() {
		return ErrClosed
	}
	return r.engine.Deregister(ctx, ins)
}

// Watch subscribes to appid's membership. The returned Watcher is
// already bootstrapped (its initial snapshot has been fetched and emitted
// as Create events) by the time Watch returns.
func (r *Registry) Watch(ctx context.Context, appid string) (*Watcher, error) {
	if r.isClosed() {
		return nil, ErrClosed
	}

	w := newWatcher(appid, r.client, r.codec, r.pool, r.logger)
	if err := w.start(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = w.Close()
		return nil, ErrClosed
	}
	r.watchers[w] = struct{}{}
	r.mu.Unlock()

	return w, nil
}

// Close terminates every Watcher created by this Registry and marks it
// closed; subsequent Register/Deregister/Watch calls return ErrClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	watchers := make([]*Watcher, 0, len(r.watchers))
	for w := range r.watchers {
		watchers = append(watchers, w)
	}
	r.watchers = nil
	r.mu.Unlock()

	for _, w := range watchers {
		_ = w.Close()
	}
	return nil
}

func (r *Registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
