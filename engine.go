package discover

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// engine is the registration engine: it encodes an Instance into a
// coordination-tree path, creates missing ancestor nodes exactly once, and
// writes the leaf with ephemeral or persistent semantics. Symmetrically, it
// removes the leaf on deregister.
type engine struct {
	client CoordClient
	codec  Codec
	cache  *ancestorCache
	pool   *blockingPool
	logger *slog.Logger
}

func newEngine(client CoordClient, codec Codec, cache *ancestorCache, pool *blockingPool, logger *slog.Logger) *engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &engine{client: client, codec: codec, cache: cache, pool: pool, logger: logger}
}

// leafPath re-derives the coordination-tree path for ins. The encoder must
// be deterministic so register and deregister agree on the same path for
// equal inputs.
func (e *engine) leafPath(ins *Instance) (string, error) {
	leaf, err := e.codec.Encode(ins)
	if err != nil {
		return "", err
	}
	return ins.Appid + "/" + string(leaf), nil
}

// ancestorsOf returns every prefix of path up to but excluding path itself.
// The root "/" is never included, so it is never created.
func ancestorsOf(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) <= 1 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	cur := ""
	for i := 0; i < len(parts)-1; i++ {
		cur += "/" + parts[i]
		out = append(out, cur)
	}
	return out
}

// ensureAncestor creates path as a persistent node if it is not already
// known to exist, tolerating "already exists".
func (e *engine) ensureAncestor(ctx context.Context, path string) error {
	if e.cache.has(path) {
		return nil
	}

	err := e.client.Create(ctx, path, nil, Persistent)
	if err == nil || errors.Is(err, ErrNodeExists) {
		e.cache.insert(path)
		return nil
	}
	return err
}

// Register ensures every ancestor of the instance's leaf path exists as a
// persistent node, then creates the leaf itself: ephemeral when the
// instance is dynamic, persistent otherwise. A leaf that already exists is
// an error; callers must Deregister first.
func (e *engine) Register(ctx context.Context, ins *Instance) error {
	path, err := e.leafPath(ins)
	if err != nil {
		return newEncodeError("engine.Register", err)
	}
	dynamic := ins.Dynamic()

	return e.pool.run(ctx, func() error {
		for _, ancestor := range ancestorsOf(path) {
			if err := e.ensureAncestor(ctx, ancestor); err != nil {
				return newCreatePathError("engine.Register", ancestor, err)
			}
		}

		mode := Persistent
		if dynamic {
			mode = Ephemeral
		}
		if err := e.client.Create(ctx, path, nil, mode); err != nil {
			if errors.Is(err, ErrNodeExists) {
				return newCreatePathError("engine.Register", path, ErrLeafExists)
			}
			return newCreatePathError("engine.Register", path, err)
		}
		return nil
	})
}

// Deregister removes the instance's leaf from the tree. The leaf path is
// inserted into the ancestor-exists cache before the delete is issued, so
// a register immediately following can short-circuit its ancestor work;
// re-creation of the leaf itself is still attempted.
func (e *engine) Deregister(ctx context.Context, ins *Instance) error {
	path, err := e.leafPath(ins)
	if err != nil {
		return newEncodeError("engine.Deregister", err)
	}

	e.cache.insert(path)

	return e.pool.run(ctx, func() error {
		if err := e.client.Delete(ctx, path); err != nil {
			if errors.Is(err, ErrNoNode) {
				return newDeletePathError("engine.Deregister", path, ErrNotRegistered)
			}
			return newDeletePathError("engine.Deregister", path, err)
		}
		return nil
	})
}
