package discover

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventKind distinguishes a peer appearing from a peer disappearing.
type EventKind int

const (
	EventCreate EventKind = iota
	EventDelete
)

func (k EventKind) String() string {
	if k == EventDelete {
		return "delete"
	}
	return "create"
}

// Event pairs an EventKind with the Instance it concerns.
type Event struct {
	Kind     EventKind
	Instance Instance
}

// WatchEvent is a single item in a watch stream: an Event plus the
// wall-clock time it was emitted.
type WatchEvent struct {
	Event     Event
	Timestamp time.Time
}

// Watcher maintains a recursive, self-rearming subscription on an
// application's child set plus per-child existence, diffing successive
// snapshots and surfacing a de-duplicated, ordered stream of WatchEvents.
// Construct one via Registry.Watch.
//
// The children watch alone is not enough: an ephemeral leaf can die
// without the parent's children list changing at the moment the watch is
// rearmed, so each child additionally carries its own existence watch.
type Watcher struct {
	appid  string
	client CoordClient
	codec  Codec
	pool   *blockingPool
	logger *slog.Logger

	mirror *rawMirror
	queue  *unboundedChan

	consumerMu  sync.Mutex
	consumerSet map[Identity]struct{}

	closeOnce sync.Once
}

func newWatcher(appid string, client CoordClient, codec Codec, pool *blockingPool, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		appid:       appid,
		client:      client,
		codec:       codec,
		pool:        pool,
		logger:      logger,
		mirror:      newRawMirror(),
		queue:       newUnboundedChan(),
		consumerSet: make(map[Identity]struct{}),
	}
}

// start bootstraps the subscription: it fetches the children list once
// (installing the children watch), seeds the raw mirror, and emits one
// Create per initial member. The fetch is blocking, so it is dispatched
// through the blocking pool like every other CoordClient call.
func (w *Watcher) start(ctx context.Context) error {
	return w.pool.run(ctx, func() error {
		children, err := w.client.GetChildrenW(ctx, w.appid, w.onChildrenChanged)
		if err != nil {
			return newUnavailableError("Watcher.start", err)
		}

		w.mirror.seed(children)
		for _, child := range children {
			w.emit(EventCreate, child)
			w.installChildWatch(child)
		}
		return nil
	})
}

// onChildrenChanged is the children-change watch callback. It runs on a
// coordinator-owned thread and rearms the children watch inline; the
// reinstall is blocking but callback threads are allowed to carry it.
//
// A session-ended event is terminal: the stream is terminated so a
// consumer blocked in Next observes ErrTerminated rather than waiting on
// a watch that will never fire again. On a transient fetch error the diff
// is skipped entirely, leaving the mirror untouched. Diffing against an
// empty set instead would emit a spurious Delete for every currently-known
// child.
func (w *Watcher) onChildrenChanged(we WatchedEvent) {
	if we.Type == EventSessionEnded {
		w.Terminate()
		return
	}

	children, err := w.client.GetChildrenW(context.Background(), w.appid, w.onChildrenChanged)
	if err != nil {
		w.logger.Warn("children fetch failed during rearm, skipping diff",
			slog.String("appid", w.appid), slog.Any("error", err))
		return
	}

	added, removed := w.mirror.diff(children)
	for _, child := range added {
		w.emit(EventCreate, child)
		w.installChildWatch(child)
	}
	for _, child := range removed {
		w.emit(EventDelete, child)
	}
}

// installChildWatch installs a per-child existence watch the first time a
// child is observed. If the child is already absent at install time it
// immediately emits a Delete.
func (w *Watcher) installChildWatch(child string) {
	if !w.mirror.markInstalled(child) {
		return
	}
	w.armChildExists(child)
}

// armChildExists installs (or re-installs) the existence watch for child
// and handles the immediate-absence case. The watch is one-shot, so
// onChildExists re-arms on every fire regardless of event type, except a
// session-ended event, which terminates the stream instead.
func (w *Watcher) armChildExists(child string) {
	path := w.appid + "/" + child
	stat, err := w.client.ExistsW(context.Background(), path, func(we WatchedEvent) {
		w.onChildExists(child, we)
	})
	if err != nil {
		w.logger.Warn("failed to install existence watch",
			slog.String("path", path), slog.Any("error", err))
		return
	}
	if stat == nil {
		w.emit(EventDelete, child)
	}
}

// onChildExists is the per-child existence-watch callback. A session-ended
// event terminates the stream and does not re-arm.
func (w *Watcher) onChildExists(child string, we WatchedEvent) {
	switch we.Type {
	case EventSessionEnded:
		w.Terminate()
		return
	case EventNodeCreated:
		w.emit(EventCreate, child)
	case EventNodeDeleted:
		w.emit(EventDelete, child)
	}
	w.armChildExists(child)
}

// emit decodes child (a raw path segment) and, on success, forwards it
// through the consumer-side de-duplication mirror. A decode failure is
// logged and dropped without aborting the stream; the raw name stays in
// the mirror so the same bad child is not re-reported on the next diff.
func (w *Watcher) emit(kind EventKind, child string) {
	ins, err := w.codec.Decode([]byte(child))
	if err != nil {
		w.logger.Warn("dropping child with undecodable name",
			slog.String("appid", w.appid), slog.String("child", child), slog.Any("error", err))
		return
	}
	w.deliver(kind, ins)
}

// deliver applies the consumer-side de-duplication rule: a Create for an
// Instance already present in the consumer mirror is dropped; a Delete for
// an Instance not present is dropped. Otherwise the mirror is updated and
// the event is queued for the consumer. This tolerates the children watch
// and a per-child existence watch both reporting the same transition.
func (w *Watcher) deliver(kind EventKind, ins *Instance) {
	id := ins.Identity()

	w.consumerMu.Lock()
	_, present := w.consumerSet[id]
	switch kind {
	case EventCreate:
		if present {
			w.consumerMu.Unlock()
			return
		}
		w.consumerSet[id] = struct{}{}
	case EventDelete:
		if !present {
			w.consumerMu.Unlock()
			return
		}
		delete(w.consumerSet, id)
	}
	w.consumerMu.Unlock()

	w.queue.send(WatchEvent{Event: Event{Kind: kind, Instance: *ins}, Timestamp: time.Now()})
}

// Next blocks until the next WatchEvent is available, ctx is canceled, or
// the stream has terminated. A terminated stream returns ErrTerminated
// once all buffered events have been drained.
func (w *Watcher) Next(ctx context.Context) (WatchEvent, error) {
	ev, ok := w.queue.recv(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return WatchEvent{}, err
		}
		return WatchEvent{}, newTerminatedError("Watcher.Next")
	}
	return ev, nil
}

// Terminate propagates the CoordClient session ending as a terminal event
// on the stream. No reconnection is attempted; callers must Watch again to
// re-subscribe. After Terminate, Next drains any buffered events and then
// returns ErrTerminated.
func (w *Watcher) Terminate() {
	w.queue.close()
}

// Close drops the consumer's receiver half: orphaned sender-side callbacks
// observe the closed queue and exit quietly rather than blocking or
// erroring.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.queue.close()
	})
	return nil
}
