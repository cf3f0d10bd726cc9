package discover

import (
	"context"
	"errors"
)

// Sentinel errors CoordClient implementations use to signal the two
// tolerated conditions the registration engine checks for: a node that
// already exists (tolerated on ancestor creation, fatal on leaf creation)
// and a node that does not exist (fatal on delete).
var (
	ErrNodeExists = errors.New("coord: node already exists")
	ErrNoNode     = errors.New("coord: node does not exist")
)

// CreateMode selects ephemeral vs. persistent node semantics.
type CreateMode int

const (
	// Persistent nodes survive session end; removed only by explicit Delete.
	Persistent CreateMode = iota

	// Ephemeral nodes are deleted automatically when the session that
	// created them ends.
	Ephemeral
)

func (m CreateMode) String() string {
	if m == Ephemeral {
		return "ephemeral"
	}
	return "persistent"
}

// EventType enumerates the kinds of change a CoordClient watch callback may
// report.
type EventType int

const (
	EventUnknown EventType = iota
	EventNodeCreated
	EventNodeDeleted
	EventNodeChildrenChanged
	EventNodeDataChanged

	// EventSessionEnded reports that the session or connection backing the
	// watch has died; the watch is dead and will never fire again.
	// Implementations must deliver it from every terminal path of a watch
	// so owners can tear down instead of waiting on a watch that cannot
	// fire.
	EventSessionEnded
)

// WatchedEvent is delivered to a WatchCallback at most once per
// installation; observing further changes requires reinstalling the watch.
type WatchedEvent struct {
	Type EventType
	Path string
}

// WatchCallback observes a one-shot watch firing. Callbacks run on threads
// owned by the CoordClient implementation and must stay short: reinstall a
// watch, post to a channel, nothing that blocks.
type WatchCallback func(WatchedEvent)

// Stat is the minimal node metadata CoordClient.Exists/ExistsW report.
// Fields beyond existence are not used by this package's engines but are
// exposed for callers that need them (e.g. version for conditional writes
// outside this library's scope).
type Stat struct {
	Version int64
}

// CoordClient is the library's only external collaborator for actual
// coordination-tree I/O. The etcdcoord subpackage provides one concrete
// backend, but any implementation satisfying this interface can be
// substituted at Registry construction time.
//
// Every method is blocking. Register, Deregister, and the initial watch
// bootstrap dispatch their calls through a bounded blocking-worker pool;
// watch callbacks re-install their watches (GetChildrenW, ExistsW) inline
// on the callback thread.
type CoordClient interface {
	// Exists reports whether path exists, returning (nil, nil) if absent.
	Exists(ctx context.Context, path string) (*Stat, error)

	// ExistsW is like Exists but additionally installs a one-shot watch
	// that fires cb on the next relevant change to path.
	ExistsW(ctx context.Context, path string, cb WatchCallback) (*Stat, error)

	// GetChildrenW lists the direct children of path and installs a
	// one-shot watch that fires cb on the next children-set change.
	GetChildrenW(ctx context.Context, path string, cb WatchCallback) ([]string, error)

	// Create writes data at path with the open ACL and the given mode.
	// Returns an error if path already exists.
	Create(ctx context.Context, path string, data []byte, mode CreateMode) error

	// Delete removes path, ignoring version. Returns an error if path does
	// not exist.
	Delete(ctx context.Context, path string) error
}
