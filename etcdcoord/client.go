// Package etcdcoord is a CoordClient backend (discover.CoordClient) over an
// etcd cluster. It is one pluggable implementation among others; nothing in
// the parent package imports it directly.
//
// The mapping from the ZooKeeper-shaped coordination tree this library's
// engines assume onto etcd's flat key/value + lease model:
//
//   - A node (ancestor or leaf) is an etcd key. Persistent nodes are
//     written with no lease. Ephemeral nodes are written under this
//     Client's own session lease, so they disappear automatically when the
//     lease expires or is revoked, etcd's lease lifetime standing in for
//     a ZooKeeper session.
//   - ExistsW/GetChildrenW's one-shot watch contract is implemented by
//     spawning a goroutine over clientv3's inherently continuous Watch
//     stream that delivers exactly the first event and then cancels its
//     own watch context.
package etcdcoord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/zero-day-ai/discover"
)

const sessionTTLSeconds = 30

// Config configures a Client.
type Config struct {
	// Endpoints lists etcd cluster member addresses. Required.
	Endpoints []string

	// DialTimeout bounds the initial connection attempt. Defaults to 5s.
	DialTimeout time.Duration

	// TLS enables mutual TLS to the etcd cluster. Optional.
	TLS *TLSConfig

	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client implements discover.CoordClient over an etcd cluster.
type Client struct {
	cli    *clientv3.Client
	logger *slog.Logger

	sessionLease    clientv3.LeaseID
	keepaliveCancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	closedChan chan struct{}
	wg         sync.WaitGroup
}

// New connects to the etcd cluster described by cfg and starts the session
// lease used for ephemeral nodes.
func New(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcdcoord: endpoints cannot be empty")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	}
	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsCfg, err := cfg.TLS.clientConfig()
		if err != nil {
			return nil, fmt.Errorf("etcdcoord: configuring TLS: %w", err)
		}
		clientCfg.TLS = tlsCfg
	}

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("etcdcoord: failed to create etcd client: %w", err)
	}

	healthCtx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if _, err := cli.Get(healthCtx, "health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcdcoord: health check failed: %w", err)
	}

	leaseResp, err := cli.Grant(context.Background(), sessionTTLSeconds)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("etcdcoord: failed to create session lease: %w", err)
	}

	keepCtx, keepCancel := context.WithCancel(context.Background())
	c := &Client{
		cli:             cli,
		logger:          logger,
		sessionLease:    leaseResp.ID,
		keepaliveCancel: keepCancel,
		closedChan:      make(chan struct{}),
	}

	c.wg.Add(1)
	go c.keepalive(keepCtx, leaseResp.ID)

	return c, nil
}

// keepalive renews the session lease every TTL/3 seconds.
func (c *Client) keepalive(ctx context.Context, id clientv3.LeaseID) {
	defer c.wg.Done()

	interval := sessionTTLSeconds * time.Second / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.cli.KeepAliveOnce(context.Background(), id); err != nil {
				c.logger.Warn("session lease keepalive failed", slog.Any("error", err))
				return
			}
		}
	}
}

// Exists implements discover.CoordClient.
func (c *Client) Exists(ctx context.Context, path string) (*discover.Stat, error) {
	resp, err := c.cli.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("etcdcoord: get %s: %w", path, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	return &discover.Stat{Version: resp.Kvs[0].Version}, nil
}

// ExistsW implements discover.CoordClient.
func (c *Client) ExistsW(ctx context.Context, path string, cb discover.WatchCallback) (*discover.Stat, error) {
	stat, err := c.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	c.installOneShot(path, false, cb)
	return stat, nil
}

// GetChildrenW implements discover.CoordClient. Only direct children of
// path are returned, even though etcd's prefix query can surface deeper
// descendants; this library's trees never nest leaves under leaves, but
// the truncation keeps the contract honest regardless.
func (c *Client) GetChildrenW(ctx context.Context, path string, cb discover.WatchCallback) ([]string, error) {
	prefix := path + "/"
	resp, err := c.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcdcoord: get children %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(resp.Kvs))
	children := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		rest := strings.TrimPrefix(string(kv.Key), prefix)
		if rest == "" {
			continue
		}
		child := rest
		if idx := strings.Index(rest, "/"); idx >= 0 {
			child = rest[:idx]
		}
		if _, ok := seen[child]; ok {
			continue
		}
		seen[child] = struct{}{}
		children = append(children, child)
	}

	c.installOneShot(path, true, cb)
	return children, nil
}

// Create implements discover.CoordClient. Ephemeral nodes are written
// under this Client's session lease (see package doc); persistent nodes
// carry no lease.
func (c *Client) Create(ctx context.Context, path string, data []byte, mode discover.CreateMode) error {
	existing, err := c.cli.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("etcdcoord: get %s: %w", path, err)
	}
	if len(existing.Kvs) > 0 {
		return discover.ErrNodeExists
	}

	var opts []clientv3.OpOption
	if mode == discover.Ephemeral {
		opts = append(opts, clientv3.WithLease(c.sessionLease))
	}

	if _, err := c.cli.Put(ctx, path, string(data), opts...); err != nil {
		return fmt.Errorf("etcdcoord: put %s: %w", path, err)
	}
	return nil
}

// Delete implements discover.CoordClient.
func (c *Client) Delete(ctx context.Context, path string) error {
	existing, err := c.cli.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("etcdcoord: get %s: %w", path, err)
	}
	if len(existing.Kvs) == 0 {
		return discover.ErrNoNode
	}

	if _, err := c.cli.Delete(ctx, path); err != nil {
		return fmt.Errorf("etcdcoord: delete %s: %w", path, err)
	}
	return nil
}

// installOneShot spawns a goroutine that delivers exactly the first
// relevant event on path (or path's immediate children, if isChildren) to
// cb, then stops watching. Terminal conditions (client closed, watch
// channel closed, watch error) are delivered as EventSessionEnded rather
// than swallowed, so the watch's owner can tear down instead of blocking
// forever on a watch that will never fire.
func (c *Client) installOneShot(path string, isChildren bool, cb discover.WatchCallback) {
	watchCtx, cancel := context.WithCancel(context.Background())

	watchKey := path
	var opts []clientv3.OpOption
	if isChildren {
		watchKey = path + "/"
		opts = append(opts, clientv3.WithPrefix())
	}

	watchID := uuid.NewString()
	watchCh := c.cli.Watch(watchCtx, watchKey, opts...)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		for {
			select {
			case <-c.closedChan:
				cb(discover.WatchedEvent{Type: discover.EventSessionEnded, Path: path})
				return
			case resp, ok := <-watchCh:
				if !ok {
					cb(discover.WatchedEvent{Type: discover.EventSessionEnded, Path: path})
					return
				}
				if resp.Err() != nil {
					c.logger.Warn("watch stream error",
						slog.String("watch_id", watchID), slog.String("path", path), slog.Any("error", resp.Err()))
					cb(discover.WatchedEvent{Type: discover.EventSessionEnded, Path: path})
					return
				}
				if len(resp.Events) == 0 {
					continue
				}

				evType := discover.EventNodeChildrenChanged
				if !isChildren {
					if resp.Events[0].Type == clientv3.EventTypeDelete {
						evType = discover.EventNodeDeleted
					} else {
						evType = discover.EventNodeCreated
					}
				}

				cb(discover.WatchedEvent{Type: evType, Path: path})
				return
			}
		}
	}()
}

// Close releases the session lease (deleting every ephemeral node created
// under it) and closes the underlying etcd client.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closedChan)
	c.mu.Unlock()

	c.keepaliveCancel()
	c.wg.Wait()

	if _, err := c.cli.Revoke(context.Background(), c.sessionLease); err != nil {
		c.logger.Warn("failed to revoke session lease", slog.Any("error", err))
	}
	return c.cli.Close()
}
