package discover

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestRegistry(client CoordClient) *Registry {
	return NewRegistry(Config{Client: client})
}

func TestRegistryRegisterRejectsInvalidInstance(t *testing.T) {
	r := newTestRegistry(newFakeCreateDeleteClient())
	err := r.Register(context.Background(), &Instance{Appid: "missing-leading-slash"})
	require.Error(t, err)
}

func TestRegistryRegisterCreatesAncestorsThenLeaf(t *testing.T) {
	client := newFakeCreateDeleteClient()
	r := newTestRegistry(client)

	ins := &Instance{Appid: "/org/provider", Version: "1", Env: "prod", Addrs: []string{"http://a"}}
	require.NoError(t, r.Register(context.Background(), ins))

	require.Contains(t, client.created, "/org")
	require.Contains(t, client.created, "/org/provider")

	leaf, err := DefaultCodec{}.Encode(ins)
	require.NoError(t, err)
	leafPath := "/org/provider/" + string(leaf)
	require.Equal(t, Ephemeral, client.createdMode[leafPath])
}

func TestRegistryRegisterPersistentWhenDynamicFalse(t *testing.T) {
	client := newFakeCreateDeleteClient()
	r := newTestRegistry(client)

	ins := &Instance{
		Appid:    "/org/provider",
		Version:  "1",
		Env:      "prod",
		Metadata: map[string]string{"dynamic": "false"},
	}
	require.NoError(t, r.Register(context.Background(), ins))

	leaf, err := DefaultCodec{}.Encode(ins)
	require.NoError(t, err)
	leafPath := "/org/provider/" + string(leaf)
	require.Equal(t, Persistent, client.createdMode[leafPath])
}

func TestRegistryRegisterTwiceFailsWithLeafExists(t *testing.T) {
	client := newFakeCreateDeleteClient()
	r := newTestRegistry(client)

	ins := &Instance{Appid: "/org/provider", Version: "1", Env: "prod"}
	require.NoError(t, r.Register(context.Background(), ins))

	err := r.Register(context.Background(), ins)
	require.ErrorIs(t, err, ErrLeafExists)
}

func TestRegistryDeregisterUnknownInstanceFails(t *testing.T) {
	client := newFakeCreateDeleteClient()
	r := newTestRegistry(client)

	ins := &Instance{Appid: "/org/provider", Version: "1", Env: "prod"}
	err := r.Deregister(context.Background(), ins)
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestRegistryDeregisterDeletesLeaf(t *testing.T) {
	client := newFakeCreateDeleteClient()
	r := newTestRegistry(client)

	ins := &Instance{Appid: "/org/provider", Version: "1", Env: "prod"}
	require.NoError(t, r.Register(context.Background(), ins))
	require.NoError(t, r.Deregister(context.Background(), ins))

	leaf, err := DefaultCodec{}.Encode(ins)
	require.NoError(t, err)
	leafPath := "/org/provider/" + string(leaf)
	require.Contains(t, client.deleted, leafPath)
}

func TestRegistryOperationsFailAfterClose(t *testing.T) {
	client := newFakeCreateDeleteClient()
	r := newTestRegistry(client)
	require.NoError(t, r.Close())

	ins := &Instance{Appid: "/org/provider", Version: "1", Env: "prod"}
	require.ErrorIs(t, r.Register(context.Background(), ins), ErrClosed)
	require.ErrorIs(t, r.Deregister(context.Background(), ins), ErrClosed)
	_, err := r.Watch(context.Background(), "/org/provider")
	require.ErrorIs(t, err, ErrClosed)
}

func TestRegistryCloseTerminatesOutstandingWatchers(t *testing.T) {
	client := newFakeCoordClient()
	r := newTestRegistry(client)

	w, err := r.Watch(context.Background(), "/org/provider")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = w.Next(ctx)
	require.ErrorIs(t, err, ErrTerminated)
}

// fakeCreateDeleteClient is a CoordClient double focused on Register/
// Deregister's Create/Delete call pattern (ancestor ensure + leaf write),
// distinct from fakeCoordClient's watch-focused double in watch_test.go.
type fakeCreateDeleteClient struct {
	created     map[string]bool
	createdMode map[string]CreateMode
	deleted     map[string]bool
}

func newFakeCreateDeleteClient() *fakeCreateDeleteClient {
	return &fakeCreateDeleteClient{
		created:     make(map[string]bool),
		createdMode: make(map[string]CreateMode),
		deleted:     make(map[string]bool),
	}
}

func (f *fakeCreateDeleteClient) Exists(context.Context, string) (*Stat, error) { return nil, nil }
func (f *fakeCreateDeleteClient) ExistsW(context.Context, string, WatchCallback) (*Stat, error) {
	return nil, nil
}
func (f *fakeCreateDeleteClient) GetChildrenW(context.Context, string, WatchCallback) ([]string, error) {
	return nil, nil
}

func (f *fakeCreateDeleteClient) Create(_ context.Context, path string, _ []byte, mode CreateMode) error {
	if f.created[path] {
		return ErrNodeExists
	}
	f.created[path] = true
	f.createdMode[path] = mode
	return nil
}

func (f *fakeCreateDeleteClient) Delete(_ context.Context, path string) error {
	if !f.created[path] {
		return ErrNoNode
	}
	f.deleted[path] = true
	return nil
}
