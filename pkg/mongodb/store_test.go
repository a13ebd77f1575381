package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/redbco/mongostore/pkg/resource"
)

func TestNewReusesRegisteredConnection(t *testing.T) {
	registry := NewRegistry()
	cfg := Config{Collection: "things", URI: "localhost:27017/testdb"}

	_, spec, err := ResolveConfig(cfg)
	assert.NoError(t, err)

	shared := &Handle{spec: spec}
	registry.Register(spec.Identity, shared)

	store, err := New(context.Background(), cfg, WithRegistry(registry))
	assert.NoError(t, err)
	assert.True(t, store.IsConnected())
	assert.Equal(t, StateReady, store.State())
	assert.Same(t, shared, store.handle())
	assert.Equal(t, spec.Identity, store.Spec().Identity)

	// A differently expressed configuration with the same identity shares
	// the handle without a second open
	other, err := New(context.Background(), Config{Collection: "widgets", Host: "localhost", Database: "testdb"}, WithRegistry(registry))
	assert.NoError(t, err)
	assert.True(t, other.IsConnected())
	assert.Same(t, shared, other.handle())
	assert.NotEqual(t, store.ID(), other.ID())

	// Reuse wins over Open: the callback never fires when a handle exists
	called := false
	reused, err := New(context.Background(), Config{
		Collection: "things",
		URI:        "localhost:27017/testdb",
		OnConnect:  func(error) { called = true },
	}, WithRegistry(registry))
	assert.NoError(t, err)
	assert.True(t, reused.IsConnected())
	assert.False(t, called)
}

func TestNewDefersWithoutCallback(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	cfg := Config{Collection: "things", URI: "localhost:27017/testdb"}
	_, spec, err := ResolveConfig(cfg)
	assert.NoError(t, err)

	first, err := New(ctx, cfg, WithRegistry(registry))
	assert.NoError(t, err)
	second, err := New(ctx, Config{Collection: "widgets", URI: "localhost:27017/testdb"}, WithRegistry(registry))
	assert.NoError(t, err)

	assert.Equal(t, StateUnconnected, first.State())
	assert.False(t, first.IsConnected())
	assert.Nil(t, first.Err())
	assert.Equal(t, 2, registry.PendingDeferred(spec.Identity))

	// Ready channels stay open until an open for this identity drains the
	// queue
	select {
	case <-first.Ready():
		t.Fatal("store became ready before the queue drained")
	default:
	}

	// Simulate an opening store finishing its connect
	shared := &Handle{spec: spec}
	registry.Register(spec.Identity, shared)
	for _, action := range registry.TakeDeferred(spec.Identity) {
		action(shared)
	}

	assert.True(t, first.IsConnected())
	assert.True(t, second.IsConnected())
	assert.Same(t, shared, first.handle())
	assert.Same(t, shared, second.handle())

	select {
	case <-first.Ready():
	default:
		t.Fatal("ready channel still open after drain")
	}
}

func TestOperationsAwaitWiring(t *testing.T) {
	registry := NewRegistry()

	store, err := New(context.Background(), Config{Collection: "things"}, WithRegistry(registry))
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = store.Get(ctx, "507f1f77bcf86cd799439011")
	assert.ErrorIs(t, err, resource.ErrNotConnected)

	err = store.Ping(ctx)
	assert.ErrorIs(t, err, resource.ErrNotConnected)
}

func TestNewFailedOpen(t *testing.T) {
	registry := NewRegistry()

	var callbackErr error
	called := false
	cfg := Config{
		Collection: "things",
		// Port 1 never hosts a server; the verification ping fails within
		// the connect timeout.
		URI: "127.0.0.1:1/testdb",
		OnConnect: func(err error) {
			called = true
			callbackErr = err
		},
	}

	store, err := New(context.Background(), cfg, WithRegistry(registry), WithConnectTimeout(100*time.Millisecond))
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.True(t, called)
	assert.Equal(t, err, callbackErr)
	assert.True(t, resource.IsConnectionError(err))

	// A failed open registers nothing
	_, spec, specErr := ResolveConfig(cfg)
	assert.NoError(t, specErr)
	_, ok := registry.Lookup(spec.Identity)
	assert.False(t, ok)
}

func TestFailedOpenLeavesDeferredQueue(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	deferredCfg := Config{Collection: "things", URI: "127.0.0.1:1/testdb"}
	_, spec, err := ResolveConfig(deferredCfg)
	assert.NoError(t, err)

	waiting, err := New(ctx, deferredCfg, WithRegistry(registry))
	assert.NoError(t, err)
	assert.Equal(t, 1, registry.PendingDeferred(spec.Identity))

	opener := Config{Collection: "widgets", URI: "127.0.0.1:1/testdb", OnConnect: func(error) {}}
	_, err = New(ctx, opener, WithRegistry(registry), WithConnectTimeout(100*time.Millisecond))
	assert.Error(t, err)

	// The waiting store is untouched by the failed open; a later
	// successful open would still drain it
	assert.Equal(t, StateUnconnected, waiting.State())
	assert.Equal(t, 1, registry.PendingDeferred(spec.Identity))
}

func TestNewRejectsEmptyConfig(t *testing.T) {
	store, err := New(context.Background(), Config{})
	assert.Nil(t, store)
	assert.True(t, resource.IsConfigurationError(err))
}

func TestNewAcceptsCollectionFromURI(t *testing.T) {
	registry := NewRegistry()
	cfg := Config{URI: "localhost:27017/testdb?collection=users"}

	_, spec, err := ResolveConfig(cfg)
	assert.NoError(t, err)
	registry.Register(spec.Identity, &Handle{spec: spec})

	store, err := New(context.Background(), cfg, WithRegistry(registry))
	assert.NoError(t, err)
	assert.True(t, store.IsConnected())
	assert.Equal(t, "users", store.cfg.Collection)
}

func TestOptionValidation(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Collection: "things"}

	_, err := New(ctx, cfg, WithLogger(nil))
	assert.True(t, resource.IsConfigurationError(err))

	_, err = New(ctx, cfg, WithRegistry(nil))
	assert.True(t, resource.IsConfigurationError(err))

	_, err = New(ctx, cfg, WithConnectTimeout(0))
	assert.True(t, resource.IsConfigurationError(err))
}
