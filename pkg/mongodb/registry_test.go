package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	identity := "mongodb://localhost:27017/testdb"

	// Nothing registered yet
	_, ok := registry.Lookup(identity)
	assert.False(t, ok)

	// First registration wins
	first := &Handle{}
	winner, installed := registry.Register(identity, first)
	assert.True(t, installed)
	assert.Same(t, first, winner)

	found, ok := registry.Lookup(identity)
	assert.True(t, ok)
	assert.Same(t, first, found)

	// A second registration keeps the existing handle
	second := &Handle{}
	winner, installed = registry.Register(identity, second)
	assert.False(t, installed)
	assert.Same(t, first, winner)

	found, ok = registry.Lookup(identity)
	assert.True(t, ok)
	assert.Same(t, first, found)

	// Deferring against a registered identity hands back the handle
	// without queueing
	handle, ready := registry.Defer(identity, func(*Handle) {})
	assert.True(t, ready)
	assert.Same(t, first, handle)
	assert.Equal(t, 0, registry.PendingDeferred(identity))
}

func TestRegistryDeferredOrder(t *testing.T) {
	registry := NewRegistry()
	identity := "mongodb://localhost:27017/testdb"

	var ran []int
	for i := 0; i < 3; i++ {
		i := i
		handle, ready := registry.Defer(identity, func(*Handle) {
			ran = append(ran, i)
		})
		assert.False(t, ready)
		assert.Nil(t, handle)
	}
	assert.Equal(t, 3, registry.PendingDeferred(identity))

	// Drain runs actions in the order they were queued
	shared := &Handle{}
	_, installed := registry.Register(identity, shared)
	assert.True(t, installed)

	actions := registry.TakeDeferred(identity)
	assert.Len(t, actions, 3)
	for _, action := range actions {
		action(shared)
	}
	assert.Equal(t, []int{0, 1, 2}, ran)

	// The queue is gone once taken
	assert.Equal(t, 0, registry.PendingDeferred(identity))
	assert.Empty(t, registry.TakeDeferred(identity))
}

func TestRegistryIdentities(t *testing.T) {
	registry := NewRegistry()

	assert.Empty(t, registry.Identities())

	registry.Register("mongodb://localhost:27017/first", &Handle{})
	registry.Register("mongodb://localhost:27017/second", &Handle{})

	assert.ElementsMatch(t, []string{
		"mongodb://localhost:27017/first",
		"mongodb://localhost:27017/second",
	}, registry.Identities())
}

func TestRegistryClose(t *testing.T) {
	registry := NewRegistry()
	identity := "mongodb://localhost:27017/testdb"

	registry.Register(identity, &Handle{})
	registry.Defer("mongodb://localhost:27017/other", func(*Handle) {})

	err := registry.Close(context.Background())
	assert.NoError(t, err)

	// Close resets both the handles and the queues
	_, ok := registry.Lookup(identity)
	assert.False(t, ok)
	assert.Equal(t, 0, registry.PendingDeferred("mongodb://localhost:27017/other"))
	assert.Empty(t, registry.Identities())
}
