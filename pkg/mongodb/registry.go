package mongodb

import (
	"context"
	"sync"

	"github.com/redbco/mongostore/pkg/resource"
)

// DeferredAction is a queued unit of work that completes one store's wiring
// once the connection for its identity is ready. Actions for an identity run
// in the order they were queued, sequentially.
type DeferredAction func(*Handle)

// Registry tracks, per canonical target identity, either the live connection
// handle or the ordered actions awaiting one. At any time an identity is in
// exactly one of three states: no handle and no queue, no handle and a
// non-empty queue, or a handle and no queue.
//
// Both maps share one mutex; contention is low since the registry is only
// touched during construction and teardown.
type Registry struct {
	handles  map[string]*Handle
	deferred map[string][]DeferredAction
	mu       sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handles:  make(map[string]*Handle),
		deferred: make(map[string][]DeferredAction),
	}
}

// Lookup returns the live handle registered for identity, if any.
func (r *Registry) Lookup(identity string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.handles[identity]
	return handle, ok
}

// Register installs handle for identity. Registration is first-wins: when a
// handle is already present, the existing one is returned and installed
// reports false. Later opens for the same identity reuse, never overwrite.
func (r *Registry) Register(identity string, handle *Handle) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.handles[identity]; ok {
		return existing, false
	}

	r.handles[identity] = handle
	return handle, true
}

// Defer appends action to the queue for identity, creating the queue if
// absent. Actions are only queued while no handle is registered; if one is
// already present it is returned with ready true and the action is not
// queued.
func (r *Registry) Defer(identity string, action DeferredAction) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle, ok := r.handles[identity]; ok {
		return handle, true
	}

	r.deferred[identity] = append(r.deferred[identity], action)
	return nil, false
}

// TakeDeferred removes and returns the queued actions for identity in FIFO
// order, deleting the queue. The caller must run each action to completion
// before the next, since later actions may depend on state set by earlier
// ones.
func (r *Registry) TakeDeferred(identity string) []DeferredAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	actions := r.deferred[identity]
	delete(r.deferred, identity)
	return actions
}

// PendingDeferred returns the number of actions queued for identity.
func (r *Registry) PendingDeferred(identity string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.deferred[identity])
}

// Identities returns the identities with a registered handle.
func (r *Registry) Identities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	identities := make([]string, 0, len(r.handles))
	for identity := range r.handles {
		identities = append(identities, identity)
	}

	return identities
}

// Close disconnects every registered handle and resets the registry. It is
// meant for host-application shutdown only; individual stores never close
// the shared handles (their lifetime is the process lifetime).
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.deferred = make(map[string][]DeferredAction)
	r.mu.Unlock()

	var firstErr error
	for _, handle := range handles {
		if handle.client == nil {
			continue
		}
		if err := handle.client.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = resource.NewConnectionError(handle.spec.Host, handle.spec.Port, handle.spec.Database, err)
		}
	}

	return firstErr
}

// globalRegistry is the default process-wide registry.
var globalRegistry = NewRegistry()

// GlobalRegistry returns the process-wide registry used by stores
// constructed without WithRegistry.
func GlobalRegistry() *Registry {
	return globalRegistry
}
