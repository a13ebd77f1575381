package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"github.com/redbco/mongostore/pkg/logging"
	"github.com/redbco/mongostore/pkg/resource"
)

// storeName identifies this binding in wrapped store errors.
const storeName = "mongodb"

// defaultConnectTimeout bounds the connect-and-verify phase of an open.
const defaultConnectTimeout = 10 * time.Second

// State describes where a store is in its connection lifecycle.
type State string

const (
	StateUnconnected    State = "unconnected"
	StateConnecting     State = "connecting"
	StateAuthenticating State = "authenticating"
	StateReady          State = "ready"
	StateFailed         State = "failed"
)

// Handle is an established connection to one logical target, shared by every
// store constructed against that target's identity. Stores hold it as a
// capability: they never close or mutate it.
type Handle struct {
	client *mongo.Client
	db     *mongo.Database
	spec   ConnectionSpec
}

// Client returns the underlying driver client.
// Use this only for operations not covered by the store surface.
func (h *Handle) Client() *mongo.Client {
	return h.client
}

// Database returns the underlying driver database.
func (h *Handle) Database() *mongo.Database {
	return h.db
}

// Spec returns the resolved spec the handle was opened with.
func (h *Handle) Spec() ConnectionSpec {
	return h.spec
}

// Store binds one collection of one logical target and implements the
// resource store contract. Stores sharing a target identity share one
// connection handle; each store memoizes its own collection handle lazily.
type Store struct {
	id       string
	cfg      Config
	spec     ConnectionSpec
	registry *Registry
	logger   logging.Logger
	timeout  time.Duration

	mu    sync.Mutex
	state State
	conn  *Handle
	coll  *mongo.Collection
	err   error
	ready chan struct{}
}

var _ resource.Store = (*Store)(nil)

// Option configures a Store during construction.
type Option func(*Store) error

// WithLogger sets the store's logger. The default discards all output.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return resource.NewConfigurationError("logger", "must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithRegistry binds the store to a registry other than the process-wide
// default. Stores only share connections within one registry.
func WithRegistry(registry *Registry) Option {
	return func(s *Store) error {
		if registry == nil {
			return resource.NewConfigurationError("registry", "must not be nil")
		}
		s.registry = registry
		return nil
	}
}

// WithConnectTimeout bounds the connect-and-verify phase of an open.
// The default is 10 seconds.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Store) error {
		if d <= 0 {
			return resource.NewConfigurationError("connect timeout", "must be positive")
		}
		s.timeout = d
		return nil
	}
}

// New constructs a store for cfg, taking exactly one of three paths:
//
//   - Reuse: the registry already holds a handle for the target identity;
//     the store is ready on return.
//   - Open: no handle exists and cfg.OnConnect is set; the connection is
//     opened, verified, registered, the identity's deferred queue drained in
//     order, and OnConnect invoked with nil. On failure the store fails,
//     OnConnect receives the error, and New returns it.
//   - Defer: no handle exists and no OnConnect is set; the store queues
//     itself and is wired once another store's open drains the queue.
//     Operations issued before then block until wiring or context end.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	cfg, spec, err := ResolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		id:       uuid.New().String(),
		cfg:      cfg,
		spec:     spec,
		registry: globalRegistry,
		logger:   logging.Nop(),
		timeout:  defaultConnectTimeout,
		state:    StateUnconnected,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	// Reuse: another store already opened this target.
	if handle, ok := s.registry.Lookup(spec.Identity); ok {
		s.attach(handle)
		s.logger.Debug("store %s reusing connection for %s", s.id, spec.Address())
		return s, nil
	}

	// Defer: without OnConnect this store waits for another store's open.
	if cfg.OnConnect == nil {
		if handle, ready := s.registry.Defer(spec.Identity, s.attach); ready {
			s.attach(handle)
			return s, nil
		}
		s.logger.Debug("store %s queued awaiting connection for %s", s.id, spec.Address())
		return s, nil
	}

	// Open.
	handle, err := s.open(ctx)
	if err != nil {
		s.fail(err)
		s.logger.Error("store %s failed to open %s: %v", s.id, spec.Address(), err)
		cfg.OnConnect(err)
		return nil, err
	}

	winner, installed := s.registry.Register(spec.Identity, handle)
	if !installed {
		// Lost the open race; reuse the registered handle, drop ours.
		_ = handle.client.Disconnect(context.Background())
		handle = winner
	}
	s.attach(handle)

	if installed {
		actions := s.registry.TakeDeferred(spec.Identity)
		for _, action := range actions {
			action(handle)
		}
		if len(actions) > 0 {
			s.logger.Info("drained %d deferred store(s) for %s", len(actions), spec.Address())
		}
	}

	cfg.OnConnect(nil)
	return s, nil
}

// open establishes and verifies a new connection for the store's spec.
func (s *Store) open(ctx context.Context) (*Handle, error) {
	s.setState(StateConnecting)
	s.logger.Info("store %s connecting to %s", s.id, s.spec.Address())

	clientOptions := options.Client().ApplyURI(s.spec.clientURI())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, resource.NewConnectionError(s.spec.Host, s.spec.Port, s.spec.Database, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// The verification ping performs the handshake; with credentials present
	// it is also the authentication step.
	if s.spec.HasAuth() {
		s.setState(StateAuthenticating)
	}
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		if s.spec.HasAuth() && isAuthError(err) {
			return nil, resource.NewAuthenticationError(s.spec.Username, s.spec.Host, err)
		}
		return nil, resource.NewConnectionError(s.spec.Host, s.spec.Port, s.spec.Database, err)
	}

	db := client.Database(s.spec.Database)

	return &Handle{client: client, db: db, spec: s.spec}, nil
}

// attach wires the shared handle into this store and signals readiness.
// It is also the store's deferred action; running it a second time is a
// no-op.
func (s *Store) attach(handle *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReady || s.state == StateFailed {
		return
	}

	s.conn = handle
	s.state = StateReady
	close(s.ready)
}

// fail records a terminal error and unblocks waiters.
func (s *Store) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReady || s.state == StateFailed {
		return
	}

	s.err = err
	s.state = StateFailed
	close(s.ready)
}

func (s *Store) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// awaitReady blocks until the store is wired, has failed, or ctx ends.
// Operations on a deferred store park here until another store's open drains
// the queue.
func (s *Store) awaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return fmt.Errorf("%w: awaiting connection for %s: %w", resource.ErrNotConnected, s.spec.Address(), ctx.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFailed {
		return s.err
	}

	return nil
}

// collection lazily resolves and memoizes the store's collection handle,
// applying the write concern the safe flag asks for. Failures are returned,
// never memoized; a later call may succeed.
func (s *Store) collection() (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coll != nil {
		return s.coll, nil
	}

	if s.state != StateReady || s.conn == nil {
		return nil, fmt.Errorf("%w: no connection for %s", resource.ErrNotConnected, s.spec.Address())
	}
	if s.cfg.Collection == "" {
		return nil, resource.NewConfigurationError("collection", "no collection name configured for this store")
	}

	wc := writeconcern.Unacknowledged()
	if s.spec.Safe {
		wc = writeconcern.W1()
	}
	s.coll = s.conn.db.Collection(s.cfg.Collection, options.Collection().SetWriteConcern(wc))

	return s.coll, nil
}

// handle returns the shared connection handle, or nil before wiring.
func (s *Store) handle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// ID returns the store's instance id. Distinct per construction, even for
// stores sharing a connection.
func (s *Store) ID() string {
	return s.id
}

// Spec returns the resolved connection spec.
func (s *Store) Spec() ConnectionSpec {
	return s.spec
}

// State reports the store's connection lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether the store is ready with a live handle.
func (s *Store) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateReady && s.conn != nil
}

// Ready returns a channel closed once the store is wired or has failed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Err returns the terminal error if the store has failed, else nil.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Ping verifies the shared connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}

	if err := s.handle().client.Ping(ctx, readpref.Primary()); err != nil {
		return resource.WrapError(storeName, "ping", err)
	}

	return nil
}

// isAuthError reports whether a handshake error means the server rejected
// the credentials rather than the connection.
func isAuthError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 18 || cmdErr.Name == "AuthenticationFailed"
	}

	msg := err.Error()
	return strings.Contains(msg, "auth error") || strings.Contains(msg, "Authentication failed")
}
