// Package mongodb binds the resource store contract to MongoDB.
//
// Every store resolves its configuration into a canonical target identity
// (protocol, credentials, host, port, database) and shares a single
// connection per identity through a process-wide registry. A store
// constructed with an OnConnect callback opens the connection itself; stores
// constructed without one queue themselves on the identity and are wired, in
// construction order, once that connection is ready. Operations issued on a
// store that is still waiting block until it is wired or their context ends.
//
// # Usage
//
// The first store for a target opens the connection:
//
//	users, err := mongodb.New(ctx, mongodb.Config{
//	    Collection: "users",
//	    URI:        "localhost:27017/myapp",
//	    OnConnect:  func(err error) { /* ready or failed */ },
//	})
//
// Later stores against the same target reuse it:
//
//	sessions, err := mongodb.New(ctx, mongodb.Config{
//	    Collection: "sessions",
//	    URI:        "localhost:27017/myapp",
//	})
//
// Identifiers are opaque strings at this package's boundary; they are coerced
// to ObjectIDs on the way in and back to hex strings on the way out.
package mongodb
