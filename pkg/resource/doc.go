// Package resource defines the abstract contract between a resource-oriented
// application and a document store binding.
//
// A resource is a schemaless document: a mapping of field names to values with
// one distinguished identifier field. At this package's boundary the identifier
// is always an opaque string; a store binding converts it to and from its own
// native identifier type at every crossing, never exposing the native form.
//
// # Architecture
//
//   - Document, Criteria: the data shapes crossing the boundary
//   - Store: the operation surface a binding implements
//   - Error taxonomy: sentinels plus typed errors shared by all bindings
//
// # Usage
//
// Bindings live in their own packages and return their concrete store type:
//
//	import (
//	    "github.com/redbco/mongostore/pkg/mongodb"
//	    "github.com/redbco/mongostore/pkg/resource"
//	)
//
//	store, err := mongodb.New(ctx, mongodb.Config{
//	    Collection: "users",
//	    URI:        "localhost:27017/myapp",
//	    OnConnect:  func(err error) { /* connection established */ },
//	})
//
//	var _ resource.Store = store
package resource
