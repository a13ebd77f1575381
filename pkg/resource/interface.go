// Package resource defines the abstract contract between a resource-oriented
// application and a document store binding.
package resource

import "context"

// IDField is the distinguished identifier field name on every document.
const IDField = "_id"

// Document represents a single resource: field names mapped to values.
// The identifier field, when present, always holds a string at this boundary.
type Document map[string]interface{}

// Criteria is a store-native filter, passed through to the backing store
// unchanged.
type Criteria map[string]interface{}

// SortOrder describes one field of a sort specification.
type SortOrder struct {
	Field      string
	Descending bool
}

// FindOptions narrows or orders a find without changing its filter.
// The zero value applies no option.
type FindOptions struct {
	Limit      int64
	Skip       int64
	Sort       []SortOrder
	Projection []string
}

// Store is the operation surface every document store binding implements.
// All operations deliver their outcome through the returned error; a nil
// error means the operation completed against the store.
type Store interface {
	// Document writes
	// Save persists the document, assigning a fresh identifier when the
	// document carries none. SaveWithID assigns the given identifier onto
	// the document first. Both return the document with a string identifier.
	Save(ctx context.Context, doc Document) (Document, error)
	SaveWithID(ctx context.Context, id string, doc Document) (Document, error)

	// Update applies changes as a partial merge (not a replacement) to the
	// identified document, then re-fetches and returns the full document.
	Update(ctx context.Context, id string, changes Document) (Document, error)

	// Document reads
	// Get returns the identified document, or an empty Document and no error
	// when nothing matches.
	Get(ctx context.Context, id string) (Document, error)
	Find(ctx context.Context, criteria Criteria) ([]Document, error)
	FindWithOptions(ctx context.Context, criteria Criteria, opts *FindOptions) ([]Document, error)
	FindByIDs(ctx context.Context, ids ...string) ([]Document, error)
	Count(ctx context.Context, criteria Criteria) (int64, error)

	// Destroy removes the identified document(s) without an existence check
	// and returns the number removed.
	Destroy(ctx context.Context, id string) (int64, error)

	// Ping verifies the underlying connection is alive.
	Ping(ctx context.Context) error
}
