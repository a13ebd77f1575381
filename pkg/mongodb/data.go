package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/redbco/mongostore/pkg/resource"
)

// Save persists doc and returns it with its identifier in string form.
// A document carrying an identifier is written as an upsert by identity; a
// document without one is inserted under a freshly assigned identifier.
// Both honor the safe flag through the collection write concern.
//
// The caller's document sees its identifier coerced to string form
// immediately, before the store acknowledges; the acknowledged identifier is
// written back after.
func (s *Store) Save(ctx context.Context, doc resource.Document) (resource.Document, error) {
	if doc == nil {
		doc = resource.Document{}
	}

	var (
		oid   bson.ObjectID
		hasID bool
	)
	if raw, ok := doc[idField]; ok && raw != nil {
		external := toExternalID(raw)
		doc[idField] = external

		var err error
		oid, err = toNativeID(external)
		if err != nil {
			return nil, err
		}
		hasID = true
	}

	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	collection, err := s.collection()
	if err != nil {
		return nil, err
	}

	if !hasID {
		oid = bson.NewObjectID()
	}

	// The persisted document carries the native identifier; the caller's
	// document never holds one.
	fields := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		fields[k] = v
	}
	fields[idField] = oid
	payload := toBSONDoc(fields)

	if hasID {
		opts := options.Replace().SetUpsert(true)
		_, err = collection.ReplaceOne(ctx, bson.D{{Key: idField, Value: oid}}, payload, opts)
	} else {
		_, err = collection.InsertOne(ctx, payload)
	}
	if err != nil {
		return nil, resource.WrapError(storeName, "save", err)
	}

	doc[idField] = oid.Hex()
	return doc, nil
}

// SaveWithID assigns id onto the document, then saves it. The id must be a
// well-formed identifier; Save reports InvalidIdentifierError otherwise.
func (s *Store) SaveWithID(ctx context.Context, id string, doc resource.Document) (resource.Document, error) {
	if doc == nil {
		doc = resource.Document{}
	}
	doc[idField] = id

	return s.Save(ctx, doc)
}

// Update merges changes field by field into the identified document, then
// re-fetches and returns the full document through Get. A missing document
// surfaces as Get's empty document, not as an error.
func (s *Store) Update(ctx context.Context, id string, changes resource.Document) (resource.Document, error) {
	oid, err := toNativeID(id)
	if err != nil {
		return nil, err
	}

	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	collection, err := s.collection()
	if err != nil {
		return nil, err
	}

	// The identifier never participates in the merge.
	fields := make(map[string]interface{}, len(changes))
	for k, v := range changes {
		if k == idField {
			continue
		}
		fields[k] = v
	}

	if len(fields) > 0 {
		update := bson.D{{Key: "$set", Value: toBSONDoc(fields)}}
		if _, err := collection.UpdateOne(ctx, bson.D{{Key: idField, Value: oid}}, update); err != nil {
			return nil, resource.WrapError(storeName, "update", err)
		}
	}

	return s.Get(ctx, id)
}

// Get fetches one document by identifier. A missing document is a success
// with an empty Document, not an error.
func (s *Store) Get(ctx context.Context, id string) (resource.Document, error) {
	oid, err := toNativeID(id)
	if err != nil {
		return nil, err
	}

	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	collection, err := s.collection()
	if err != nil {
		return nil, err
	}

	doc, err := decodeSingle(collection.FindOne(ctx, bson.D{{Key: idField, Value: oid}}))
	if err != nil {
		return nil, resource.WrapError(storeName, "get", err)
	}

	return doc, nil
}

// Find returns the documents matching criteria, passed through unchanged as
// a store-native filter.
func (s *Store) Find(ctx context.Context, criteria resource.Criteria) ([]resource.Document, error) {
	return s.FindWithOptions(ctx, criteria, nil)
}

// FindWithOptions is Find with limit, skip, sort, and projection applied.
func (s *Store) FindWithOptions(ctx context.Context, criteria resource.Criteria, findOpts *resource.FindOptions) ([]resource.Document, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	collection, err := s.collection()
	if err != nil {
		return nil, err
	}

	mongoFindOpts := options.Find()
	if findOpts != nil {
		if findOpts.Limit > 0 {
			mongoFindOpts.SetLimit(findOpts.Limit)
		}
		if findOpts.Skip > 0 {
			mongoFindOpts.SetSkip(findOpts.Skip)
		}
		if len(findOpts.Sort) > 0 {
			sortDoc := bson.D{}
			for _, order := range findOpts.Sort {
				sortOrder := 1
				if order.Descending {
					sortOrder = -1
				}
				sortDoc = append(sortDoc, bson.E{Key: order.Field, Value: sortOrder})
			}
			mongoFindOpts.SetSort(sortDoc)
		}
		if len(findOpts.Projection) > 0 {
			projectionDoc := bson.D{}
			for _, field := range findOpts.Projection {
				projectionDoc = append(projectionDoc, bson.E{Key: field, Value: 1})
			}
			mongoFindOpts.SetProjection(projectionDoc)
		}
	}

	cursor, err := collection.Find(ctx, toBSONDoc(criteria), mongoFindOpts)
	if err != nil {
		return nil, resource.WrapError(storeName, "find", err)
	}
	defer cursor.Close(ctx)

	var rows []map[string]interface{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, resource.WrapError(storeName, "find", err)
	}

	result := make([]resource.Document, len(rows))
	for i := range rows {
		normalizeDocument(rows[i])
		result[i] = rows[i]
	}

	return result, nil
}

// FindByIDs coerces each id and queries them as one set-membership filter on
// the identifier field. Any malformed id aborts the whole call before the
// store is touched; there are no partial results.
func (s *Store) FindByIDs(ctx context.Context, ids ...string) ([]resource.Document, error) {
	members := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		oid, err := toNativeID(id)
		if err != nil {
			return nil, err
		}
		members = append(members, oid)
	}

	criteria := resource.Criteria{
		idField: map[string]interface{}{"$in": members},
	}

	return s.FindWithOptions(ctx, criteria, nil)
}

// Count returns the number of documents matching criteria.
func (s *Store) Count(ctx context.Context, criteria resource.Criteria) (int64, error) {
	if err := s.awaitReady(ctx); err != nil {
		return 0, err
	}
	collection, err := s.collection()
	if err != nil {
		return 0, err
	}

	count, err := collection.CountDocuments(ctx, toBSONDoc(criteria))
	if err != nil {
		return 0, resource.WrapError(storeName, "count", err)
	}

	return count, nil
}

// Destroy removes the document(s) matching id, honoring the safe flag.
// There is no existence check; destroying a missing document returns zero.
func (s *Store) Destroy(ctx context.Context, id string) (int64, error) {
	oid, err := toNativeID(id)
	if err != nil {
		return 0, err
	}

	if err := s.awaitReady(ctx); err != nil {
		return 0, err
	}
	collection, err := s.collection()
	if err != nil {
		return 0, err
	}

	result, err := collection.DeleteMany(ctx, bson.D{{Key: idField, Value: oid}})
	if err != nil {
		return 0, resource.WrapError(storeName, "destroy", err)
	}

	return result.DeletedCount, nil
}

// decodeSingle maps one fetched result onto the read contract: a missing
// document is a success with an empty Document, and found documents are
// normalized on the way out.
func decodeSingle(res *mongo.SingleResult) (resource.Document, error) {
	var doc map[string]interface{}
	err := res.Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return resource.Document{}, nil
	}
	if err != nil {
		return nil, err
	}

	normalizeDocument(doc)
	return doc, nil
}

// toBSONDoc converts a plain map into an ordered BSON document, recursing
// into nested maps and slices.
func toBSONDoc(m map[string]interface{}) bson.D {
	doc := bson.D{}
	for k, v := range m {
		doc = append(doc, bson.E{Key: k, Value: toBSONValue(v)})
	}
	return doc
}

// toBSONValue prepares a single value for embedding in a BSON document.
func toBSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return toBSONDoc(val)
	case resource.Document:
		return toBSONDoc(val)
	case resource.Criteria:
		return toBSONDoc(val)
	case []interface{}:
		arr := make(bson.A, len(val))
		for i, item := range val {
			arr[i] = toBSONValue(item)
		}
		return arr
	default:
		return v
	}
}

// normalizeDocument converts driver-native BSON values in doc to plain Go
// values, in place.
func normalizeDocument(doc map[string]interface{}) {
	for k, v := range doc {
		doc[k] = normalizeValue(v)
	}
}

// normalizeValue converts one driver-native value: ObjectIDs to hex strings,
// documents to maps, arrays to slices, datetimes to time.Time.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return time.UnixMilli(int64(val)).UTC()
	case bson.Binary:
		return val.Data
	case bson.Decimal128:
		return val.String()
	case bson.D:
		nested := make(map[string]interface{}, len(val))
		for _, elem := range val {
			nested[elem.Key] = normalizeValue(elem.Value)
		}
		return nested
	case bson.A:
		arr := make([]interface{}, len(val))
		for i, item := range val {
			arr[i] = normalizeValue(item)
		}
		return arr
	case map[string]interface{}:
		normalizeDocument(val)
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = normalizeValue(item)
		}
		return val
	default:
		return v
	}
}
