package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/redbco/mongostore/pkg/resource"
)

// idField is the distinguished identifier field in the backing store.
const idField = resource.IDField

// toNativeID coerces a string identifier into the store's native ObjectID.
// A malformed identifier fails with InvalidIdentifierError; callers abort
// before any store access.
func toNativeID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, resource.NewInvalidIdentifierError(id, err)
	}

	return oid, nil
}

// toExternalID converts an identifier value to its external string form.
// Strings pass through untouched; native ObjectIDs become hex.
func toExternalID(v interface{}) string {
	switch id := v.(type) {
	case bson.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}
