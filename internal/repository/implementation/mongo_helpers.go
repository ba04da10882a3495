package implementation

import (
	"fmt"
	"strings"
	"time"

	"study-assistant-be/internal/pkg/apperror"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// parseObjectID rejects anything that is not a 24-hex ObjectID with a
// validation error, which callers can tell apart from not found.
func parseObjectID(id, label string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return bson.NilObjectID, apperror.Validation(fmt.Sprintf("invalid %s", label))
	}
	return oid, nil
}

// Mongo stores datetimes with millisecond precision; truncating up front keeps
// returned entities equal to what a later read yields.
func nowMillis() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
