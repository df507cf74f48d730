// internal/domain/models/deployment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BootstrapMarkerID is the fixed _id of the bootstrap admin marker.
const BootstrapMarkerID = "bootstrap_admin"

// BootstrapMarker records which user claimed the bootstrap admin slot.
// Exactly one such document can exist per deployment.
type BootstrapMarker struct {
	ID        string             `bson:"_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	ClaimedAt time.Time          `bson:"claimed_at"`
}
