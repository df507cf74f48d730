// internal/app/store/deployment/deploymentstore.go
package deploymentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/depensify/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotClaimed is returned by BootstrapAdmin when no user holds the bootstrap slot.
var ErrNotClaimed = errors.New("bootstrap admin not claimed")

// Store manages deployment-wide singleton documents.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("deployment")}
}

// ClaimBootstrapAdmin tries to record userID as the deployment's bootstrap admin.
// The marker has a fixed _id, so only the first insert succeeds; every later
// caller gets claimed == false.
func (s *Store) ClaimBootstrapAdmin(ctx context.Context, userID primitive.ObjectID) (claimed bool, err error) {
	_, err = s.c.InsertOne(ctx, models.BootstrapMarker{
		ID:        models.BootstrapMarkerID,
		UserID:    userID,
		ClaimedAt: time.Now().UTC(),
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReleaseBootstrapAdmin removes the marker if userID still holds it.
// Used to undo a claim whose follow-up promotion failed.
func (s *Store) ReleaseBootstrapAdmin(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": models.BootstrapMarkerID, "user_id": userID})
	return err
}

// BootstrapAdmin returns the current marker.
func (s *Store) BootstrapAdmin(ctx context.Context) (*models.BootstrapMarker, error) {
	var m models.BootstrapMarker
	if err := s.c.FindOne(ctx, bson.M{"_id": models.BootstrapMarkerID}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotClaimed
		}
		return nil, err
	}
	return &m, nil
}
