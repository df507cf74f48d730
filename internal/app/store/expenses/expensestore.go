// internal/app/store/expenses/expensestore.go
package expensestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/depensify/internal/app/store/storeerr"
	"github.com/dalemusser/depensify/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no expense matches the id within the given scope.
var ErrNotFound = errors.New("expense not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("expenses")}
}

// Filter selects expenses for List and the stats aggregations.
// Exactly one of UserID or FamilyID should be set.
type Filter struct {
	UserID   *primitive.ObjectID
	FamilyID *primitive.ObjectID
	Category string
	From     *time.Time // inclusive
	To       *time.Time // inclusive
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.FamilyID != nil {
		q["family_id"] = *f.FamilyID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.From != nil || f.To != nil {
		dr := bson.M{}
		if f.From != nil {
			dr["$gte"] = *f.From
		}
		if f.To != nil {
			dr["$lte"] = *f.To
		}
		q["date"] = dr
	}
	return q
}

// Scope limits which records an update or delete may touch: records owned by
// UserID, plus every record of FamilyID when FamilyID is set.
type Scope struct {
	UserID   primitive.ObjectID
	FamilyID *primitive.ObjectID
}

func (s Scope) query(id primitive.ObjectID) bson.M {
	if s.FamilyID == nil {
		return bson.M{"_id": id, "user_id": s.UserID}
	}
	return bson.M{"_id": id, "$or": bson.A{
		bson.M{"user_id": s.UserID},
		bson.M{"family_id": *s.FamilyID},
	}}
}

// Create inserts e with a fresh id and timestamps.
func (s *Store) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Expense{}, storeerr.Translate(err)
	}
	return e, nil
}

// GetByID loads an expense without any scope check.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Expense, error) {
	var e models.Expense
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns one page of matching expenses, newest date first, plus the total match count.
func (s *Store) List(ctx context.Context, f Filter, offset, limit int64) ([]models.Expense, int64, error) {
	q := f.query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.Expense{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update holds the editable fields. Nil fields are left unchanged.
type Update struct {
	Description *string
	Amount      *float64
	Category    *string
	Date        *time.Time
}

// Update applies upd to the expense if it lies within scope.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, scope Scope, upd Update) (*models.Expense, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Amount != nil {
		set["amount"] = *upd.Amount
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Date != nil {
		set["date"] = *upd.Date
	}

	var e models.Expense
	err := s.c.FindOneAndUpdate(ctx, scope.query(id), bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, storeerr.Translate(err)
	}
	return &e, nil
}

// Delete removes the expense if it lies within scope.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID, scope Scope) error {
	res, err := s.c.DeleteOne(ctx, scope.query(id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
