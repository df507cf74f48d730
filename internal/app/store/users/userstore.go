package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/depensify/internal/app/store/storeerr"
	"github.com/dalemusser/depensify/internal/app/system/indexes"
	"github.com/dalemusser/depensify/internal/app/system/normalize"
	"github.com/dalemusser/depensify/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername is returned when the folded username is already taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicateEmail is returned when the email already belongs to another user.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrNotPending is returned when a review targets a user that is no longer pending.
	ErrNotPending = errors.New("user is not pending approval")
	// ErrAlreadyInFamily is returned when linking a user that already has a family.
	ErrAlreadyInFamily = errors.New("user already belongs to a family")

	errBadRole   = errors.New(`role must be "admin"|"member"|"viewer"`)
	errBadStatus = errors.New(`status must be "pending"|"approved"|"rejected"`)
)

// publicProjection hides credentials from list reads.
var publicProjection = bson.M{"password_hash": 0}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByUsername looks up a user by case-insensitive username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"username_ci": normalize.UsernameKey(username)}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.UsernameCI = normalize.UsernameKey(u.Username)
	u.Email = normalize.Email(u.Email)
	if u.Role == "" {
		u.Role = models.DefaultUserRole
	}
	if u.Status == "" {
		u.Status = models.StatusPending
	}

	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	switch u.Status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		return models.User{}, errBadStatus
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, dupErr(err)
		}
		return models.User{}, storeerr.Translate(err)
	}
	return u, nil
}

// dupErr picks the sentinel for the unique index that rejected the write.
func dupErr(err error) error {
	if strings.Contains(err.Error(), indexes.UsersEmailIndex) {
		return ErrDuplicateEmail
	}
	return ErrDuplicateUsername
}

// ListPending returns users awaiting approval, newest first, without credentials.
func (s *Store) ListPending(ctx context.Context) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(publicProjection)

	cur, err := s.c.Find(ctx, bson.M{"status": models.StatusPending}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Review moves a pending user to approved or rejected. The status filter makes
// the transition a single conditional write, so concurrent reviews cannot both win.
// Returns ErrNotFound or ErrNotPending when nothing was updated.
func (s *Store) Review(ctx context.Context, id primitive.ObjectID, to string, reviewer primitive.ObjectID, reason string) (*models.User, error) {
	if to != models.StatusApproved && to != models.StatusRejected {
		return nil, errBadStatus
	}
	now := time.Now().UTC()
	set := bson.M{
		"status":      to,
		"reviewed_by": reviewer,
		"reviewed_at": now,
		"updated_at":  now,
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		set["rejection_reason"] = reason
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(publicProjection),
	).Decode(&u)
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storeerr.Translate(err)
	}
	if _, gerr := s.GetByID(ctx, id); gerr != nil {
		return nil, gerr
	}
	return nil, ErrNotPending
}

// PromoteBootstrapAdmin approves the user and sets the system admin flag.
func (s *Store) PromoteBootstrapAdmin(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     models.StatusApproved,
		"is_admin":   true,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindApprovedAdmin returns any approved system admin, or ErrNotFound.
func (s *Store) FindApprovedAdmin(ctx context.Context) (*models.User, error) {
	var u models.User
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	err := s.c.FindOne(ctx, bson.M{"is_admin": true, "status": models.StatusApproved}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// LinkFamily sets the user's family and role, but only if the user has no family.
// Returns ErrAlreadyInFamily when another family is already linked.
func (s *Store) LinkFamily(ctx context.Context, id, familyID primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "family_id": nil},
		bson.M{"$set": bson.M{"family_id": familyID, "role": role, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return ErrAlreadyInFamily
	}
	return nil
}

// UnlinkFamily clears the user's family if it is still familyID and resets the role.
func (s *Store) UnlinkFamily(ctx context.Context, id, familyID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "family_id": familyID},
		bson.M{"$set": bson.M{"family_id": nil, "role": models.DefaultUserRole, "updated_at": time.Now().UTC()}},
	)
	return err
}

// SetRole updates the user's family role hint.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return errBadRole
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}})
	return err
}

// UsernamesByID resolves usernames for the given ids. Unknown ids are absent from the map.
func (s *Store) UsernamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1, "username": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID       primitive.ObjectID `bson:"_id"`
			Username string             `bson:"username"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.Username
	}
	return out, cur.Err()
}
