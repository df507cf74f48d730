// internal/app/store/families/familystore.go
package familystore

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/dalemusser/depensify/internal/app/store/storeerr"
	"github.com/dalemusser/depensify/internal/app/system/normalize"
	"github.com/dalemusser/depensify/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxInviteCodeAttempts bounds how many codes Create tries before giving up.
const MaxInviteCodeAttempts = 10

var (
	// ErrNotFound is returned when no family matches.
	ErrNotFound = errors.New("family not found")
	// ErrAlreadyMember is returned when adding a user that is already a member.
	ErrAlreadyMember = errors.New("user is already a member of this family")
	// ErrNotMember is returned when the target user is not a member.
	ErrNotMember = errors.New("user is not a member of this family")
	// ErrOwnerImmutable is returned when a member write targets the owner.
	ErrOwnerImmutable = errors.New("the family owner cannot be changed this way")
	// ErrNotOwner is returned when an owner-only write is attempted by someone else.
	ErrNotOwner = errors.New("only the family owner can do this")
	// ErrInviteCodeExhausted is returned when no unique invite code could be generated.
	ErrInviteCodeExhausted = errors.New("could not generate a unique invite code")
)

// CodeGenerator produces candidate invite codes.
type CodeGenerator func() (string, error)

type Store struct {
	c       *mongo.Collection
	newCode CodeGenerator
}

func New(db *mongo.Database) *Store {
	return NewWithCodeGenerator(db, NewInviteCode)
}

// NewWithCodeGenerator is New with a custom invite code source.
func NewWithCodeGenerator(db *mongo.Database, gen CodeGenerator) *Store {
	return &Store{c: db.Collection("families"), newCode: gen}
}

// NewInviteCode returns a random code of InviteCodeLength characters
// drawn from InviteCodeAlphabet.
func NewInviteCode() (string, error) {
	buf := make([]byte, models.InviteCodeLength)
	max := big.NewInt(int64(len(models.InviteCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = models.InviteCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// Create inserts a family, retrying with fresh invite codes while the unique
// invite_code index reports a collision.
func (s *Store) Create(ctx context.Context, f models.Family) (models.Family, error) {
	now := time.Now().UTC()
	f.ID = primitive.NewObjectID()
	f.CreatedAt = now
	f.UpdatedAt = now
	if f.Members == nil {
		f.Members = []models.Member{}
	}
	if f.Invitations == nil {
		f.Invitations = []models.Invitation{}
	}

	for attempt := 0; attempt < MaxInviteCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return models.Family{}, err
		}
		f.InviteCode = code

		_, err = s.c.InsertOne(ctx, f)
		if err == nil {
			return f, nil
		}
		if !wafflemongo.IsDup(err) {
			return models.Family{}, storeerr.Translate(err)
		}
	}
	return models.Family{}, ErrInviteCodeExhausted
}

// GetByID loads a family.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Family, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByInviteCode loads the family owning code. Codes match case-insensitively.
func (s *Store) GetByInviteCode(ctx context.Context, code string) (*models.Family, error) {
	code = normalize.InviteCode(code)
	if code == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"invite_code": code})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Family, error) {
	var f models.Family
	if err := s.c.FindOne(ctx, filter).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Delete removes the family. Only used to undo a Create whose owner link failed.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// AddMember appends m unless the user is already listed. The membership check
// and the push are one conditional update.
func (s *Store) AddMember(ctx context.Context, familyID primitive.ObjectID, m models.Member) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": familyID, "members.user_id": bson.M{"$ne": m.UserID}},
		bson.M{
			"$push": bson.M{"members": m},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return storeerr.Translate(err)
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetByID(ctx, familyID); gerr != nil {
			return gerr
		}
		return ErrAlreadyMember
	}
	return nil
}

// RemoveMember pulls a non-owner member.
func (s *Store) RemoveMember(ctx context.Context, familyID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": familyID, "owner_id": bson.M{"$ne": userID}, "members.user_id": userID},
		bson.M{
			"$pull": bson.M{"members": bson.M{"user_id": userID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.explainMemberMiss(ctx, familyID, userID)
	}
	return nil
}

// UpdateMember changes a non-owner member's role and/or individual permission
// flags. An empty role leaves the role as is; flags absent from patch are untouched.
func (s *Store) UpdateMember(ctx context.Context, familyID, userID primitive.ObjectID, role string, patch models.PermissionPatch) (models.Member, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if role != "" {
		set["members.$[m].role"] = role
	}
	for field, v := range patch.Changes() {
		set["members.$[m].permissions."+field] = v
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetArrayFilters(options.ArrayFilters{Filters: []interface{}{bson.M{"m.user_id": userID}}})

	var f models.Family
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": familyID, "owner_id": bson.M{"$ne": userID}, "members.user_id": userID},
		bson.M{"$set": set},
		opts,
	).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Member{}, s.explainMemberMiss(ctx, familyID, userID)
		}
		return models.Member{}, storeerr.Translate(err)
	}
	m, _ := f.Member(userID)
	return m, nil
}

// TransferOwnership hands the family from `from` to `to` in one update. The new
// owner gets the admin role with full permissions; the old owner drops to the
// member defaults.
func (s *Store) TransferOwnership(ctx context.Context, familyID, from, to primitive.ObjectID) error {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
		bson.M{"newOwner.user_id": to},
		bson.M{"oldOwner.user_id": from},
	}})
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": familyID, "owner_id": from, "members.user_id": to},
		bson.M{"$set": bson.M{
			"owner_id":                        to,
			"members.$[newOwner].role":        models.RoleAdmin,
			"members.$[newOwner].permissions": models.FullPermissions(),
			"members.$[oldOwner].role":        models.RoleMember,
			"members.$[oldOwner].permissions": models.DefaultPermissions(models.RoleMember),
			"updated_at":                      time.Now().UTC(),
		}},
		opts,
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		f, gerr := s.GetByID(ctx, familyID)
		if gerr != nil {
			return gerr
		}
		if f.OwnerID != from {
			return ErrNotOwner
		}
		return ErrNotMember
	}
	return nil
}

// DetailsUpdate carries owner edits. Nil Name/Description leave them unchanged.
type DetailsUpdate struct {
	Name        *string
	Description *string
	Settings    models.FamilySettings
}

// UpdateDetails writes settings (and name/description when set) if ownerID still owns the family.
func (s *Store) UpdateDetails(ctx context.Context, familyID, ownerID primitive.ObjectID, upd DetailsUpdate) (*models.Family, error) {
	set := bson.M{
		"settings":   upd.Settings,
		"updated_at": time.Now().UTC(),
	}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}

	var f models.Family
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": familyID, "owner_id": ownerID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, gerr := s.GetByID(ctx, familyID); gerr != nil {
				return nil, gerr
			}
			return nil, ErrNotOwner
		}
		return nil, storeerr.Translate(err)
	}
	return &f, nil
}

// AddInvitation records inv on the family.
func (s *Store) AddInvitation(ctx context.Context, familyID primitive.ObjectID, inv models.Invitation) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": familyID},
		bson.M{
			"$push": bson.M{"invitations": inv},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return storeerr.Translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireInvitations marks every pending invitation whose expiry is before now
// as expired. It returns the number of families touched.
func (s *Store) ExpireInvitations(ctx context.Context, now time.Time) (int64, error) {
	stale := bson.M{"status": models.InvitationPending, "expires_at": bson.M{"$lt": now}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"inv.status": models.InvitationPending, "inv.expires_at": bson.M{"$lt": now}}},
	})
	res, err := s.c.UpdateMany(ctx,
		bson.M{"invitations": bson.M{"$elemMatch": stale}},
		bson.M{"$set": bson.M{
			"invitations.$[inv].status": models.InvitationExpired,
			"updated_at":                now,
		}},
		opts,
	)
	if err != nil {
		return 0, storeerr.Translate(err)
	}
	return res.ModifiedCount, nil
}

// explainMemberMiss works out why a conditional member write matched nothing.
func (s *Store) explainMemberMiss(ctx context.Context, familyID, userID primitive.ObjectID) error {
	f, err := s.GetByID(ctx, familyID)
	if err != nil {
		return err
	}
	if f.OwnerID == userID {
		return ErrOwnerImmutable
	}
	return ErrNotMember
}
