package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/depensify/internal/app/system/authutil"
	"github.com/dalemusser/depensify/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// FixturePassword is the password of every user created by Fixtures.
const FixturePassword = "secret123"

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) createUser(ctx context.Context, username, status string, isAdmin bool) models.User {
	f.t.Helper()

	hash, err := authutil.HashPasswordWithCost(FixturePassword, bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash fixture password: %v", err)
	}

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		UsernameCI:   text.Fold(username),
		PasswordHash: hash,
		Role:         models.DefaultUserRole,
		Status:       status,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return u
}

// CreatePendingUser creates a user awaiting approval.
func (f *Fixtures) CreatePendingUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.createUser(ctx, username, models.StatusPending, false)
}

// CreateApprovedUser creates an approved, non-admin user without a family.
func (f *Fixtures) CreateApprovedUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.createUser(ctx, username, models.StatusApproved, false)
}

// CreateRejectedUser creates a rejected user.
func (f *Fixtures) CreateRejectedUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.createUser(ctx, username, models.StatusRejected, false)
}

// CreateAdminUser creates an approved system admin without a family.
func (f *Fixtures) CreateAdminUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.createUser(ctx, username, models.StatusApproved, true)
}

// CreateFamily creates a family owned by owner and links owner to it.
// The returned owner reflects the link.
func (f *Fixtures) CreateFamily(ctx context.Context, owner *models.User, name, inviteCode string) models.Family {
	f.t.Helper()

	now := time.Now().UTC()
	fam := models.Family{
		ID:         primitive.NewObjectID(),
		Name:       name,
		OwnerID:    owner.ID,
		InviteCode: inviteCode,
		Settings:   models.DefaultFamilySettings(),
		Members: []models.Member{{
			UserID:      owner.ID,
			Role:        models.RoleAdmin,
			Permissions: models.FullPermissions(),
			JoinedAt:    now,
		}},
		Invitations: []models.Invitation{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("families").InsertOne(ctx, fam); err != nil {
		f.t.Fatalf("failed to create test family %q: %v", name, err)
	}
	f.linkUser(ctx, owner, fam.ID, models.RoleAdmin)
	return fam
}

// AddMember adds user to fam with role and the role's default permissions,
// and links the user. fam and user are updated in place.
func (f *Fixtures) AddMember(ctx context.Context, fam *models.Family, user *models.User, role string) models.Member {
	f.t.Helper()

	m := models.Member{
		UserID:      user.ID,
		Role:        role,
		Permissions: models.DefaultPermissions(role),
		JoinedAt:    time.Now().UTC(),
	}
	_, err := f.db.Collection("families").UpdateOne(ctx,
		bson.M{"_id": fam.ID},
		bson.M{"$push": bson.M{"members": m}})
	if err != nil {
		f.t.Fatalf("failed to add test member: %v", err)
	}
	fam.Members = append(fam.Members, m)
	f.linkUser(ctx, user, fam.ID, role)
	return m
}

// SetPermissions overwrites a member's permissions.
func (f *Fixtures) SetPermissions(ctx context.Context, familyID, userID primitive.ObjectID, perms models.Permissions) {
	f.t.Helper()

	_, err := f.db.Collection("families").UpdateOne(ctx,
		bson.M{"_id": familyID, "members.user_id": userID},
		bson.M{"$set": bson.M{"members.$.permissions": perms}})
	if err != nil {
		f.t.Fatalf("failed to set test permissions: %v", err)
	}
}

func (f *Fixtures) linkUser(ctx context.Context, u *models.User, familyID primitive.ObjectID, role string) {
	f.t.Helper()

	_, err := f.db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$set": bson.M{"family_id": familyID, "role": role}})
	if err != nil {
		f.t.Fatalf("failed to link test user: %v", err)
	}
	u.FamilyID = &familyID
	u.Role = role
}

// CreateExpense inserts an expense directly.
func (f *Fixtures) CreateExpense(ctx context.Context, userID primitive.ObjectID, familyID *primitive.ObjectID, category string, amount float64, date time.Time) models.Expense {
	f.t.Helper()

	now := time.Now().UTC()
	e := models.Expense{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		FamilyID:    familyID,
		Description: category + " expense",
		Amount:      amount,
		Category:    category,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("expenses").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test expense: %v", err)
	}
	return e
}
