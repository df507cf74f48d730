// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User account statuses. pending -> approved | rejected; both outcomes are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// User is a registered account.
//
// NOTE:
//   - Role is the user's role inside their current family (admin | member | viewer).
//     It is a hint that mirrors the family member entry; IsAdmin is the separate
//     system-level flag that gates the approval endpoints.
//   - FamilyID is nil when the user does not belong to a family.
type User struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Username        string              `bson:"username" json:"username"`
	UsernameCI      string              `bson:"username_ci" json:"-"` // folded for case-insensitive lookup
	PasswordHash    string              `bson:"password_hash" json:"-"`
	Email           string              `bson:"email,omitempty" json:"email,omitempty"`
	Role            string              `bson:"role" json:"role"`
	Status          string              `bson:"status" json:"status"`
	IsAdmin         bool                `bson:"is_admin" json:"isAdmin"`
	FamilyID        *primitive.ObjectID `bson:"family_id" json:"familyId"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`
	ReviewedBy      *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"-"`
	ReviewedAt      *time.Time          `bson:"reviewed_at,omitempty" json:"reviewedAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasFamily reports whether the user currently belongs to a family.
func (u User) HasFamily() bool {
	return u.FamilyID != nil && !u.FamilyID.IsZero()
}
