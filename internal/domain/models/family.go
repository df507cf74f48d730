// internal/domain/models/family.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invite code shape: six characters from InviteCodeAlphabet.
const (
	InviteCodeLength   = 6
	InviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// DefaultFamilyName is used when a family is created without a name.
const DefaultFamilyName = "My Family"

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
	InvitationExpired  = "expired"
)

// InvitationTTL is how long an invitation stays valid.
const InvitationTTL = 7 * 24 * time.Hour

// FamilySettings holds owner-controlled behaviour for a family.
type FamilySettings struct {
	AllowMemberInvites     bool   `bson:"allow_member_invites" json:"allowMemberInvites"`
	RequireApprovalForJoin bool   `bson:"require_approval_for_join" json:"requireApprovalForJoin"`
	DefaultMemberRole      string `bson:"default_member_role" json:"defaultMemberRole"` // member | viewer
}

// DefaultFamilySettings returns the settings a new family starts with.
func DefaultFamilySettings() FamilySettings {
	return FamilySettings{
		AllowMemberInvites:     false,
		RequireApprovalForJoin: true,
		DefaultMemberRole:      RoleMember,
	}
}

// Member is a user's entry inside a family.
type Member struct {
	UserID      primitive.ObjectID  `bson:"user_id" json:"userId"`
	Role        string              `bson:"role" json:"role"`
	Permissions Permissions         `bson:"permissions" json:"permissions"`
	JoinedAt    time.Time           `bson:"joined_at" json:"joinedAt"`
	InvitedBy   *primitive.ObjectID `bson:"invited_by,omitempty" json:"invitedBy,omitempty"`
}

// Invitation records an invite issued by a member.
type Invitation struct {
	Token     string             `bson:"token" json:"token"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Username  string             `bson:"username,omitempty" json:"username,omitempty"`
	Role      string             `bson:"role" json:"role"`
	InvitedBy primitive.ObjectID `bson:"invited_by" json:"invitedBy"`
	InvitedAt time.Time          `bson:"invited_at" json:"invitedAt"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expiresAt"`
	Status    string             `bson:"status" json:"status"`
}

// Family is a group of users sharing an expense pool.
//
// The owner always appears in Members with role admin and FullPermissions.
type Family struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"ownerId"`
	InviteCode  string             `bson:"invite_code,omitempty" json:"inviteCode,omitempty"`
	Settings    FamilySettings     `bson:"settings" json:"settings"`
	Members     []Member           `bson:"members" json:"members"`
	Invitations []Invitation       `bson:"invitations" json:"invitations"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Member returns the member entry for userID.
func (f *Family) Member(userID primitive.ObjectID) (Member, bool) {
	if f == nil {
		return Member{}, false
	}
	for _, m := range f.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// IsOwner reports whether userID owns the family.
func (f *Family) IsOwner(userID primitive.ObjectID) bool {
	return f != nil && f.OwnerID == userID
}

// PendingInvitations returns invitations still awaiting an answer at now.
func (f *Family) PendingInvitations(now time.Time) []Invitation {
	out := []Invitation{}
	if f == nil {
		return out
	}
	for _, inv := range f.Invitations {
		if inv.Status == InvitationPending && inv.ExpiresAt.After(now) {
			out = append(out, inv)
		}
	}
	return out
}
