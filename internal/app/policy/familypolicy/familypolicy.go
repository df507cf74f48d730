// Package familypolicy decides what a family member may do.
//
// Authorization rules:
//   - Every check runs against a family loaded for the current request; a
//     nil family, a missing member entry or an unset flag all deny.
//   - Permission flags, not roles, are the source of truth.
//   - The owner can never be edited or removed through member management.
//   - Users without a family act on their own expenses only.
package familypolicy

import (
	"github.com/dalemusser/depensify/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CanPerform reports whether userID holds the flag behind action in fam.
func CanPerform(userID primitive.ObjectID, fam *models.Family, action models.Action) bool {
	m, ok := fam.Member(userID)
	if !ok {
		return false
	}
	return m.Permissions.Allows(action)
}

// Scope is the set of expense records an edit or delete may touch.
type Scope int

const (
	// ScopeNone matches nothing.
	ScopeNone Scope = iota
	// ScopeOwn matches records the caller created.
	ScopeOwn
	// ScopeFamily matches the caller's records and every record of the family.
	ScopeFamily
)

// EditScope is the write scope for updating expenses.
func EditScope(userID primitive.ObjectID, fam *models.Family) Scope {
	return writeScope(userID, fam, models.ActionEditAll, models.ActionEditOwn)
}

// DeleteScope is the write scope for deleting expenses.
func DeleteScope(userID primitive.ObjectID, fam *models.Family) Scope {
	return writeScope(userID, fam, models.ActionDeleteAll, models.ActionDeleteOwn)
}

func writeScope(userID primitive.ObjectID, fam *models.Family, all, own models.Action) Scope {
	if fam == nil {
		return ScopeOwn
	}
	switch {
	case CanPerform(userID, fam, all):
		return ScopeFamily
	case CanPerform(userID, fam, own):
		return ScopeOwn
	default:
		return ScopeNone
	}
}

// CanAddExpense reports whether userID may record an expense. Users outside
// a family always may.
func CanAddExpense(userID primitive.ObjectID, fam *models.Family) bool {
	if fam == nil {
		return true
	}
	return CanPerform(userID, fam, models.ActionAdd)
}

// CanViewFamilyExpenses reports whether userID may read the family pool.
func CanViewFamilyExpenses(userID primitive.ObjectID, fam *models.Family) bool {
	return CanPerform(userID, fam, models.ActionViewAll)
}

// CanInvite reports whether userID may invite someone with the given role.
// Members may invite when they hold canInviteMembers or when the family
// allows member invites; inviting an admin additionally needs canManageMembers.
func CanInvite(userID primitive.ObjectID, fam *models.Family, role string) bool {
	m, ok := fam.Member(userID)
	if !ok {
		return false
	}
	if !m.Permissions.CanInviteMembers && !fam.Settings.AllowMemberInvites {
		return false
	}
	if role == models.RoleAdmin && !m.Permissions.CanManageMembers {
		return false
	}
	return true
}

// ManageDecision is the outcome of a member-management check.
type ManageDecision int

const (
	ManageAllowed ManageDecision = iota
	// ManageForbidden: the actor lacks canManageMembers (or is not a member).
	ManageForbidden
	// ManageTargetIsOwner: the owner cannot be edited or removed.
	ManageTargetIsOwner
	// ManageTargetNotMember: the target is not in the family.
	ManageTargetNotMember
)

// CanManageMember decides whether actorID may change or remove targetID.
func CanManageMember(actorID primitive.ObjectID, fam *models.Family, targetID primitive.ObjectID) ManageDecision {
	if !CanPerform(actorID, fam, models.ActionManage) {
		return ManageForbidden
	}
	if fam.IsOwner(targetID) {
		return ManageTargetIsOwner
	}
	if _, ok := fam.Member(targetID); !ok {
		return ManageTargetNotMember
	}
	return ManageAllowed
}
