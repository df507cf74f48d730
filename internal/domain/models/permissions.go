// internal/domain/models/permissions.go
package models

// Family roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// DefaultUserRole is the role stored on a user that has no family.
const DefaultUserRole = RoleAdmin

// Permissions is the fixed set of flags carried by a family member.
// Role presets these at assignment time; afterwards they are edited
// independently and are the source of truth for authorization.
type Permissions struct {
	CanAddExpenses       bool `bson:"can_add_expenses" json:"canAddExpenses"`
	CanEditOwnExpenses   bool `bson:"can_edit_own_expenses" json:"canEditOwnExpenses"`
	CanEditAllExpenses   bool `bson:"can_edit_all_expenses" json:"canEditAllExpenses"`
	CanDeleteOwnExpenses bool `bson:"can_delete_own_expenses" json:"canDeleteOwnExpenses"`
	CanDeleteAllExpenses bool `bson:"can_delete_all_expenses" json:"canDeleteAllExpenses"`
	CanViewAllExpenses   bool `bson:"can_view_all_expenses" json:"canViewAllExpenses"`
	CanInviteMembers     bool `bson:"can_invite_members" json:"canInviteMembers"`
	CanManageMembers     bool `bson:"can_manage_members" json:"canManageMembers"`
}

// PermissionKeys lists the stored field names of Permissions.
var PermissionKeys = []string{
	"can_add_expenses",
	"can_edit_own_expenses",
	"can_edit_all_expenses",
	"can_delete_own_expenses",
	"can_delete_all_expenses",
	"can_view_all_expenses",
	"can_invite_members",
	"can_manage_members",
}

// Action names one permission flag.
type Action string

const (
	ActionAdd       Action = "add"
	ActionEditOwn   Action = "editOwn"
	ActionEditAll   Action = "editAll"
	ActionDeleteOwn Action = "deleteOwn"
	ActionDeleteAll Action = "deleteAll"
	ActionViewAll   Action = "viewAll"
	ActionInvite    Action = "invite"
	ActionManage    Action = "manage"
)

// Allows reports whether the flag behind action is set.
// Unknown actions are denied.
func (p Permissions) Allows(action Action) bool {
	switch action {
	case ActionAdd:
		return p.CanAddExpenses
	case ActionEditOwn:
		return p.CanEditOwnExpenses
	case ActionEditAll:
		return p.CanEditAllExpenses
	case ActionDeleteOwn:
		return p.CanDeleteOwnExpenses
	case ActionDeleteAll:
		return p.CanDeleteAllExpenses
	case ActionViewAll:
		return p.CanViewAllExpenses
	case ActionInvite:
		return p.CanInviteMembers
	case ActionManage:
		return p.CanManageMembers
	}
	return false
}

// rolePermissions is the role -> default permission table.
var rolePermissions = map[string]Permissions{
	RoleAdmin: {
		CanAddExpenses:       true,
		CanEditOwnExpenses:   true,
		CanEditAllExpenses:   true,
		CanDeleteOwnExpenses: true,
		CanDeleteAllExpenses: true,
		CanViewAllExpenses:   true,
		CanInviteMembers:     true,
		CanManageMembers:     true,
	},
	RoleMember: {
		CanAddExpenses:       true,
		CanEditOwnExpenses:   true,
		CanDeleteOwnExpenses: true,
		CanViewAllExpenses:   true,
	},
	RoleViewer: {
		CanViewAllExpenses: true,
	},
}

// DefaultPermissions returns the preset for role. Unknown roles get no permissions.
func DefaultPermissions(role string) Permissions {
	return rolePermissions[role]
}

// FullPermissions is the owner's permission set.
func FullPermissions() Permissions {
	return rolePermissions[RoleAdmin]
}

// IsValidRole reports whether role is one of the family roles.
func IsValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// IsJoinRole reports whether role may be used as a family's default member role.
func IsJoinRole(role string) bool {
	return role == RoleMember || role == RoleViewer
}

// PermissionPatch carries a partial permission update. Nil fields are left as they are.
type PermissionPatch struct {
	CanAddExpenses       *bool `json:"canAddExpenses,omitempty"`
	CanEditOwnExpenses   *bool `json:"canEditOwnExpenses,omitempty"`
	CanEditAllExpenses   *bool `json:"canEditAllExpenses,omitempty"`
	CanDeleteOwnExpenses *bool `json:"canDeleteOwnExpenses,omitempty"`
	CanDeleteAllExpenses *bool `json:"canDeleteAllExpenses,omitempty"`
	CanViewAllExpenses   *bool `json:"canViewAllExpenses,omitempty"`
	CanInviteMembers     *bool `json:"canInviteMembers,omitempty"`
	CanManageMembers     *bool `json:"canManageMembers,omitempty"`
}

// Changes returns the set flags keyed by their stored field name.
func (p PermissionPatch) Changes() map[string]bool {
	out := map[string]bool{}
	add := func(field string, v *bool) {
		if v != nil {
			out[field] = *v
		}
	}
	add("can_add_expenses", p.CanAddExpenses)
	add("can_edit_own_expenses", p.CanEditOwnExpenses)
	add("can_edit_all_expenses", p.CanEditAllExpenses)
	add("can_delete_own_expenses", p.CanDeleteOwnExpenses)
	add("can_delete_all_expenses", p.CanDeleteAllExpenses)
	add("can_view_all_expenses", p.CanViewAllExpenses)
	add("can_invite_members", p.CanInviteMembers)
	add("can_manage_members", p.CanManageMembers)
	return out
}

// Apply returns p with the patch's set flags overlaid.
func (p Permissions) Apply(patch PermissionPatch) Permissions {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.CanAddExpenses, patch.CanAddExpenses)
	set(&p.CanEditOwnExpenses, patch.CanEditOwnExpenses)
	set(&p.CanEditAllExpenses, patch.CanEditAllExpenses)
	set(&p.CanDeleteOwnExpenses, patch.CanDeleteOwnExpenses)
	set(&p.CanDeleteAllExpenses, patch.CanDeleteAllExpenses)
	set(&p.CanViewAllExpenses, patch.CanViewAllExpenses)
	set(&p.CanInviteMembers, patch.CanInviteMembers)
	set(&p.CanManageMembers, patch.CanManageMembers)
	return p
}
