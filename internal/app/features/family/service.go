// internal/app/features/family/service.go
package family

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	expensestore "github.com/dalemusser/depensify/internal/app/store/expenses"
	familystore "github.com/dalemusser/depensify/internal/app/store/families"
	"github.com/dalemusser/depensify/internal/app/store/storeerr"
	userstore "github.com/dalemusser/depensify/internal/app/store/users"
	"github.com/dalemusser/depensify/internal/app/policy/familypolicy"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/authutil"
	"github.com/dalemusser/depensify/internal/app/system/htmlsanitize"
	"github.com/dalemusser/depensify/internal/app/system/metrics"
	"github.com/dalemusser/depensify/internal/app/system/normalize"
	"github.com/dalemusser/depensify/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Name and description bounds, in characters.
const (
	MinNameLen        = 2
	MaxNameLen        = 50
	MaxDescriptionLen = 200
)

var (
	errNoFamily      = apperr.Forbidden("you do not belong to a family")
	errAlreadyFamily = apperr.Conflict("you already belong to a family")
)

// Service runs the family lifecycle: create, join, leave, ownership transfer,
// settings, invitations and member management. Every permission check runs
// against a family loaded inside the same call.
type Service struct {
	Users    *userstore.Store
	Families *familystore.Store
	Expenses *expensestore.Store
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Now      func() time.Time
}

// NewService wires a Service over db.
func NewService(db *mongo.Database, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		Users:    userstore.New(db),
		Families: familystore.New(db),
		Expenses: expensestore.New(db),
		Metrics:  m,
		Log:      logger,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Inputs and views                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SettingsPatch is a partial settings update. Nil fields keep their value.
type SettingsPatch struct {
	AllowMemberInvites     *bool   `json:"allowMemberInvites"`
	RequireApprovalForJoin *bool   `json:"requireApprovalForJoin"`
	DefaultMemberRole      *string `json:"defaultMemberRole"`
}

// merge overlays p onto s.
func (p SettingsPatch) merge(s models.FamilySettings) (models.FamilySettings, error) {
	if p.AllowMemberInvites != nil {
		s.AllowMemberInvites = *p.AllowMemberInvites
	}
	if p.RequireApprovalForJoin != nil {
		s.RequireApprovalForJoin = *p.RequireApprovalForJoin
	}
	if p.DefaultMemberRole != nil {
		role := normalize.Role(*p.DefaultMemberRole)
		if !models.IsJoinRole(role) {
			return s, apperr.Validation(`defaultMemberRole must be "member" or "viewer"`)
		}
		s.DefaultMemberRole = role
	}
	return s, nil
}

// CreateInput is the body of POST /api/family/create.
type CreateInput struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Settings    SettingsPatch `json:"settings"`
}

// SettingsInput is the body of PUT /api/family/settings.
type SettingsInput struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Settings    SettingsPatch `json:"settings"`
}

// InviteInput is the body of POST /api/family/invite.
type InviteInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// MemberInput is the body of PUT /api/family/member/{id}/role.
type MemberInput struct {
	Role        string                 `json:"role"`
	Permissions models.PermissionPatch `json:"permissions"`
}

// MemberView is a member entry with its username resolved.
type MemberView struct {
	UserID      primitive.ObjectID  `json:"userId"`
	Username    string              `json:"username"`
	Role        string              `json:"role"`
	Permissions models.Permissions  `json:"permissions"`
	JoinedAt    time.Time           `json:"joinedAt"`
	InvitedBy   *primitive.ObjectID `json:"invitedBy,omitempty"`
	IsOwner     bool                `json:"isOwner"`
}

// Details is the family as seen by one of its members.
type Details struct {
	ID            primitive.ObjectID    `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description,omitempty"`
	OwnerID       primitive.ObjectID    `json:"ownerId"`
	InviteCode    string                `json:"inviteCode"`
	Settings      models.FamilySettings `json:"settings"`
	Members       []MemberView          `json:"members"`
	Invitations   []models.Invitation   `json:"invitations"`
	MyRole        string                `json:"myRole"`
	MyPermissions models.Permissions    `json:"myPermissions"`
	IsOwner       bool                  `json:"isOwner"`
	// Summary covers the family pool; only present for members who may view it.
	Summary   *expensestore.Totals `json:"summary,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// InviteResult is returned by Invite.
type InviteResult struct {
	InviteCode string             `json:"inviteCode"`
	Invitation models.Invitation  `json:"invitation"`
	FamilyID   primitive.ObjectID `json:"-"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| Loading                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Service) loadUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// FamilyOf returns the user's family, or nil when the user has none. A link
// to a family that no longer exists is treated as no family.
func (s *Service) FamilyOf(ctx context.Context, u *models.User) (*models.Family, error) {
	if !u.HasFamily() {
		return nil, nil
	}
	f, err := s.Families.GetByID(ctx, *u.FamilyID)
	if err != nil {
		if errors.Is(err, familystore.ErrNotFound) {
			s.Log.Warn("user linked to missing family",
				zap.String("user_id", u.ID.Hex()),
				zap.String("family_id", u.FamilyID.Hex()))
			return nil, nil
		}
		return nil, apperr.Internal(err)
	}
	return f, nil
}

// requireNoFamily refuses users who belong to a family. A link to a missing
// family is cleared so the user can create or join another one.
func (s *Service) requireNoFamily(ctx context.Context, u *models.User) error {
	f, err := s.FamilyOf(ctx, u)
	if err != nil {
		return err
	}
	if f != nil {
		return errAlreadyFamily
	}
	if u.HasFamily() {
		if err := s.Users.UnlinkFamily(ctx, u.ID, *u.FamilyID); err != nil {
			return apperr.Internal(err)
		}
		u.FamilyID = nil
	}
	return nil
}

// load returns the caller and their family (nil when none).
func (s *Service) load(ctx context.Context, userID primitive.ObjectID) (*models.User, *models.Family, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.FamilyOf(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, f, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Validation                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func cleanName(name string) (string, error) {
	name = htmlsanitize.PlainText(name)
	if n := utf8.RuneCountInString(name); n < MinNameLen || n > MaxNameLen {
		return "", apperr.Validation("family name must be between 2 and 50 characters")
	}
	return name, nil
}

func cleanDescription(desc string) (string, error) {
	desc = htmlsanitize.PlainText(desc)
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		return "", apperr.Validation("family description must be at most 200 characters")
	}
	return desc, nil
}

// storeErr maps a store failure that is not a known sentinel.
func storeErr(err error) error {
	var ve *storeerr.ValidationError
	if errors.As(err, &ve) {
		return apperr.ValidationFields(ve.Fields...)
	}
	return apperr.Internal(err)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Create / provision                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// Create makes the caller the owner of a new family.
func (s *Service) Create(ctx context.Context, ownerID primitive.ObjectID, in CreateInput) (*Details, error) {
	u, err := s.loadUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNoFamily(ctx, u); err != nil {
		return nil, err
	}

	name := models.DefaultFamilyName
	if htmlsanitize.PlainText(in.Name) != "" {
		if name, err = cleanName(in.Name); err != nil {
			return nil, err
		}
	}
	desc, err := cleanDescription(in.Description)
	if err != nil {
		return nil, err
	}
	settings, err := in.Settings.merge(models.DefaultFamilySettings())
	if err != nil {
		return nil, err
	}

	f, err := s.provision(ctx, u.ID, name, desc, settings)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, u.ID, f)
}

// Provision creates a default family owned by userID. Used when the bootstrap
// admin registers and when an admin approves a user.
func (s *Service) Provision(ctx context.Context, userID primitive.ObjectID, username string) (*models.Family, error) {
	return s.provision(ctx, userID, username+"'s Family", "", models.DefaultFamilySettings())
}

func (s *Service) provision(ctx context.Context, ownerID primitive.ObjectID, name, desc string, settings models.FamilySettings) (*models.Family, error) {
	created, err := s.Families.Create(ctx, models.Family{
		Name:        name,
		Description: desc,
		OwnerID:     ownerID,
		Settings:    settings,
		Members: []models.Member{{
			UserID:      ownerID,
			Role:        models.RoleAdmin,
			Permissions: models.FullPermissions(),
			JoinedAt:    s.Now(),
		}},
	})
	if err != nil {
		if errors.Is(err, familystore.ErrInviteCodeExhausted) {
			return nil, apperr.Internal(err)
		}
		return nil, storeErr(err)
	}

	if err := s.Users.LinkFamily(ctx, ownerID, created.ID, models.RoleAdmin); err != nil {
		if derr := s.Families.Delete(ctx, created.ID); derr != nil {
			s.Log.Error("failed to remove unlinked family",
				zap.String("family_id", created.ID.Hex()), zap.Error(derr))
		}
		switch {
		case errors.Is(err, userstore.ErrAlreadyInFamily):
			return nil, errAlreadyFamily
		case errors.Is(err, userstore.ErrNotFound):
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	return &created, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Join / leave                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// Join adds the caller to the family owning code with the family's default role.
func (s *Service) Join(ctx context.Context, userID primitive.ObjectID, code string) (*Details, error) {
	u, err := s.loadUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNoFamily(ctx, u); err != nil {
		return nil, err
	}
	if normalize.InviteCode(code) == "" {
		return nil, apperr.Validation("invite code is required")
	}

	f, err := s.Families.GetByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, familystore.ErrNotFound) {
			return nil, apperr.NotFound("invalid invite code")
		}
		return nil, apperr.Internal(err)
	}

	role := f.Settings.DefaultMemberRole
	if !models.IsJoinRole(role) {
		role = models.RoleMember
	}
	err = s.Families.AddMember(ctx, f.ID, models.Member{
		UserID:      u.ID,
		Role:        role,
		Permissions: models.DefaultPermissions(role),
		JoinedAt:    s.Now(),
	})
	if err != nil {
		if errors.Is(err, familystore.ErrAlreadyMember) {
			return nil, apperr.Conflict("you are already a member of this family")
		}
		return nil, storeErr(err)
	}

	if err := s.Users.LinkFamily(ctx, u.ID, f.ID, role); err != nil {
		if rerr := s.Families.RemoveMember(ctx, f.ID, u.ID); rerr != nil {
			s.Log.Error("failed to undo family join",
				zap.String("family_id", f.ID.Hex()),
				zap.String("user_id", u.ID.Hex()),
				zap.Error(rerr))
		}
		if errors.Is(err, userstore.ErrAlreadyInFamily) {
			return nil, errAlreadyFamily
		}
		return nil, apperr.Internal(err)
	}

	fresh, err := s.Families.GetByID(ctx, f.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.details(ctx, u.ID, fresh)
}

// Leave removes the caller from their family. The owner has to transfer
// ownership first. Returns the family left.
func (s *Service) Leave(ctx context.Context, userID primitive.ObjectID) (primitive.ObjectID, error) {
	u, f, err := s.load(ctx, userID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if f == nil {
		return primitive.NilObjectID, apperr.InvalidState("you do not belong to a family")
	}
	if f.IsOwner(u.ID) {
		return primitive.NilObjectID, apperr.InvalidState("the owner must transfer ownership before leaving the family")
	}

	if err := s.Families.RemoveMember(ctx, f.ID, u.ID); err != nil && !errors.Is(err, familystore.ErrNotMember) {
		if errors.Is(err, familystore.ErrOwnerImmutable) {
			return primitive.NilObjectID, apperr.InvalidState("the owner must transfer ownership before leaving the family")
		}
		return primitive.NilObjectID, apperr.Internal(err)
	}
	if err := s.Users.UnlinkFamily(ctx, u.ID, f.ID); err != nil {
		return primitive.NilObjectID, apperr.Internal(err)
	}
	return f.ID, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Owner operations                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// TransferOwnership hands the caller's family to newOwnerID.
func (s *Service) TransferOwnership(ctx context.Context, userID, newOwnerID primitive.ObjectID) (*Details, error) {
	u, f, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f == nil || !f.IsOwner(u.ID) {
		s.Metrics.Denied("transfer_ownership")
		return nil, apperr.Forbidden("only the family owner can transfer ownership")
	}
	if newOwnerID == u.ID {
		return nil, apperr.Validation("you already own this family")
	}
	if _, ok := f.Member(newOwnerID); !ok {
		return nil, apperr.Validation("the new owner must be a member of the family")
	}

	if err := s.Families.TransferOwnership(ctx, f.ID, u.ID, newOwnerID); err != nil {
		switch {
		case errors.Is(err, familystore.ErrNotOwner):
			return nil, apperr.Forbidden("only the family owner can transfer ownership")
		case errors.Is(err, familystore.ErrNotMember):
			return nil, apperr.Validation("the new owner must be a member of the family")
		}
		return nil, apperr.Internal(err)
	}
	if err := s.Users.SetRole(ctx, newOwnerID, models.RoleAdmin); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.Users.SetRole(ctx, u.ID, models.RoleMember); err != nil {
		return nil, apperr.Internal(err)
	}

	fresh, err := s.Families.GetByID(ctx, f.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.details(ctx, u.ID, fresh)
}

// UpdateSettings merges in into the caller's family. Owner only.
func (s *Service) UpdateSettings(ctx context.Context, userID primitive.ObjectID, in SettingsInput) (*Details, error) {
	u, f, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f == nil || !f.IsOwner(u.ID) {
		s.Metrics.Denied("update_settings")
		return nil, apperr.Forbidden("only the family owner can change settings")
	}

	upd := familystore.DetailsUpdate{}
	if upd.Settings, err = in.Settings.merge(f.Settings); err != nil {
		return nil, err
	}
	if in.Name != nil {
		name, err := cleanName(*in.Name)
		if err != nil {
			return nil, err
		}
		upd.Name = &name
	}
	if in.Description != nil {
		desc, err := cleanDescription(*in.Description)
		if err != nil {
			return nil, err
		}
		upd.Description = &desc
	}

	updated, err := s.Families.UpdateDetails(ctx, f.ID, u.ID, upd)
	if err != nil {
		if errors.Is(err, familystore.ErrNotOwner) {
			return nil, apperr.Forbidden("only the family owner can change settings")
		}
		return nil, storeErr(err)
	}
	return s.details(ctx, u.ID, updated)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Reads                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// Details returns the caller's family, or nil when they have none.
func (s *Service) Details(ctx context.Context, userID primitive.ObjectID) (*Details, error) {
	u, f, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	return s.details(ctx, u.ID, f)
}

// Members lists the caller's family members.
func (s *Service) Members(ctx context.Context, userID primitive.ObjectID) ([]MemberView, error) {
	_, f, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errNoFamily
	}
	names, err := s.Users.UsernamesByID(ctx, memberIDs(f))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return memberViews(f, names), nil
}

func memberIDs(f *models.Family) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(f.Members))
	for _, m := range f.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func memberViews(f *models.Family, names map[primitive.ObjectID]string) []MemberView {
	out := make([]MemberView, 0, len(f.Members))
	for _, m := range f.Members {
		out = append(out, MemberView{
			UserID:      m.UserID,
			Username:    names[m.UserID],
			Role:        m.Role,
			Permissions: m.Permissions,
			JoinedAt:    m.JoinedAt,
			InvitedBy:   m.InvitedBy,
			IsOwner:     f.IsOwner(m.UserID),
		})
	}
	return out
}

// details resolves member usernames and, for members allowed to see the
// pool, the family spend summary. The two lookups run concurrently.
func (s *Service) details(ctx context.Context, userID primitive.ObjectID, f *models.Family) (*Details, error) {
	var (
		names   map[primitive.ObjectID]string
		summary *expensestore.Totals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		names, err = s.Users.UsernamesByID(gctx, memberIDs(f))
		return err
	})
	if familypolicy.CanViewFamilyExpenses(userID, f) {
		g.Go(func() error {
			famID := f.ID
			t, err := s.Expenses.Totals(gctx, expensestore.Filter{FamilyID: &famID})
			if err != nil {
				return err
			}
			summary = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}

	me, _ := f.Member(userID)
	return &Details{
		ID:            f.ID,
		Name:          f.Name,
		Description:   f.Description,
		OwnerID:       f.OwnerID,
		InviteCode:    f.InviteCode,
		Settings:      f.Settings,
		Members:       memberViews(f, names),
		Invitations:   f.PendingInvitations(s.Now()),
		MyRole:        me.Role,
		MyPermissions: me.Permissions,
		IsOwner:       f.IsOwner(userID),
		Summary:       summary,
		CreatedAt:     f.CreatedAt,
	}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Invitations                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Invite records an invitation on the caller's family and returns the code
// the invitee joins with.
func (s *Service) Invite(ctx context.Context, userID primitive.ObjectID, in InviteInput) (*InviteResult, error) {
	u, f, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errNoFamily
	}

	role := normalize.Role(in.Role)
	if role == "" {
		role = f.Settings.DefaultMemberRole
	}
	if !models.IsValidRole(role) {
		return nil, apperr.Validation(`role must be "admin", "member" or "viewer"`)
	}
	if !familypolicy.CanInvite(u.ID, f, role) {
		s.Metrics.Denied(string(models.ActionInvite))
		return nil, apperr.Forbidden("you are not allowed to invite members")
	}

	email := normalize.Email(in.Email)
	if err := authutil.ValidateEmail(email); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	now := s.Now()
	inv := models.Invitation{
		Token:     uuid.NewString(),
		Email:     email,
		Username:  normalize.Username(in.Username),
		Role:      role,
		InvitedBy: u.ID,
		InvitedAt: now,
		ExpiresAt: now.Add(models.InvitationTTL),
		Status:    models.InvitationPending,
	}
	if err := s.Families.AddInvitation(ctx, f.ID, inv); err != nil {
		if errors.Is(err, familystore.ErrNotFound) {
			return nil, errNoFamily
		}
		return nil, storeErr(err)
	}
	return &InviteResult{InviteCode: f.InviteCode, Invitation: inv, FamilyID: f.ID}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Member management                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// manageable loads the caller's family and checks they may manage targetID.
func (s *Service) manageable(ctx context.Context, actorID, targetID primitive.ObjectID) (*models.Family, error) {
	_, f, err := s.load(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		s.Metrics.Denied(string(models.ActionManage))
		return nil, errNoFamily
	}
	switch familypolicy.CanManageMember(actorID, f, targetID) {
	case familypolicy.ManageForbidden:
		s.Metrics.Denied(string(models.ActionManage))
		return nil, apperr.Forbidden("you are not allowed to manage members")
	case familypolicy.ManageTargetIsOwner:
		return nil, apperr.Validation("the family owner cannot be modified")
	case familypolicy.ManageTargetNotMember:
		return nil, apperr.NotFound("member not found")
	}
	return f, nil
}

func memberWriteErr(err error) error {
	switch {
	case errors.Is(err, familystore.ErrOwnerImmutable):
		return apperr.Validation("the family owner cannot be modified")
	case errors.Is(err, familystore.ErrNotMember):
		return apperr.NotFound("member not found")
	case errors.Is(err, familystore.ErrNotFound):
		return errNoFamily
	}
	return storeErr(err)
}

// UpdateMember changes a member's role and/or individual permission flags.
// Flags absent from the input are left as they are. Returns the updated
// member and the family id.
func (s *Service) UpdateMember(ctx context.Context, actorID, targetID primitive.ObjectID, in MemberInput) (*MemberView, primitive.ObjectID, error) {
	role := normalize.Role(in.Role)
	if role != "" && !models.IsValidRole(role) {
		return nil, primitive.NilObjectID, apperr.Validation(`role must be "admin", "member" or "viewer"`)
	}
	if role == "" && len(in.Permissions.Changes()) == 0 {
		return nil, primitive.NilObjectID, apperr.Validation("role or permissions are required")
	}

	f, err := s.manageable(ctx, actorID, targetID)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}

	m, err := s.Families.UpdateMember(ctx, f.ID, targetID, role, in.Permissions)
	if err != nil {
		return nil, primitive.NilObjectID, memberWriteErr(err)
	}
	if role != "" {
		if err := s.Users.SetRole(ctx, targetID, role); err != nil {
			return nil, primitive.NilObjectID, apperr.Internal(err)
		}
	}

	names, err := s.Users.UsernamesByID(ctx, []primitive.ObjectID{targetID})
	if err != nil {
		return nil, primitive.NilObjectID, apperr.Internal(err)
	}
	return &MemberView{
		UserID:      m.UserID,
		Username:    names[m.UserID],
		Role:        m.Role,
		Permissions: m.Permissions,
		JoinedAt:    m.JoinedAt,
		InvitedBy:   m.InvitedBy,
	}, f.ID, nil
}

// RemoveMember takes targetID out of the caller's family and clears their link.
// Returns the family id.
func (s *Service) RemoveMember(ctx context.Context, actorID, targetID primitive.ObjectID) (primitive.ObjectID, error) {
	f, err := s.manageable(ctx, actorID, targetID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if err := s.Families.RemoveMember(ctx, f.ID, targetID); err != nil {
		return primitive.NilObjectID, memberWriteErr(err)
	}
	if err := s.Users.UnlinkFamily(ctx, targetID, f.ID); err != nil {
		return primitive.NilObjectID, apperr.Internal(err)
	}
	return f.ID, nil
}
