package family_test

import (
	"testing"
	"time"

	"github.com/dalemusser/depensify/internal/app/features/family"
	familystore "github.com/dalemusser/depensify/internal/app/store/families"
	userstore "github.com/dalemusser/depensify/internal/app/store/users"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/metrics"
	"github.com/dalemusser/depensify/internal/domain/models"
	"github.com/dalemusser/depensify/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newService(t *testing.T, db *mongo.Database) *family.Service {
	t.Helper()
	return family.NewService(db, metrics.New(), zap.NewNop())
}

func wantKind(t *testing.T, err error, k apperr.Kind) {
	t.Helper()
	if !apperr.IsKind(err, k) {
		t.Fatalf("expected %s error, got %v", k, err)
	}
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestCreate_SeedsOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	d, err := svc.Create(ctx, alice.ID, family.CreateInput{
		Name:     "  Les Martin  ",
		Settings: family.SettingsPatch{DefaultMemberRole: strPtr("viewer")},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if d.Name != "Les Martin" {
		t.Errorf("name: got %q", d.Name)
	}
	if len(d.InviteCode) != models.InviteCodeLength {
		t.Errorf("invite code: got %q", d.InviteCode)
	}
	if d.Settings.DefaultMemberRole != models.RoleViewer || d.Settings.AllowMemberInvites || !d.Settings.RequireApprovalForJoin {
		t.Errorf("settings not merged onto defaults: %+v", d.Settings)
	}
	if !d.IsOwner || d.MyRole != models.RoleAdmin || d.MyPermissions != models.FullPermissions() {
		t.Errorf("owner view wrong: %+v", d)
	}
	if len(d.Members) != 1 || d.Members[0].Username != "alice" || !d.Members[0].IsOwner {
		t.Errorf("members: %+v", d.Members)
	}
	if d.Summary == nil || d.Summary.Count != 0 {
		t.Errorf("expected empty summary, got %+v", d.Summary)
	}

	u, err := userstore.New(db).GetByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.FamilyID == nil || *u.FamilyID != d.ID || u.Role != models.RoleAdmin {
		t.Errorf("user not linked: %+v", u)
	}
}

func TestCreate_DefaultName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	d, err := newService(t, db).Create(ctx, alice.ID, family.CreateInput{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if d.Name != models.DefaultFamilyName {
		t.Errorf("name: got %q, want %q", d.Name, models.DefaultFamilyName)
	}
}

func TestCreate_AlreadyInFamily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	fx.CreateFamily(ctx, &alice, "Alice", "AAAAAA")

	_, err := newService(t, db).Create(ctx, alice.ID, family.CreateInput{Name: "Second"})
	wantKind(t, err, apperr.KindConflict)
}

func TestCreateJoin_ClearsDanglingFamilyLink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	carol := fx.CreateApprovedUser(ctx, "carol")
	gone := fx.CreateFamily(ctx, &alice, "Gone", "GONE11")
	fx.AddMember(ctx, &gone, &bob, models.RoleMember)
	if err := familystore.New(db).Delete(ctx, gone.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	d, err := svc.Create(ctx, alice.ID, family.CreateInput{Name: "Fresh Start"})
	if err != nil {
		t.Fatalf("Create with dangling link: %v", err)
	}
	if u, _ := userstore.New(db).GetByID(ctx, alice.ID); u.FamilyID == nil || *u.FamilyID != d.ID {
		t.Errorf("alice not linked to new family: %+v", u.FamilyID)
	}

	other := fx.CreateFamily(ctx, &carol, "Carol", "CAROL1")
	if _, err := svc.Join(ctx, bob.ID, other.InviteCode); err != nil {
		t.Fatalf("Join with dangling link: %v", err)
	}
	if u, _ := userstore.New(db).GetByID(ctx, bob.ID); u.FamilyID == nil || *u.FamilyID != other.ID {
		t.Errorf("bob not linked to joined family: %+v", u.FamilyID)
	}
}

func TestCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	_, err := svc.Create(ctx, alice.ID, family.CreateInput{Name: "X"})
	wantKind(t, err, apperr.KindValidation)

	_, err = svc.Create(ctx, alice.ID, family.CreateInput{
		Settings: family.SettingsPatch{DefaultMemberRole: strPtr("admin")},
	})
	wantKind(t, err, apperr.KindValidation)
}

func TestJoin_ViewerDefaultRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)
	svc.Families = familystore.NewWithCodeGenerator(db, func() (string, error) { return "AB12CD", nil })

	alice := fx.CreateApprovedUser(ctx, "alice")
	carol := fx.CreateApprovedUser(ctx, "carol")

	f, err := svc.Create(ctx, alice.ID, family.CreateInput{
		Name:     "Alice",
		Settings: family.SettingsPatch{DefaultMemberRole: strPtr("viewer")},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if f.InviteCode != "AB12CD" {
		t.Fatalf("invite code: got %q", f.InviteCode)
	}

	d, err := svc.Join(ctx, carol.ID, "ab12cd")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if d.MyRole != models.RoleViewer {
		t.Errorf("role: got %q, want viewer", d.MyRole)
	}
	if d.MyPermissions.CanAddExpenses || !d.MyPermissions.CanViewAllExpenses {
		t.Errorf("viewer permissions wrong: %+v", d.MyPermissions)
	}
	if len(d.Members) != 2 {
		t.Errorf("expected 2 members, got %d", len(d.Members))
	}

	u, _ := userstore.New(db).GetByID(ctx, carol.ID)
	if u.FamilyID == nil || *u.FamilyID != f.ID || u.Role != models.RoleViewer {
		t.Errorf("user not linked: %+v", u)
	}
}

func TestJoin_MemberDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")

	d, err := svc.Join(ctx, bob.ID, f.InviteCode)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if d.MyPermissions != models.DefaultPermissions(models.RoleMember) {
		t.Errorf("member permissions wrong: %+v", d.MyPermissions)
	}
}

func TestJoin_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")

	_, err := svc.Join(ctx, bob.ID, "NOPE99")
	wantKind(t, err, apperr.KindNotFound)

	_, err = svc.Join(ctx, bob.ID, "  ")
	wantKind(t, err, apperr.KindValidation)

	_, err = svc.Join(ctx, alice.ID, f.InviteCode)
	wantKind(t, err, apperr.KindConflict)

	if _, err := svc.Join(ctx, bob.ID, f.InviteCode); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	_, err = svc.Join(ctx, bob.ID, f.InviteCode)
	wantKind(t, err, apperr.KindConflict)
}

func TestLeave(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")
	fx.AddMember(ctx, &f, &bob, models.RoleMember)

	_, err := svc.Leave(ctx, alice.ID)
	wantKind(t, err, apperr.KindInvalidState)

	famID, err := svc.Leave(ctx, bob.ID)
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if famID != f.ID {
		t.Errorf("family id: got %s, want %s", famID.Hex(), f.ID.Hex())
	}

	u, _ := userstore.New(db).GetByID(ctx, bob.ID)
	if u.HasFamily() || u.Role != models.DefaultUserRole {
		t.Errorf("user not unlinked: %+v", u)
	}
	fam, _ := familystore.New(db).GetByID(ctx, f.ID)
	if _, ok := fam.Member(bob.ID); ok {
		t.Error("member entry should be gone")
	}

	_, err = svc.Leave(ctx, bob.ID)
	wantKind(t, err, apperr.KindInvalidState)
}

func TestTransferOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	carol := fx.CreateApprovedUser(ctx, "carol")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")
	fx.AddMember(ctx, &f, &bob, models.RoleViewer)

	_, err := svc.TransferOwnership(ctx, bob.ID, alice.ID)
	wantKind(t, err, apperr.KindForbidden)

	_, err = svc.TransferOwnership(ctx, alice.ID, carol.ID)
	wantKind(t, err, apperr.KindValidation)

	d, err := svc.TransferOwnership(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("TransferOwnership failed: %v", err)
	}
	if d.OwnerID != bob.ID || d.IsOwner {
		t.Errorf("ownership not moved: owner=%s isOwner=%v", d.OwnerID.Hex(), d.IsOwner)
	}
	if d.MyRole != models.RoleMember || d.MyPermissions != models.DefaultPermissions(models.RoleMember) {
		t.Errorf("former owner should get member defaults, got %s %+v", d.MyRole, d.MyPermissions)
	}

	fam, _ := familystore.New(db).GetByID(ctx, f.ID)
	m, _ := fam.Member(bob.ID)
	if m.Role != models.RoleAdmin || m.Permissions != models.FullPermissions() {
		t.Errorf("new owner entry wrong: %+v", m)
	}
	users := userstore.New(db)
	if u, _ := users.GetByID(ctx, bob.ID); u.Role != models.RoleAdmin {
		t.Errorf("new owner user role: got %q", u.Role)
	}
	if u, _ := users.GetByID(ctx, alice.ID); u.Role != models.RoleMember {
		t.Errorf("former owner user role: got %q", u.Role)
	}
}

func TestUpdateSettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")
	fx.AddMember(ctx, &f, &bob, models.RoleAdmin)

	in := family.SettingsInput{Settings: family.SettingsPatch{AllowMemberInvites: boolPtr(true)}}
	_, err := svc.UpdateSettings(ctx, bob.ID, in)
	wantKind(t, err, apperr.KindForbidden)

	in.Name = strPtr("Famille Martin")
	d, err := svc.UpdateSettings(ctx, alice.ID, in)
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if d.Name != "Famille Martin" || !d.Settings.AllowMemberInvites {
		t.Errorf("update not applied: %+v", d)
	}
	if !d.Settings.RequireApprovalForJoin || d.Settings.DefaultMemberRole != models.RoleMember {
		t.Errorf("untouched settings changed: %+v", d.Settings)
	}

	_, err = svc.UpdateSettings(ctx, alice.ID, family.SettingsInput{Name: strPtr("")})
	wantKind(t, err, apperr.KindValidation)
}

func TestDetails_NoFamily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	d, err := newService(t, db).Details(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	if d != nil {
		t.Errorf("expected nil details, got %+v", d)
	}
}

func TestDetails_PendingInvitationsOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")
	fx.CreateExpense(ctx, alice.ID, &f.ID, models.CategoryFood, 12.5, time.Now().UTC())

	store := familystore.New(db)
	now := time.Now().UTC()
	for _, inv := range []models.Invitation{
		{Token: "live", Role: models.RoleMember, InvitedBy: alice.ID, InvitedAt: now, ExpiresAt: now.Add(time.Hour), Status: models.InvitationPending},
		{Token: "expired", Role: models.RoleMember, InvitedBy: alice.ID, InvitedAt: now, ExpiresAt: now.Add(-time.Hour), Status: models.InvitationPending},
		{Token: "used", Role: models.RoleMember, InvitedBy: alice.ID, InvitedAt: now, ExpiresAt: now.Add(time.Hour), Status: models.InvitationAccepted},
	} {
		if err := store.AddInvitation(ctx, f.ID, inv); err != nil {
			t.Fatalf("AddInvitation: %v", err)
		}
	}

	d, err := svc.Details(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	if len(d.Invitations) != 1 || d.Invitations[0].Token != "live" {
		t.Errorf("expected only the live invitation, got %+v", d.Invitations)
	}
	if d.Summary == nil || d.Summary.Count != 1 || d.Summary.Total != 12.5 {
		t.Errorf("summary: %+v", d.Summary)
	}
}

func TestDetails_NoSummaryWithoutViewAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")
	fx.AddMember(ctx, &f, &bob, models.RoleMember)
	fx.SetPermissions(ctx, f.ID, bob.ID, models.Permissions{CanAddExpenses: true})

	d, err := newService(t, db).Details(ctx, bob.ID)
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	if d.Summary != nil {
		t.Errorf("summary should be hidden, got %+v", d.Summary)
	}
}

func TestMembers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	loner := fx.CreateApprovedUser(ctx, "loner")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")
	fx.AddMember(ctx, &f, &bob, models.RoleViewer)

	members, err := svc.Members(ctx, bob.ID)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[1].Username != "bob" || members[1].Role != models.RoleViewer || members[1].IsOwner {
		t.Errorf("bob entry wrong: %+v", members[1])
	}

	_, err = svc.Members(ctx, loner.ID)
	wantKind(t, err, apperr.KindForbidden)
}

func TestInvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	m := metrics.New()
	svc := family.NewService(db, m, zap.NewNop())

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")
	fx.AddMember(ctx, &f, &bob, models.RoleMember)

	res, err := svc.Invite(ctx, alice.ID, family.InviteInput{Email: "Dan@Example.com"})
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if res.InviteCode != "QWERTY" || res.FamilyID != f.ID {
		t.Errorf("result: %+v", res)
	}
	inv := res.Invitation
	if inv.Email != "dan@example.com" || inv.Role != models.RoleMember || inv.Status != models.InvitationPending || inv.Token == "" {
		t.Errorf("invitation: %+v", inv)
	}
	if got := inv.ExpiresAt.Sub(inv.InvitedAt); got != models.InvitationTTL {
		t.Errorf("expiry window: got %v", got)
	}

	// members cannot invite until the family allows it
	_, err = svc.Invite(ctx, bob.ID, family.InviteInput{})
	wantKind(t, err, apperr.KindForbidden)
	if got := promtest.ToFloat64(m.PermissionDenials.WithLabelValues("invite")); got != 1 {
		t.Errorf("denials: got %v, want 1", got)
	}

	if _, err := svc.UpdateSettings(ctx, alice.ID, family.SettingsInput{
		Settings: family.SettingsPatch{AllowMemberInvites: boolPtr(true)},
	}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if _, err := svc.Invite(ctx, bob.ID, family.InviteInput{Username: "dan"}); err != nil {
		t.Errorf("member invite should be allowed now: %v", err)
	}
	_, err = svc.Invite(ctx, bob.ID, family.InviteInput{Role: "admin"})
	wantKind(t, err, apperr.KindForbidden)

	_, err = svc.Invite(ctx, alice.ID, family.InviteInput{Email: "not-an-email"})
	wantKind(t, err, apperr.KindValidation)
}

func TestUpdateMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	carol := fx.CreateApprovedUser(ctx, "carol")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")
	fx.AddMember(ctx, &f, &bob, models.RoleMember)

	patch := models.PermissionPatch{CanEditAllExpenses: boolPtr(true)}
	mv, famID, err := svc.UpdateMember(ctx, alice.ID, bob.ID, family.MemberInput{Permissions: patch})
	if err != nil {
		t.Fatalf("UpdateMember failed: %v", err)
	}
	if famID != f.ID {
		t.Errorf("family id mismatch")
	}
	want := models.DefaultPermissions(models.RoleMember)
	want.CanEditAllExpenses = true
	if mv.Permissions != want || mv.Role != models.RoleMember || mv.Username != "bob" {
		t.Errorf("partial patch wrong: %+v", mv)
	}

	mv, _, err = svc.UpdateMember(ctx, alice.ID, bob.ID, family.MemberInput{Role: "Viewer"})
	if err != nil {
		t.Fatalf("UpdateMember role failed: %v", err)
	}
	if mv.Role != models.RoleViewer || mv.Permissions != want {
		t.Errorf("role change should keep flags: %+v", mv)
	}
	if u, _ := userstore.New(db).GetByID(ctx, bob.ID); u.Role != models.RoleViewer {
		t.Errorf("user role hint: got %q", u.Role)
	}

	_, _, err = svc.UpdateMember(ctx, bob.ID, alice.ID, family.MemberInput{Role: "viewer"})
	wantKind(t, err, apperr.KindForbidden)

	_, _, err = svc.UpdateMember(ctx, alice.ID, alice.ID, family.MemberInput{Role: "viewer"})
	wantKind(t, err, apperr.KindValidation)

	_, _, err = svc.UpdateMember(ctx, alice.ID, carol.ID, family.MemberInput{Role: "viewer"})
	wantKind(t, err, apperr.KindNotFound)

	_, _, err = svc.UpdateMember(ctx, alice.ID, bob.ID, family.MemberInput{Role: "boss"})
	wantKind(t, err, apperr.KindValidation)

	_, _, err = svc.UpdateMember(ctx, alice.ID, bob.ID, family.MemberInput{})
	wantKind(t, err, apperr.KindValidation)
}

func TestRemoveMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	alice := fx.CreateApprovedUser(ctx, "alice")
	bob := fx.CreateApprovedUser(ctx, "bob")
	f := fx.CreateFamily(ctx, &alice, "Alice", "QWERTY")
	fx.AddMember(ctx, &f, &bob, models.RoleMember)

	_, err := svc.RemoveMember(ctx, bob.ID, alice.ID)
	wantKind(t, err, apperr.KindForbidden)

	_, err = svc.RemoveMember(ctx, alice.ID, alice.ID)
	wantKind(t, err, apperr.KindValidation)

	if _, err := svc.RemoveMember(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	u, _ := userstore.New(db).GetByID(ctx, bob.ID)
	if u.HasFamily() || u.Role != models.DefaultUserRole {
		t.Errorf("removed user still linked: %+v", u)
	}

	_, err = svc.RemoveMember(ctx, alice.ID, bob.ID)
	wantKind(t, err, apperr.KindNotFound)

	_, err = svc.RemoveMember(ctx, alice.ID, primitive.NewObjectID())
	wantKind(t, err, apperr.KindNotFound)
}

func TestProvision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := newService(t, db)

	bob := fx.CreateApprovedUser(ctx, "bob")
	f, err := svc.Provision(ctx, bob.ID, bob.Username)
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if f.Name != "bob's Family" || f.OwnerID != bob.ID {
		t.Errorf("family: %+v", f)
	}

	// a second provision must not leave an orphan family behind
	if _, err := svc.Provision(ctx, bob.ID, bob.Username); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	n, err := db.Collection("families").CountDocuments(ctx, map[string]any{"owner_id": bob.ID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 family for bob, got %d", n)
	}
}
