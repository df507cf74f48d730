package approvals_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/depensify/internal/app/features/approvals"
	uierrors "github.com/dalemusser/depensify/internal/app/features/errors"
	"github.com/dalemusser/depensify/internal/app/features/family"
	familystore "github.com/dalemusser/depensify/internal/app/store/families"
	userstore "github.com/dalemusser/depensify/internal/app/store/users"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/domain/models"
	"github.com/dalemusser/depensify/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newService(db *mongo.Database) *approvals.Service {
	return approvals.NewService(db, family.NewService(db, nil, zap.NewNop()), zap.NewNop())
}

func newRouter(db *mongo.Database) http.Handler {
	h := approvals.NewHandler(newService(db), uierrors.NewErrorLogger(zap.NewNop()), nil, nil, zap.NewNop())
	return approvals.Routes(h)
}

func TestListPending_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	fx.CreatePendingUser(ctx, "first")
	fx.CreateApprovedUser(ctx, "approved")
	fx.CreatePendingUser(ctx, "second")

	users, err := newService(db).ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 pending users, got %d", len(users))
	}
	if users[0].Username != "second" {
		t.Errorf("expected newest first, got %q", users[0].Username)
	}
	if users[0].PasswordHash != "" {
		t.Error("credentials must be projected out")
	}
}

func TestApprove_ProvisionsFamily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateAdminUser(ctx, "root")
	bob := fx.CreatePendingUser(ctx, "bob")

	svc := newService(db)
	u, err := svc.Approve(ctx, admin.ID, bob.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if u.Status != models.StatusApproved || !u.HasFamily() {
		t.Fatalf("expected approved user with a family, got %+v", u)
	}

	stored, err := userstore.New(db).GetByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.ReviewedBy == nil || *stored.ReviewedBy != admin.ID {
		t.Error("reviewer not recorded")
	}
	fam, err := familystore.New(db).GetByID(ctx, *stored.FamilyID)
	if err != nil {
		t.Fatalf("family GetByID: %v", err)
	}
	if fam.Name != "bob's Family" || !fam.IsOwner(bob.ID) {
		t.Errorf("unexpected family %q owner %s", fam.Name, fam.OwnerID.Hex())
	}

	if _, err := svc.Approve(ctx, admin.ID, bob.ID); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("second approve: expected invalid state, got %v", err)
	}
}

func TestReject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateAdminUser(ctx, "root")
	bob := fx.CreatePendingUser(ctx, "bob")
	svc := newService(db)

	if _, err := svc.Reject(ctx, admin.ID, bob.ID, strings.Repeat("x", approvals.MaxReasonLen+1)); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("long reason: expected validation error, got %v", err)
	}

	u, err := svc.Reject(ctx, admin.ID, bob.ID, "  <b>duplicate</b> account ")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if u.Status != models.StatusRejected {
		t.Errorf("status: got %q", u.Status)
	}
	if u.RejectionReason != "duplicate account" {
		t.Errorf("reason: got %q", u.RejectionReason)
	}

	if _, err := svc.Approve(ctx, admin.ID, bob.ID); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("approve after reject: expected invalid state, got %v", err)
	}
	if _, err := svc.Reject(ctx, admin.ID, primitive.NewObjectID(), ""); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("unknown user: expected not found, got %v", err)
	}
}

func TestRoutes_RequireAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	alice := fx.CreateApprovedUser(ctx, "alice")
	router := newRouter(db)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/pending-users", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: got %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.WithUser(httptest.NewRequest("GET", "/pending-users", nil), alice))
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin: got %d, want 403", rec.Code)
	}
}

func TestHandleApprove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateAdminUser(ctx, "root")
	bob := fx.CreatePendingUser(ctx, "bob")
	router := newRouter(db)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.WithUser(httptest.NewRequest("POST", "/approve-user/nope", nil), admin))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: got %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.WithUser(httptest.NewRequest("POST", "/approve-user/"+bob.ID.Hex(), nil), admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: got %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if body.User.Status != models.StatusApproved || body.User.FamilyID == nil {
		t.Errorf("unexpected user in response: %+v", body.User)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.WithUser(testutil.JSONRequest(t, "POST", "/reject-user/"+bob.ID.Hex(), map[string]string{"reason": "late"}), admin))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reject approved user: got %d, want 400", rec.Code)
	}
}
