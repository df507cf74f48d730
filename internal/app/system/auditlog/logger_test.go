package auditlog_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/depensify/internal/app/store/audit"
	"github.com/dalemusser/depensify/internal/app/system/auditlog"
	"github.com/dalemusser/depensify/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("POST", "/api/login", nil)

	// no-ops, must not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), nil, "alice")
	logger.FamilyEvent(ctx, req, audit.EventFamilyJoined, primitive.NewObjectID(), nil, primitive.NewObjectID(), nil)
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.Off})
	userID := primitive.NewObjectID()
	logger.LoginSuccess(ctx, httptest.NewRequest("POST", "/api/login", nil), userID, nil, "alice")

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("expected no events when config is 'off'")
	}
}

func TestLogger_Log_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	core, logs := observer.New(zap.InfoLevel)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: auditlog.DB})
	userID := primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/api/login", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	logger.LoginSuccess(ctx, req, userID, nil, "alice")

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != audit.EventLoginSuccess {
		t.Errorf("EventType: got %q", events[0].EventType)
	}
	if events[0].IP != "192.0.2.7" {
		t.Errorf("IP: got %q", events[0].IP)
	}
	if logs.Len() != 0 {
		t.Errorf("expected no zap output for 'db', got %d entries", logs.Len())
	}
}

func TestLogger_Log_ConfigLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	core, logs := observer.New(zap.InfoLevel)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.New(core), auditlog.Config{Admin: auditlog.Log})
	actor, target := primitive.NewObjectID(), primitive.NewObjectID()
	logger.UserRejected(ctx, httptest.NewRequest("POST", "/", nil), actor, target, "unknown")

	events, _ := store.GetByUser(ctx, target, 10)
	if len(events) != 0 {
		t.Errorf("expected nothing stored for 'log', got %d", len(events))
	}
	if logs.Len() != 1 {
		t.Fatalf("expected 1 zap entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["detail_reason"]; got != "unknown" {
		t.Errorf("detail_reason: got %v", got)
	}
}

func TestLogger_FailedLoginLoggedAsWarning(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.Log})
	logger.LoginFailedUserNotFound(ctx, httptest.NewRequest("POST", "/api/login", nil), "ghost")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if logs.All()[0].Level != zap.WarnLevel {
		t.Errorf("level: got %v, want warn", logs.All()[0].Level)
	}
}

func TestLogger_FamilyEvent_DefaultsToAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{})
	actor, target, familyID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	logger.FamilyEvent(ctx, httptest.NewRequest("DELETE", "/", nil), audit.EventFamilyMemberRemoved, actor, &target, familyID, nil)

	events, err := store.GetByFamily(ctx, familyID, 10)
	if err != nil {
		t.Fatalf("GetByFamily failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.UserID == nil || *e.UserID != target || e.ActorID == nil || *e.ActorID != actor {
		t.Errorf("unexpected actor/user: %+v", e)
	}
	if time.Since(e.Timestamp) > time.Minute {
		t.Errorf("expected recent timestamp, got %v", e.Timestamp)
	}
}
