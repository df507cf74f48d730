package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/depensify/internal/app/store/audit"
	"github.com/dalemusser/depensify/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_Log_WithDetails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserRejected,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"reason": "unknown"},
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, _ := store.GetByUser(ctx, userID, 10)
	if len(events) != 1 || events[0].Details["reason"] != "unknown" {
		t.Errorf("expected details to round-trip, got %+v", events)
	}
}

func TestStore_GetByUser_Limit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &userID, Success: true})
	}

	events, err := store.GetByUser(ctx, userID, 3)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
}

func TestStore_Query_ByCategoryAndFamily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fam1 := primitive.NewObjectID()
	fam2 := primitive.NewObjectID()
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryFamily, EventType: audit.EventFamilyJoined, FamilyID: &fam1, Success: true})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryFamily, EventType: audit.EventFamilyLeft, FamilyID: &fam1, Success: true})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryFamily, EventType: audit.EventFamilyJoined, FamilyID: &fam2, Success: true})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true})

	events, err := store.GetByFamily(ctx, fam1, 10)
	if err != nil {
		t.Fatalf("GetByFamily failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events for family 1, got %d", len(events))
	}

	count, err := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryFamily, EventType: audit.EventFamilyJoined})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 join events, got %d", count)
	}
}

func TestStore_GetFailedLogins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	since := time.Now().Add(-time.Minute)
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, Success: false})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedNotApproved, Success: false})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true})
	_ = store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginFailedUserNotFound,
		Timestamp: since.Add(-time.Hour),
	})

	events, err := store.GetFailedLogins(ctx, since, 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 recent failures, got %d", len(events))
	}
}
