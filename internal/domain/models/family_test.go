package models_test

import (
	"testing"
	"time"

	"github.com/dalemusser/depensify/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFamily_Member(t *testing.T) {
	owner := primitive.NewObjectID()
	other := primitive.NewObjectID()
	f := &models.Family{
		OwnerID: owner,
		Members: []models.Member{{UserID: owner, Role: models.RoleAdmin}},
	}

	if m, ok := f.Member(owner); !ok || m.Role != models.RoleAdmin {
		t.Errorf("expected owner member entry, got %+v ok=%v", m, ok)
	}
	if _, ok := f.Member(other); ok {
		t.Error("non-member should not be found")
	}
	if !f.IsOwner(owner) || f.IsOwner(other) {
		t.Error("IsOwner mismatch")
	}

	var nilFamily *models.Family
	if _, ok := nilFamily.Member(owner); ok {
		t.Error("nil family has no members")
	}
}

func TestFamily_PendingInvitations(t *testing.T) {
	now := time.Now()
	f := &models.Family{Invitations: []models.Invitation{
		{Token: "a", Status: models.InvitationPending, ExpiresAt: now.Add(time.Hour)},
		{Token: "b", Status: models.InvitationAccepted, ExpiresAt: now.Add(time.Hour)},
		{Token: "c", Status: models.InvitationPending, ExpiresAt: now.Add(-time.Hour)},
	}}

	got := f.PendingInvitations(now)
	if len(got) != 1 || got[0].Token != "a" {
		t.Errorf("expected only invitation a, got %+v", got)
	}
}

func TestIsValidCategory(t *testing.T) {
	for _, c := range models.Categories {
		if !models.IsValidCategory(c) {
			t.Errorf("%q should be valid", c)
		}
	}
	if models.IsValidCategory("Groceries") {
		t.Error("Groceries should not be valid")
	}
	if len(models.Categories) != 8 {
		t.Errorf("expected 8 categories, got %d", len(models.Categories))
	}
}
