// internal/app/features/approvals/service.go
package approvals

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/dalemusser/depensify/internal/app/features/family"
	userstore "github.com/dalemusser/depensify/internal/app/store/users"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/htmlsanitize"
	"github.com/dalemusser/depensify/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxReasonLen bounds a rejection reason, in characters.
const MaxReasonLen = 500

// Service moves pending accounts to approved or rejected.
type Service struct {
	Users    *userstore.Store
	Families *family.Service
	Log      *zap.Logger
}

func NewService(db *mongo.Database, families *family.Service, logger *zap.Logger) *Service {
	return &Service{
		Users:    userstore.New(db),
		Families: families,
		Log:      logger,
	}
}

// ListPending returns accounts awaiting review, newest first.
func (s *Service) ListPending(ctx context.Context) ([]models.User, error) {
	users, err := s.Users.ListPending(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// Approve approves a pending account and gives it a family of its own.
func (s *Service) Approve(ctx context.Context, reviewerID, userID primitive.ObjectID) (*models.User, error) {
	u, err := s.Users.Review(ctx, userID, models.StatusApproved, reviewerID, "")
	if err != nil {
		return nil, reviewErr(err)
	}

	fam, err := s.Families.Provision(ctx, u.ID, u.Username)
	if err != nil {
		// The approval stands; the user can create a family after logging in.
		s.Log.Error("provision family for approved user",
			zap.String("user_id", u.ID.Hex()),
			zap.Error(err))
		return nil, apperr.Internal(err)
	}
	u.FamilyID = &fam.ID
	u.Role = models.RoleAdmin
	return u, nil
}

// Reject rejects a pending account, recording the optional reason.
func (s *Service) Reject(ctx context.Context, reviewerID, userID primitive.ObjectID, reason string) (*models.User, error) {
	reason = htmlsanitize.PlainText(reason)
	if utf8.RuneCountInString(reason) > MaxReasonLen {
		return nil, apperr.Validation("reason is too long")
	}
	u, err := s.Users.Review(ctx, userID, models.StatusRejected, reviewerID, reason)
	if err != nil {
		return nil, reviewErr(err)
	}
	return u, nil
}

func reviewErr(err error) error {
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		return apperr.NotFound("user not found")
	case errors.Is(err, userstore.ErrNotPending):
		return apperr.InvalidState("user is not pending approval")
	}
	return apperr.Internal(err)
}
