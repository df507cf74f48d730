// internal/app/features/account/service.go
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/depensify/internal/app/features/family"
	deploymentstore "github.com/dalemusser/depensify/internal/app/store/deployment"
	"github.com/dalemusser/depensify/internal/app/store/storeerr"
	userstore "github.com/dalemusser/depensify/internal/app/store/users"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/auth"
	"github.com/dalemusser/depensify/internal/app/system/authutil"
	"github.com/dalemusser/depensify/internal/app/system/normalize"
	"github.com/dalemusser/depensify/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service handles registration, login and identity lookup.
type Service struct {
	Users      *userstore.Store
	Deployment *deploymentstore.Store
	Families   *family.Service
	Tokens     *auth.Manager
	BcryptCost int
	Log        *zap.Logger
}

func NewService(db *mongo.Database, families *family.Service, tokens *auth.Manager, bcryptCost int, logger *zap.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = authutil.DefaultCost
	}
	return &Service{
		Users:      userstore.New(db),
		Deployment: deploymentstore.New(db),
		Families:   families,
		Tokens:     tokens,
		BcryptCost: bcryptCost,
		Log:        logger,
	}
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// RegisterResult is the outcome of a registration. Token and Family are set
// only for the bootstrap admin; everyone else waits for approval.
type RegisterResult struct {
	User      models.User
	Token     string
	Bootstrap bool
	Family    *models.Family
}

// Register creates an account. The first account of the deployment claims the
// bootstrap marker, is approved as system admin and gets its own family.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	username := normalize.Username(in.Username)
	if username == "" || in.Password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	if err := authutil.ValidateUsername(username); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	email := normalize.Email(in.Email)
	if err := authutil.ValidateEmail(email); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	hash, err := authutil.HashPasswordWithCost(in.Password, s.BcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	u, err := s.Users.Create(ctx, models.User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Role:         models.DefaultUserRole,
		Status:       models.StatusPending,
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateUsername), errors.Is(err, userstore.ErrDuplicateEmail):
		return nil, apperr.Conflict(err.Error())
	case err != nil:
		var ve *storeerr.ValidationError
		if errors.As(err, &ve) {
			return nil, apperr.ValidationFields(ve.Fields...)
		}
		return nil, apperr.Internal(err)
	}

	claimed, err := s.Deployment.ClaimBootstrapAdmin(ctx, u.ID)
	if err != nil {
		// The account exists and stays pending; an admin can approve it.
		s.Log.Warn("bootstrap claim failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		return &RegisterResult{User: u}, nil
	}
	if !claimed {
		return &RegisterResult{User: u}, nil
	}

	return s.bootstrap(ctx, u)
}

func (s *Service) bootstrap(ctx context.Context, u models.User) (*RegisterResult, error) {
	if err := s.Users.PromoteBootstrapAdmin(ctx, u.ID); err != nil {
		if rerr := s.Deployment.ReleaseBootstrapAdmin(ctx, u.ID); rerr != nil {
			s.Log.Error("release bootstrap marker", zap.String("user_id", u.ID.Hex()), zap.Error(rerr))
		}
		return nil, apperr.Internal(err)
	}

	fam, err := s.Families.Provision(ctx, u.ID, u.Username)
	if err != nil {
		// The admin is approved; a family can still be created by hand.
		s.Log.Error("provision bootstrap family", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		return nil, apperr.Internal(err)
	}

	u.Status = models.StatusApproved
	u.IsAdmin = true
	u.Role = models.RoleAdmin
	u.FamilyID = &fam.ID

	token, err := s.Tokens.Issue(u.ID, u.Username, true)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &RegisterResult{User: u, Token: token, Bootstrap: true, Family: fam}, nil
}

// Login checks credentials. Unknown usernames, then account status, then the
// password are checked in that order. The returned user is non-nil whenever
// the account was found, even when err is set.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", apperr.Validation("username and password are required")
	}

	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, "", apperr.NotFound("user not found")
		}
		return nil, "", apperr.Internal(err)
	}

	switch u.Status {
	case models.StatusPending:
		return u, "", apperr.ForbiddenStatus("your account is awaiting administrator approval", models.StatusPending)
	case models.StatusRejected:
		return u, "", apperr.ForbiddenStatus("your account request was rejected", models.StatusRejected)
	}

	if !authutil.CheckPassword(password, u.PasswordHash) {
		return u, "", apperr.InvalidCredentials("incorrect password")
	}

	token, err := s.Tokens.Issue(u.ID, u.Username, u.IsAdmin)
	if err != nil {
		return u, "", apperr.Internal(err)
	}
	return u, token, nil
}

// Me returns the persisted user.
func (s *Service) Me(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}
