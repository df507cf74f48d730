// internal/app/features/account/handler.go
package account

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/depensify/internal/app/features/errors"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/auditlog"
	"github.com/dalemusser/depensify/internal/app/system/authz"
	"github.com/dalemusser/depensify/internal/app/system/events"
	"github.com/dalemusser/depensify/internal/app/system/httpjson"
	"github.com/dalemusser/depensify/internal/app/system/metrics"
	"github.com/dalemusser/depensify/internal/app/system/ratelimit"
	"github.com/dalemusser/depensify/internal/app/system/timeouts"
	"github.com/dalemusser/depensify/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Svc      *Service
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Limiter  *ratelimit.LoginLimiter // nil disables throttling
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

func NewHandler(
	svc *Service,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	limiter *ratelimit.LoginLimiter,
	pub events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Handler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Handler{
		Svc:      svc,
		ErrLog:   errLog,
		AuditLog: audit,
		Limiter:  limiter,
		Events:   pub,
		Metrics:  m,
		Log:      logger,
	}
}

// userView is the public shape of an account in auth responses.
type userView struct {
	ID       primitive.ObjectID  `json:"id"`
	Username string              `json:"username"`
	Email    string              `json:"email,omitempty"`
	Role     string              `json:"role"`
	Status   string              `json:"status"`
	IsAdmin  bool                `json:"isAdmin"`
	FamilyID *primitive.ObjectID `json:"familyId"`
}

func viewOf(u models.User) userView {
	return userView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Status:   u.Status,
		IsAdmin:  u.IsAdmin,
		FamilyID: u.FamilyID,
	}
}

func (h *Handler) throttled(w http.ResponseWriter, r *http.Request, username string) bool {
	if h.Limiter == nil {
		return false
	}
	allowed, reason := h.Limiter.Check(r, username)
	if allowed {
		return false
	}
	h.AuditLog.LoginFailedRateLimit(r.Context(), r, username, reason)
	h.ErrLog.Write(w, r, apperr.RateLimited(reason))
	return true
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/register                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

type registerResponse struct {
	Token   string   `json:"token,omitempty"`
	User    userView `json:"user"`
	Message string   `json:"message"`
	Status  string   `json:"status"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if h.throttled(w, r, in.Username) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Svc.Register(ctx, in)
	h.Metrics.Auth("register", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	u := res.User
	h.AuditLog.UserRegistered(ctx, r, u.ID, u.Username, res.Bootstrap)
	events.Emit(r.Context(), h.Events, h.Log, events.New(events.UserRegistered, u.ID, u.ID, u.FamilyID).
		With("status", u.Status))

	if res.Bootstrap {
		h.AuditLog.BootstrapAdminClaimed(ctx, r, u.ID, u.FamilyID)
		h.Log.Info("bootstrap admin registered", zap.String("user_id", u.ID.Hex()), zap.String("username", u.Username))
		httpjson.Created(w, registerResponse{
			Token:   res.Token,
			User:    viewOf(u),
			Message: "administrator account created",
			Status:  u.Status,
		})
		return
	}

	httpjson.Created(w, registerResponse{
		User:    viewOf(u),
		Message: "account request created; awaiting administrator approval",
		Status:  models.StatusPending,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/login                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if h.throttled(w, r, in.Username) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, token, err := h.Svc.Login(ctx, in.Username, in.Password)
	h.Metrics.Auth("login", err)
	if err != nil {
		switch {
		case apperr.IsKind(err, apperr.KindNotFound):
			h.AuditLog.LoginFailedUserNotFound(ctx, r, in.Username)
		case apperr.IsKind(err, apperr.KindForbidden) && u != nil:
			h.AuditLog.LoginFailedNotApproved(ctx, r, u.ID, u.Username, u.Status)
		case apperr.IsKind(err, apperr.KindInvalidCredentials) && u != nil:
			h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, u.Username)
		}
		h.ErrLog.Write(w, r, err)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetUsername(in.Username)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.FamilyID, u.Username)
	httpjson.OK(w, loginResponse{Token: token, User: viewOf(*u)})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/me                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	_, uid, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apperr.Unauthorized("access token required"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Svc.Me(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.OK(w, u)
}
