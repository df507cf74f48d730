// internal/app/features/approvals/handler.go
package approvals

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/depensify/internal/app/features/errors"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/auditlog"
	"github.com/dalemusser/depensify/internal/app/system/authz"
	"github.com/dalemusser/depensify/internal/app/system/events"
	"github.com/dalemusser/depensify/internal/app/system/httpjson"
	"github.com/dalemusser/depensify/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Svc      *Service
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Events   events.Publisher
	Log      *zap.Logger
}

func NewHandler(svc *Service, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, pub events.Publisher, logger *zap.Logger) *Handler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Handler{
		Svc:      svc,
		ErrLog:   errLog,
		AuditLog: audit,
		Events:   pub,
		Log:      logger,
	}
}

// reviewTarget returns the caller and the {userId} path parameter.
func (h *Handler) reviewTarget(w http.ResponseWriter, r *http.Request) (actor, target primitive.ObjectID, ok bool) {
	_, actor, _, ok = authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apperr.Unauthorized("access token required"))
		return actor, target, false
	}
	target, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Validation("invalid user id"))
		return actor, target, false
	}
	return actor, target, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/pending-users                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users, err := h.Svc.ListPending(ctx)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.OK(w, users)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/approve-user/{userId}                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.reviewTarget(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Svc.Approve(ctx, actor, target)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	h.AuditLog.UserApproved(ctx, r, actor, u.ID, u.FamilyID)
	events.Emit(r.Context(), h.Events, h.Log, events.New(events.UserApproved, actor, u.ID, u.FamilyID))
	httpjson.OK(w, map[string]any{"message": "user approved", "user": u})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/reject-user/{userId}                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type rejectInput struct {
	Reason string `json:"reason"`
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.reviewTarget(w, r)
	if !ok {
		return
	}
	var in rejectInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Svc.Reject(ctx, actor, target, in.Reason)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	h.AuditLog.UserRejected(ctx, r, actor, u.ID, u.RejectionReason)
	e := events.New(events.UserRejected, actor, u.ID, nil)
	if u.RejectionReason != "" {
		e = e.With("reason", u.RejectionReason)
	}
	events.Emit(r.Context(), h.Events, h.Log, e)
	httpjson.OK(w, map[string]any{"message": "user rejected", "user": u})
}
