// internal/app/features/family/handler.go
package family

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/depensify/internal/app/features/errors"
	"github.com/dalemusser/depensify/internal/app/store/audit"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/auditlog"
	"github.com/dalemusser/depensify/internal/app/system/authz"
	"github.com/dalemusser/depensify/internal/app/system/events"
	"github.com/dalemusser/depensify/internal/app/system/httpjson"
	"github.com/dalemusser/depensify/internal/app/system/metrics"
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
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

func NewHandler(
	svc *Service,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
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
		Events:   pub,
		Metrics:  m,
		Log:      logger,
	}
}

// caller returns the authenticated user id, writing 401 when absent.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	_, id, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apperr.Unauthorized("access token required"))
		return primitive.NilObjectID, false
	}
	return id, true
}

func targetParam(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid member id")
	}
	return id, nil
}

func (h *Handler) emit(ctx context.Context, eventType string, actor, subject primitive.ObjectID, familyID primitive.ObjectID, data map[string]string) {
	e := events.New(eventType, actor, subject, &familyID)
	for k, v := range data {
		e = e.With(k, v)
	}
	events.Emit(ctx, h.Events, h.Log, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/family/details                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeDetails(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Svc.Details(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.OK(w, map[string]any{"family": d})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/family/members                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	members, err := h.Svc.Members(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.OK(w, members)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/family/create                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Svc.Create(ctx, uid, in)
	h.Metrics.Family("create", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	h.AuditLog.FamilyEvent(ctx, r, audit.EventFamilyCreated, uid, nil, d.ID, map[string]string{"name": d.Name})
	h.emit(r.Context(), events.FamilyCreated, uid, d.ID, d.ID, map[string]string{"name": d.Name})
	httpjson.Created(w, d)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/family/join                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type joinInput struct {
	InviteCode string `json:"inviteCode"`
}

func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in joinInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Svc.Join(ctx, uid, in.InviteCode)
	h.Metrics.Family("join", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	h.AuditLog.FamilyEvent(ctx, r, audit.EventFamilyJoined, uid, nil, d.ID, map[string]string{"role": d.MyRole})
	h.emit(r.Context(), events.FamilyJoined, uid, uid, d.ID, map[string]string{"role": d.MyRole})
	httpjson.OK(w, d)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/family/leave                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	famID, err := h.Svc.Leave(ctx, uid)
	h.Metrics.Family("leave", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	h.AuditLog.FamilyEvent(ctx, r, audit.EventFamilyLeft, uid, nil, famID, nil)
	h.emit(r.Context(), events.FamilyLeft, uid, uid, famID, nil)
	httpjson.Message(w, "you have left the family")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/family/invite                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in InviteInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Svc.Invite(ctx, uid, in)
	h.Metrics.Family("invite", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	details := map[string]string{"role": res.Invitation.Role, "token": res.Invitation.Token}
	h.AuditLog.FamilyEvent(ctx, r, audit.EventFamilyInvitationSent, uid, nil, res.FamilyID, details)
	h.emit(r.Context(), events.FamilyInvitationCreated, uid, primitive.NilObjectID, res.FamilyID, details)
	httpjson.Created(w, res)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/family/transfer-ownership                                         |
*─────────────────────────────────────────────────────────────────────────────*/

type transferInput struct {
	NewOwnerID string `json:"newOwnerId"`
}

func (h *Handler) HandleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in transferInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	newOwner, err := primitive.ObjectIDFromHex(in.NewOwnerID)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Validation("newOwnerId must be a valid user id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Svc.TransferOwnership(ctx, uid, newOwner)
	h.Metrics.Family("transfer_ownership", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	h.AuditLog.FamilyEvent(ctx, r, audit.EventFamilyOwnerChanged, uid, &newOwner, d.ID, nil)
	h.emit(r.Context(), events.FamilyOwnershipTransferred, uid, newOwner, d.ID, nil)
	httpjson.OK(w, d)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/family/settings                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in SettingsInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Svc.UpdateSettings(ctx, uid, in)
	h.Metrics.Family("update_settings", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	h.AuditLog.FamilyEvent(ctx, r, audit.EventFamilySettingsUpdated, uid, nil, d.ID, nil)
	h.emit(r.Context(), events.FamilySettingsUpdated, uid, d.ID, d.ID, nil)
	httpjson.OK(w, d)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/family/member/{id}/role                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleMemberRole(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	target, err := targetParam(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in MemberInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, famID, err := h.Svc.UpdateMember(ctx, uid, target, in)
	h.Metrics.Family("update_member", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	details := map[string]string{"role": m.Role}
	h.AuditLog.FamilyEvent(ctx, r, audit.EventFamilyMemberUpdated, uid, &target, famID, details)
	h.emit(r.Context(), events.FamilyMemberUpdated, uid, target, famID, details)
	httpjson.OK(w, m)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/family/member/{id}                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	target, err := targetParam(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	famID, err := h.Svc.RemoveMember(ctx, uid, target)
	h.Metrics.Family("remove_member", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	h.AuditLog.FamilyEvent(ctx, r, audit.EventFamilyMemberRemoved, uid, &target, famID, nil)
	h.emit(r.Context(), events.FamilyMemberRemoved, uid, target, famID, nil)
	httpjson.Message(w, "member removed")
}
