// internal/app/features/expenses/handler.go
package expenses

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/depensify/internal/app/features/errors"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/authz"
	"github.com/dalemusser/depensify/internal/app/system/events"
	"github.com/dalemusser/depensify/internal/app/system/httpjson"
	"github.com/dalemusser/depensify/internal/app/system/metrics"
	"github.com/dalemusser/depensify/internal/app/system/normalize"
	"github.com/dalemusser/depensify/internal/app/system/paging"
	"github.com/dalemusser/depensify/internal/app/system/timeouts"
	"github.com/dalemusser/depensify/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Svc     *Service
	ErrLog  *uierrors.ErrorLogger
	Events  events.Publisher
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

func NewHandler(svc *Service, errLog *uierrors.ErrorLogger, pub events.Publisher, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Handler{
		Svc:     svc,
		ErrLog:  errLog,
		Events:  pub,
		Metrics: m,
		Log:     logger,
	}
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	_, id, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, apperr.Unauthorized("access token required"))
		return primitive.NilObjectID, false
	}
	return id, true
}

func expenseID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid expense id")
	}
	return id, nil
}

func listQuery(r *http.Request) ListQuery {
	return ListQuery{
		Category:  normalize.QueryParam(query.Get(r, "category")),
		StartDate: query.Get(r, "startDate"),
		EndDate:   query.Get(r, "endDate"),
		Page:      paging.Parse(r),
	}
}

func (h *Handler) emit(r *http.Request, eventType string, actor primitive.ObjectID, e *models.Expense) {
	ev := events.New(eventType, actor, e.ID, e.FamilyID).
		With("category", e.Category).
		With("amount", strconv.FormatFloat(e.Amount, 'f', 2, 64))
	if e.UserID != actor {
		ev = ev.With("owner_id", e.UserID.Hex())
	}
	events.Emit(r.Context(), h.Events, h.Log, ev)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/expenses                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Svc.ListPersonal(ctx, uid, listQuery(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.OK(w, res)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/family/expenses                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeFamilyList(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Svc.ListFamily(ctx, uid, listQuery(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.OK(w, res)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/expenses/stats                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	var family bool
	switch scope := normalize.QueryParam(query.Get(r, "scope")); scope {
	case "", "personal":
	case "family":
		family = true
	default:
		h.ErrLog.Write(w, r, apperr.Validation(`scope must be "personal" or "family"`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	stats, err := h.Svc.Stats(ctx, uid, family)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.OK(w, stats)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/expenses                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in Input
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e, err := h.Svc.Create(ctx, uid, in)
	h.Metrics.Expense("create", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.emit(r, events.ExpenseCreated, uid, e)
	httpjson.Created(w, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/expenses/{id}                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := expenseID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in Input
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e, err := h.Svc.Update(ctx, uid, id, in)
	h.Metrics.Expense("update", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.emit(r, events.ExpenseUpdated, uid, e)
	httpjson.OK(w, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/expenses/{id}                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := expenseID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e, err := h.Svc.Delete(ctx, uid, id)
	h.Metrics.Expense("delete", err)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.emit(r, events.ExpenseDeleted, uid, e)
	httpjson.Message(w, "expense deleted")
}
