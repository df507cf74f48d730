// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/depensify/internal/app/store/audit"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/httpjson"
	"github.com/dalemusser/depensify/internal/app/system/normalize"
	"github.com/dalemusser/depensify/internal/app/system/paging"
	"github.com/dalemusser/depensify/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const dateOnly = "2006-01-02"

// DefaultFailedLoginWindow is how far back GET /failed-logins looks when no
// ?since= duration is given.
const DefaultFailedLoginWindow = 24 * time.Hour

// ServeList handles GET /api/admin/audit-events.
//
// Filters: category, event_type, user_id, family_id, startDate, endDate
// (YYYY-MM-DD, inclusive) plus page/limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)
	filter, err := listFilter(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	filter.Limit = pg.Limit64()
	filter.Offset = pg.Offset()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	found, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal(fmt.Errorf("query audit events: %w", err)))
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal(fmt.Errorf("count audit events: %w", err)))
		return
	}

	httpjson.OK(w, listResponse{
		Events: h.views(ctx, found),
		Meta:   pg.MetaFor(total),
	})
}

// ServeFailedLogins handles GET /api/admin/audit-events/failed-logins.
// ?since= is a Go duration such as 1h or 72h.
func (h *Handler) ServeFailedLogins(w http.ResponseWriter, r *http.Request) {
	window := DefaultFailedLoginWindow
	if s := query.Get(r, "since"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			h.ErrLog.Write(w, r, apperr.Validation("since must be a positive duration such as 24h"))
			return
		}
		window = d
	}
	pg := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	found, err := h.Events.GetFailedLogins(ctx, time.Now().Add(-window), pg.Limit64())
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal(fmt.Errorf("query failed logins: %w", err)))
		return
	}
	httpjson.OK(w, map[string]any{
		"since":  window.String(),
		"events": h.views(ctx, found),
	})
}

func listFilter(r *http.Request) (audit.QueryFilter, error) {
	var f audit.QueryFilter
	var problems []string

	f.Category = normalize.QueryParam(query.Get(r, "category"))
	if f.Category != "" && !categories[f.Category] {
		problems = append(problems, "unknown category")
	}
	f.EventType = normalize.QueryParam(query.Get(r, "event_type"))
	if f.EventType != "" && !knownEventType(f.Category, f.EventType) {
		problems = append(problems, "unknown event_type")
	}

	for _, p := range []struct {
		param string
		dst   **primitive.ObjectID
	}{{"user_id", &f.UserID}, {"family_id", &f.FamilyID}} {
		param, dst := p.param, p.dst
		s := query.Get(r, param)
		if s == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			problems = append(problems, "invalid "+param)
			continue
		}
		*dst = &id
	}

	if s := query.Get(r, "startDate"); s != "" {
		t, err := time.Parse(dateOnly, s)
		if err != nil {
			problems = append(problems, "startDate must be YYYY-MM-DD")
		} else {
			f.StartTime = &t
		}
	}
	if s := query.Get(r, "endDate"); s != "" {
		t, err := time.Parse(dateOnly, s)
		if err != nil {
			problems = append(problems, "endDate must be YYYY-MM-DD")
		} else {
			end := t.Add(24*time.Hour - time.Millisecond)
			f.EndTime = &end
		}
	}

	if len(problems) > 0 {
		return f, apperr.ValidationFields(problems...)
	}
	return f, nil
}

func (h *Handler) views(ctx context.Context, found []audit.Event) []eventView {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, e := range found {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id == nil {
				continue
			}
			if _, ok := seen[*id]; !ok {
				seen[*id] = struct{}{}
				ids = append(ids, *id)
			}
		}
	}

	names := map[primitive.ObjectID]string{}
	if len(ids) > 0 {
		got, err := h.Users.UsernamesByID(ctx, ids)
		if err != nil {
			h.Log.Warn("failed to resolve usernames for audit log", zap.Error(err))
		} else {
			names = got
		}
	}

	out := make([]eventView, 0, len(found))
	for _, e := range found {
		v := eventView{
			ID:            e.ID,
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			FamilyID:      e.FamilyID,
			ActorID:       e.ActorID,
			UserID:        e.UserID,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			v.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			v.TargetName = names[*e.UserID]
		}
		out = append(out, v)
	}
	return out
}
