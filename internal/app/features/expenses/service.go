// internal/app/features/expenses/service.go
package expenses

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/depensify/internal/app/features/family"
	expensestore "github.com/dalemusser/depensify/internal/app/store/expenses"
	"github.com/dalemusser/depensify/internal/app/store/storeerr"
	userstore "github.com/dalemusser/depensify/internal/app/store/users"
	"github.com/dalemusser/depensify/internal/app/policy/familypolicy"
	"github.com/dalemusser/depensify/internal/app/system/apperr"
	"github.com/dalemusser/depensify/internal/app/system/htmlsanitize"
	"github.com/dalemusser/depensify/internal/app/system/metrics"
	"github.com/dalemusser/depensify/internal/app/system/paging"
	"github.com/dalemusser/depensify/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatsMonths is how many calendar months the monthly breakdown covers,
// the current one included.
const StatsMonths = 12

var (
	errNotFound = apperr.NotFound("expense not found")
	errNoFamily = apperr.Forbidden("you do not belong to a family")
)

// Service enforces expense validation and family permissions on top of the
// expense store. Permissions are checked against a family loaded per call.
type Service struct {
	Users    *userstore.Store
	Expenses *expensestore.Store
	Families *family.Service
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Now      func() time.Time
}

func NewService(db *mongo.Database, families *family.Service, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		Users:    userstore.New(db),
		Expenses: expensestore.New(db),
		Families: families,
		Metrics:  m,
		Log:      logger,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// load returns the caller and their family (nil when none).
func (s *Service) load(ctx context.Context, userID primitive.ObjectID) (*models.User, *models.Family, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, nil, apperr.Internal(err)
	}
	f, err := s.Families.FamilyOf(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, f, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| List                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// ListQuery holds the list filters. Dates are "YYYY-MM-DD" or RFC 3339; a
// date-only EndDate covers the whole day.
type ListQuery struct {
	Category  string
	StartDate string
	EndDate   string
	Page      paging.Page
}

// Item is an expense in a list response. Username is set on family lists.
type Item struct {
	models.Expense
	Username string `json:"username,omitempty"`
}

type ListResult struct {
	Expenses []Item `json:"expenses"`
	paging.Meta
}

func (q ListQuery) filter() (expensestore.Filter, error) {
	var f expensestore.Filter
	if q.Category != "" {
		if !models.IsValidCategory(q.Category) {
			return f, apperr.Validation("unknown category")
		}
		f.Category = q.Category
	}
	if q.StartDate != "" {
		t, _, err := parseDate(q.StartDate)
		if err != nil {
			return f, apperr.Validation("startDate must be a date")
		}
		f.From = &t
	}
	if q.EndDate != "" {
		t, dayOnly, err := parseDate(q.EndDate)
		if err != nil {
			return f, apperr.Validation("endDate must be a date")
		}
		if dayOnly {
			t = endOfDay(t)
		}
		f.To = &t
	}
	return f, nil
}

// ListPersonal returns the caller's own expenses.
func (s *Service) ListPersonal(ctx context.Context, userID primitive.ObjectID, q ListQuery) (*ListResult, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	f.UserID = &userID

	rows, total, err := s.Expenses.List(ctx, f, q.Page.Offset(), q.Page.Limit64())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	items := make([]Item, len(rows))
	for i, e := range rows {
		items[i] = Item{Expense: e}
	}
	return &ListResult{Expenses: items, Meta: q.Page.MetaFor(total)}, nil
}

// ListFamily returns every expense of the caller's family, annotated with
// the username of whoever recorded it. Requires viewAll.
func (s *Service) ListFamily(ctx context.Context, userID primitive.ObjectID, q ListQuery) (*ListResult, error) {
	fam, err := s.viewableFamily(ctx, userID)
	if err != nil {
		return nil, err
	}
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	f.FamilyID = &fam.ID

	rows, total, err := s.Expenses.List(ctx, f, q.Page.Offset(), q.Page.Limit64())
	if err != nil {
		return nil, apperr.Internal(err)
	}

	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, e := range rows {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			ids = append(ids, e.UserID)
		}
	}
	names, err := s.Users.UsernamesByID(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	items := make([]Item, len(rows))
	for i, e := range rows {
		items[i] = Item{Expense: e, Username: names[e.UserID]}
	}
	return &ListResult{Expenses: items, Meta: q.Page.MetaFor(total)}, nil
}

func (s *Service) viewableFamily(ctx context.Context, userID primitive.ObjectID) (*models.Family, error) {
	_, fam, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if fam == nil {
		return nil, errNoFamily
	}
	if !familypolicy.CanViewFamilyExpenses(userID, fam) {
		s.Metrics.Denied(string(models.ActionViewAll))
		return nil, apperr.Forbidden("you are not allowed to view family expenses")
	}
	return fam, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Create / update / delete                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Input is the body of create and update. On update, nil fields are left
// unchanged.
type Input struct {
	Description *string `json:"description"`
	Amount      *Amount `json:"amount"`
	Category    *string `json:"category"`
	Date        *string `json:"date"`
}

type cleaned struct {
	description *string
	amount      *float64
	category    *string
	date        *time.Time
}

// clean validates the fields present in in. With required set, every field
// must be present.
func (in Input) clean(required bool) (cleaned, error) {
	var out cleaned
	var fields []string

	if in.Description != nil {
		d := htmlsanitize.PlainText(*in.Description)
		switch {
		case d == "":
			fields = append(fields, "description is required")
		case utf8.RuneCountInString(d) > models.MaxDescriptionLen:
			fields = append(fields, "description must be at most 200 characters")
		default:
			out.description = &d
		}
	} else if required {
		fields = append(fields, "description is required")
	}

	if in.Amount != nil {
		switch {
		case in.Amount.Err != nil:
			fields = append(fields, in.Amount.Err.Error())
		case in.Amount.Value <= 0:
			fields = append(fields, "amount must be positive")
		default:
			v := in.Amount.Value
			out.amount = &v
		}
	} else if required {
		fields = append(fields, "amount is required")
	}

	if in.Category != nil {
		c := *in.Category
		switch {
		case c == "":
			fields = append(fields, "category is required")
		case !models.IsValidCategory(c):
			fields = append(fields, "unknown category")
		default:
			out.category = &c
		}
	} else if required {
		fields = append(fields, "category is required")
	}

	if in.Date != nil && *in.Date != "" {
		t, _, err := parseDate(*in.Date)
		if err != nil {
			fields = append(fields, "date must be a date")
		} else {
			out.date = &t
		}
	} else if required {
		fields = append(fields, "date is required")
	}

	if len(fields) > 0 {
		return cleaned{}, apperr.ValidationFields(fields...)
	}
	return out, nil
}

// Create records an expense for the caller. In a family the caller needs
// the add permission, and the expense joins the family pool.
func (s *Service) Create(ctx context.Context, userID primitive.ObjectID, in Input) (*models.Expense, error) {
	c, err := in.clean(true)
	if err != nil {
		return nil, err
	}
	_, fam, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	e := models.Expense{
		UserID:      userID,
		Description: *c.description,
		Amount:      *c.amount,
		Category:    *c.category,
		Date:        *c.date,
	}
	if fam != nil {
		if !familypolicy.CanAddExpense(userID, fam) {
			s.Metrics.Denied(string(models.ActionAdd))
			return nil, apperr.Forbidden("you are not allowed to add expenses")
		}
		e.FamilyID = &fam.ID
	}

	created, err := s.Expenses.Create(ctx, e)
	if err != nil {
		return nil, storeErr(err)
	}
	return &created, nil
}

// writeScope turns a policy scope into a store scope. ok is false when no
// record can match.
func writeScope(userID primitive.ObjectID, fam *models.Family, scope familypolicy.Scope) (expensestore.Scope, bool) {
	switch scope {
	case familypolicy.ScopeFamily:
		return expensestore.Scope{UserID: userID, FamilyID: &fam.ID}, true
	case familypolicy.ScopeOwn:
		return expensestore.Scope{UserID: userID}, true
	}
	return expensestore.Scope{}, false
}

// Update edits an expense within the caller's edit scope. Anything outside
// the scope is reported as not found.
func (s *Service) Update(ctx context.Context, userID, id primitive.ObjectID, in Input) (*models.Expense, error) {
	c, err := in.clean(false)
	if err != nil {
		return nil, err
	}
	_, fam, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	scope, ok := writeScope(userID, fam, familypolicy.EditScope(userID, fam))
	if !ok {
		s.Metrics.Denied(string(models.ActionEditOwn))
		return nil, errNotFound
	}

	e, err := s.Expenses.Update(ctx, id, scope, expensestore.Update{
		Description: c.description,
		Amount:      c.amount,
		Category:    c.category,
		Date:        c.date,
	})
	if err != nil {
		if errors.Is(err, expensestore.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, storeErr(err)
	}
	return e, nil
}

// Delete removes an expense within the caller's delete scope.
func (s *Service) Delete(ctx context.Context, userID, id primitive.ObjectID) (*models.Expense, error) {
	_, fam, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	scope, ok := writeScope(userID, fam, familypolicy.DeleteScope(userID, fam))
	if !ok {
		s.Metrics.Denied(string(models.ActionDeleteOwn))
		return nil, errNotFound
	}

	// Read first so the caller can report whose record was removed.
	e, err := s.Expenses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, expensestore.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, apperr.Internal(err)
	}
	if err := s.Expenses.Delete(ctx, id, scope); err != nil {
		if errors.Is(err, expensestore.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, apperr.Internal(err)
	}
	return e, nil
}

func storeErr(err error) error {
	var ve *storeerr.ValidationError
	if errors.As(err, &ve) {
		return apperr.ValidationFields(ve.Fields...)
	}
	return apperr.Internal(err)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Stats                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type Stats struct {
	Total      expensestore.Totals          `json:"total"`
	Categories []expensestore.CategoryTotal `json:"categories"`
	Monthly    []expensestore.MonthTotal    `json:"monthly"`
}

// Stats aggregates the caller's expenses, or the family pool when family is
// set (requires viewAll). The three aggregations run concurrently.
func (s *Service) Stats(ctx context.Context, userID primitive.ObjectID, family bool) (*Stats, error) {
	var f expensestore.Filter
	if family {
		fam, err := s.viewableFamily(ctx, userID)
		if err != nil {
			return nil, err
		}
		f.FamilyID = &fam.ID
	} else {
		f.UserID = &userID
	}

	now := s.Now()
	since := time.Date(now.Year(), now.Month()-(StatsMonths-1), 1, 0, 0, 0, 0, time.UTC)

	var out Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Total, err = s.Expenses.Totals(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		out.Categories, err = s.Expenses.ByCategory(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		out.Monthly, err = s.Expenses.Monthly(gctx, f, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}
	return &out, nil
}
