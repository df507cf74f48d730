package account_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/depensify/internal/app/features/account"
	uierrors "github.com/dalemusser/depensify/internal/app/features/errors"
	"github.com/dalemusser/depensify/internal/app/system/metrics"
	"github.com/dalemusser/depensify/internal/app/system/ratelimit"
	"github.com/dalemusser/depensify/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fixture struct {
	router  http.Handler
	svc     *account.Service
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, db *mongo.Database, limiter *ratelimit.LoginLimiter) fixture {
	t.Helper()
	svc := newService(t, db)
	m := metrics.New()
	errLog := uierrors.NewErrorLogger(zap.NewNop())
	h := account.NewHandler(svc, errLog, nil, limiter, nil, m, zap.NewNop())
	svc.Tokens.SetErrorWriter(errLog.Write)
	return fixture{
		router:  account.Routes(h, svc.Tokens.RequireAuth),
		svc:     svc,
		metrics: m,
	}
}

func TestHandleRegister_BootstrapThenPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := newFixture(t, db, nil)

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, testutil.JSONRequest(t, "POST", "/register", map[string]string{
		"username": "alice",
		"password": "secret123",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var first map[string]any
	testutil.DecodeJSON(t, rec, &first)
	if tok, _ := first["token"].(string); tok == "" {
		t.Errorf("bootstrap admin should get a token: %v", first)
	}

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, testutil.JSONRequest(t, "POST", "/register", map[string]string{
		"username": "bob",
		"password": "secret123",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var second map[string]any
	testutil.DecodeJSON(t, rec, &second)
	if _, ok := second["token"]; ok {
		t.Errorf("pending user must not get a token: %v", second)
	}
	if second["status"] != "pending" {
		t.Errorf("status: got %v", second["status"])
	}

	if got := promtest.ToFloat64(fx.metrics.AuthAttempts.WithLabelValues("register", metrics.OutcomeSuccess)); got != 2 {
		t.Errorf("register successes: got %v, want 2", got)
	}
}

func TestHandleLogin_PendingCarriesStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := newFixture(t, db, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	testutil.NewFixtures(t, db).CreatePendingUser(ctx, "bob")

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, testutil.JSONRequest(t, "POST", "/login", map[string]string{
		"username": "bob",
		"password": testutil.FixturePassword,
	}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rec.Code)
	}
	var body map[string]any
	testutil.DecodeJSON(t, rec, &body)
	if body["status"] != "pending" {
		t.Errorf("expected status tag, got %v", body)
	}
	if got := promtest.ToFloat64(fx.metrics.AuthAttempts.WithLabelValues("login", metrics.OutcomeFailure)); got != 1 {
		t.Errorf("login failures: got %v, want 1", got)
	}
}

func TestHandleLogin_ThenMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := newFixture(t, db, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	testutil.NewFixtures(t, db).CreateApprovedUser(ctx, "alice")

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, testutil.JSONRequest(t, "POST", "/login", map[string]string{
		"username": "alice",
		"password": testutil.FixturePassword,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	testutil.DecodeJSON(t, rec, &login)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var me map[string]any
	testutil.DecodeJSON(t, rec, &me)
	if me["username"] != "alice" {
		t.Errorf("username: got %v", me["username"])
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Error("password hash must not be serialized")
	}
}

func TestServeMe_TokenErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := newFixture(t, db, nil)

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest("GET", "/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: got %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("bad token: got %d, want 403", rec.Code)
	}
}

func TestHandleLogin_RateLimited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := newFixture(t, db, ratelimit.NewLoginLimiter(1, 1))

	body := map[string]string{"username": "nobody", "password": "whatever"}

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, testutil.JSONRequest(t, "POST", "/login", body))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("first attempt: got %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, testutil.JSONRequest(t, "POST", "/login", body))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second attempt: got %d, want 429", rec.Code)
	}
}
