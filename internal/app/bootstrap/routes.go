// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	accountfeature "github.com/dalemusser/depensify/internal/app/features/account"
	approvalsfeature "github.com/dalemusser/depensify/internal/app/features/approvals"
	auditlogfeature "github.com/dalemusser/depensify/internal/app/features/auditlog"
	errorsfeature "github.com/dalemusser/depensify/internal/app/features/errors"
	expensesfeature "github.com/dalemusser/depensify/internal/app/features/expenses"
	familyfeature "github.com/dalemusser/depensify/internal/app/features/family"
	healthfeature "github.com/dalemusser/depensify/internal/app/features/health"
	auditstore "github.com/dalemusser/depensify/internal/app/store/audit"
	"github.com/dalemusser/depensify/internal/app/system/auditlog"
	"github.com/dalemusser/depensify/internal/app/system/auth"
	"github.com/dalemusser/depensify/internal/app/system/metrics"
	"github.com/dalemusser/depensify/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Layout:
//
//	/health                         liveness and database check
//	/metrics                        Prometheus (metrics_enabled)
//	/api/register, /api/login       public
//	/api/me                         bearer token
//	/api/expenses/...               bearer token
//	/api/family/...                 bearer token
//	/api/admin/...                  bearer token, system admin
//	/api/admin/audit-events         bearer token, system admin
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	errLog := errorsfeature.NewErrorLogger(logger)

	authMgr, err := auth.NewManager(appCfg.JWTSecret, appCfg.TokenTTL, logger.Named("auth"))
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}
	authMgr.SetErrorWriter(errLog.Write)

	var m *metrics.Metrics
	if appCfg.MetricsEnabled {
		m = metrics.New()
	}

	auditLog := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Admin:  appCfg.AuditLogAdmin,
		Family: appCfg.AuditLogFamily,
	})
	limiter := ratelimit.NewLoginLimiter(appCfg.LoginRatePerMinute, appCfg.LoginBurst)

	// Services. Family is shared: account and approvals provision families
	// and expenses resolves the caller's family through it.
	familySvc := familyfeature.NewService(db, m, logger)
	accountSvc := accountfeature.NewService(db, familySvc, authMgr, appCfg.BcryptCost, logger)
	approvalsSvc := approvalsfeature.NewService(db, familySvc, logger)
	expensesSvc := expensesfeature.NewService(db, familySvc, m, logger)

	accountHandler := accountfeature.NewHandler(accountSvc, errLog, auditLog, limiter, deps.Events, m, logger)
	approvalsHandler := approvalsfeature.NewHandler(approvalsSvc, errLog, auditLog, deps.Events, logger)
	expensesHandler := expensesfeature.NewHandler(expensesSvc, errLog, deps.Events, m, logger)
	familyHandler := familyfeature.NewHandler(familySvc, errLog, auditLog, deps.Events, m, logger)
	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}
	r.NotFound(errLog.NotFound)
	r.MethodNotAllowed(errLog.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	// register, login and me live at the API root
	api := accountfeature.Routes(accountHandler, authMgr.RequireAuth)
	api.Group(func(pr chi.Router) {
		pr.Use(authMgr.RequireAuth)
		pr.Mount("/expenses", expensesfeature.Routes(expensesHandler))
		pr.Mount("/family", familyfeature.Routes(familyHandler, expensesHandler.ServeFamilyList))

		admin := approvalsfeature.Routes(approvalsHandler)
		admin.Mount("/audit-events", auditlogfeature.Routes(auditHandler))
		pr.Mount("/admin", admin)
	})
	api.NotFound(errLog.NotFound)
	api.MethodNotAllowed(errLog.MethodNotAllowed)
	r.Mount("/api", api)

	logger.Info("routes ready",
		zap.Bool("metrics", m != nil),
		zap.Duration("token_ttl", authMgr.TTL()))

	return r, nil
}
