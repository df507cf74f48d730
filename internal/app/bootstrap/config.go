// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/depensify/internal/app/system/auth"
	"github.com/dalemusser/depensify/internal/app/system/authutil"
	"github.com/dalemusser/depensify/internal/app/system/timeouts"
	"github.com/dalemusser/depensify/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// appConfigKeys defines the configuration keys for Depensify.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: DEPENSIFY_MONGO_URI, DEPENSIFY_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "depensify", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Tokens and passwords
	{Name: "jwt_secret", Default: "", Desc: "HS256 token signing secret (required, at least 32 characters)"},
	{Name: "token_ttl", Default: "168h", Desc: "Lifetime of issued tokens (e.g., 168h, 24h)"},
	{Name: "bcrypt_cost", Default: authutil.DefaultCost, Desc: "bcrypt work factor for new password hashes"},

	// Register/login throttling
	{Name: "login_rate_per_minute", Default: 10, Desc: "Sustained register/login attempts per minute, per IP and per username"},
	{Name: "login_burst", Default: 5, Desc: "Register/login attempts allowed in a burst"},

	// Domain events
	{Name: "amqp_url", Default: "", Desc: "AMQP broker URL for domain events (blank disables publishing)"},
	{Name: "amqp_exchange", Default: "depensify.events", Desc: "Topic exchange that receives domain events"},

	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},

	{Name: "invitation_sweep_interval", Default: "1h", Desc: "How often expired family invitations are marked (e.g., 1h, 15m)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_family", Default: "all", Desc: "Family event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Database deadlines
	{Name: "db_timeout_short", Default: "5s", Desc: "Deadline for single-document reads and writes"},
	{Name: "db_timeout_medium", Default: "10s", Desc: "Deadline for list queries and aggregations"},
	{Name: "db_timeout_long", Default: "30s", Desc: "Deadline for multi-step operations such as registration"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, DEPENSIFY_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "DEPENSIFY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:  appValues.String("jwt_secret"),
		TokenTTL:   appValues.Duration("token_ttl", auth.DefaultTTL),
		BcryptCost: appValues.Int("bcrypt_cost"),

		LoginRatePerMinute: float64(appValues.Int("login_rate_per_minute")),
		LoginBurst:         appValues.Int("login_burst"),

		AMQPURL:      appValues.String("amqp_url"),
		AMQPExchange: appValues.String("amqp_exchange"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),

		InvitationSweepInterval: appValues.Duration("invitation_sweep_interval", workers.DefaultSweepInterval),

		// Audit logging
		AuditLogAuth:   appValues.String("audit_log_auth"),
		AuditLogAdmin:  appValues.String("audit_log_admin"),
		AuditLogFamily: appValues.String("audit_log_family"),

		DBTimeoutShort:  appValues.Duration("db_timeout_short", timeouts.DefaultShort),
		DBTimeoutMedium: appValues.Duration("db_timeout_medium", timeouts.DefaultMedium),
		DBTimeoutLong:   appValues.Duration("db_timeout_long", timeouts.DefaultLong),
	}

	return coreCfg, appCfg, nil
}

var validAuditModes = map[string]bool{"": true, "all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI and signing secret are checked here so that a bad
// deployment fails before any connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if strings.TrimSpace(appCfg.JWTSecret) == "" {
		return errors.New("jwt_secret is required (set DEPENSIFY_JWT_SECRET)")
	}
	if len(appCfg.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d characters", auth.MinSecretLength)
	}
	if appCfg.TokenTTL < time.Minute {
		return fmt.Errorf("token_ttl must be at least 1m, got %s", appCfg.TokenTTL)
	}

	if appCfg.BcryptCost < bcrypt.MinCost || appCfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if appCfg.LoginRatePerMinute <= 0 || appCfg.LoginBurst <= 0 {
		return errors.New("login_rate_per_minute and login_burst must be positive")
	}

	if appCfg.InvitationSweepInterval < time.Minute {
		return fmt.Errorf("invitation_sweep_interval must be at least 1m, got %s", appCfg.InvitationSweepInterval)
	}

	if appCfg.AMQPURL != "" && appCfg.AMQPExchange == "" {
		return errors.New("amqp_exchange is required when amqp_url is set")
	}

	for key, mode := range map[string]string{
		"audit_log_auth":   appCfg.AuditLogAuth,
		"audit_log_admin":  appCfg.AuditLogAdmin,
		"audit_log_family": appCfg.AuditLogFamily,
	} {
		if !validAuditModes[mode] {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, mode)
		}
	}

	return nil
}
