// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework side (ports, TLS, logging, CORS); everything here is Depensify's.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Token signing
	JWTSecret string        // HS256 signing secret, at least 32 characters
	TokenTTL  time.Duration // Lifetime of issued tokens

	BcryptCost int // Work factor for new password hashes

	// Register/login throttling
	LoginRatePerMinute float64
	LoginBurst         int

	// Domain events (AMQP publishing is off when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string

	MetricsEnabled bool // Serve /metrics and record HTTP metrics

	InvitationSweepInterval time.Duration // How often pending invitations are checked for expiry

	// Audit logging destinations: all | db | log | off
	AuditLogAuth   string
	AuditLogAdmin  string
	AuditLogFamily string

	// Store call deadlines
	DBTimeoutShort  time.Duration
	DBTimeoutMedium time.Duration
	DBTimeoutLong   time.Duration
}
