// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/depensify/internal/app/store/audit"
	"github.com/dalemusser/depensify/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config holds audit logging configuration, one destination per category.
// An empty value means All.
type Config struct {
	Auth   string
	Admin  string
	Family string
}

// Logger records audit events to MongoDB (via audit.Store) and to zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FamilyID != nil {
		fields = append(fields, zap.String("family_id", event.FamilyID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) destination(category string) string {
	var setting string
	switch category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryFamily:
		setting = l.config.Family
	}
	if setting == "" {
		return All
	}
	return setting
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers built in tests may omit it.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.destination(event.Category)
	if setting == Off {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func requestEvent(r *http.Request, category, eventType string, success bool) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// --- Authentication Events ---

// UserRegistered logs a new account. bootstrap marks the deployment's first admin.
func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID primitive.ObjectID, username string, bootstrap bool) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventUserRegistered, true)
	e.UserID = &userID
	e.Details = map[string]string{
		"username":  username,
		"bootstrap": strconv.FormatBool(bootstrap),
	}
	l.Log(ctx, e)
}

// BootstrapAdminClaimed logs the claim of the first-admin marker.
func (l *Logger) BootstrapAdminClaimed(ctx context.Context, r *http.Request, userID primitive.ObjectID, familyID *primitive.ObjectID) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventBootstrapAdminClaimed, true)
	e.UserID = &userID
	e.FamilyID = familyID
	l.Log(ctx, e)
}

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, familyID *primitive.ObjectID, username string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	e.UserID = &userID
	e.FamilyID = familyID
	e.Details = map[string]string{"username": username}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedUsername string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedUserNotFound, false)
	e.FailureReason = "user not found"
	e.Details = map[string]string{"attempted_username": attemptedUsername}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, username string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedWrongPassword, false)
	e.UserID = &userID
	e.FailureReason = "wrong password"
	e.Details = map[string]string{"username": username}
	l.Log(ctx, e)
}

// LoginFailedNotApproved logs a login refused because the account is pending or rejected.
func (l *Logger) LoginFailedNotApproved(ctx context.Context, r *http.Request, userID primitive.ObjectID, username, status string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedNotApproved, false)
	e.UserID = &userID
	e.FailureReason = "account " + status
	e.Details = map[string]string{"username": username, "status": status}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, attemptedUsername, reason string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedRateLimit, false)
	e.FailureReason = "rate limit exceeded"
	e.Details = map[string]string{"attempted_username": attemptedUsername, "reason": reason}
	l.Log(ctx, e)
}

// --- Admin Events ---

func (l *Logger) UserApproved(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, familyID *primitive.ObjectID) {
	e := requestEvent(r, audit.CategoryAdmin, audit.EventUserApproved, true)
	e.ActorID = &actorID
	e.UserID = &targetUserID
	e.FamilyID = familyID
	l.Log(ctx, e)
}

func (l *Logger) UserRejected(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, reason string) {
	e := requestEvent(r, audit.CategoryAdmin, audit.EventUserRejected, true)
	e.ActorID = &actorID
	e.UserID = &targetUserID
	if reason != "" {
		e.Details = map[string]string{"reason": reason}
	}
	l.Log(ctx, e)
}

// --- Family Events ---

// FamilyEvent logs a family lifecycle change. target is the affected member
// when it differs from the actor.
func (l *Logger) FamilyEvent(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, target *primitive.ObjectID, familyID primitive.ObjectID, details map[string]string) {
	e := requestEvent(r, audit.CategoryFamily, eventType, true)
	e.ActorID = &actorID
	e.UserID = target
	if target == nil {
		e.UserID = &actorID
	}
	e.FamilyID = &familyID
	e.Details = details
	l.Log(ctx, e)
}
