// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/dalemusser/depensify/internal/app/features/errors"
	"github.com/dalemusser/depensify/internal/app/store/audit"
	userstore "github.com/dalemusser/depensify/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the audit trail to system admins.
type Handler struct {
	Events *audit.Store
	Users  *userstore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs an audit log Handler bound to the given database.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: audit.New(db),
		Users:  userstore.New(db),
		ErrLog: errLog,
		Log:    logger,
	}
}
