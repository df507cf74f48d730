// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	deploymentstore "github.com/dalemusser/depensify/internal/app/store/deployment"
	userstore "github.com/dalemusser/depensify/internal/app/store/users"
	"github.com/dalemusser/depensify/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.DBTimeoutShort,
		Medium: appCfg.DBTimeoutMedium,
		Long:   appCfg.DBTimeoutLong,
	})
	cur := timeouts.Current()
	logger.Info("database timeouts",
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long))

	if err := ensureBootstrapMarker(ctx, deps.MongoDatabase, logger); err != nil {
		return err
	}

	if deps.InvitationExpiry != nil {
		deps.InvitationExpiry.Start()
	}
	return nil
}

// ensureBootstrapMarker records an existing approved admin as the bootstrap
// admin when the deployment marker is missing, so a database restored
// without its deployment collection does not hand admin rights to the next
// registrant.
func ensureBootstrapMarker(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	markers := deploymentstore.New(db)
	if _, err := markers.BootstrapAdmin(ctx); err == nil {
		return nil
	} else if !errors.Is(err, deploymentstore.ErrNotClaimed) {
		return fmt.Errorf("read bootstrap marker: %w", err)
	}

	admin, err := userstore.New(db).FindApprovedAdmin(ctx)
	if errors.Is(err, userstore.ErrNotFound) {
		logger.Info("no administrator yet; the first registration becomes the bootstrap admin")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find approved admin: %w", err)
	}

	claimed, err := markers.ClaimBootstrapAdmin(ctx, admin.ID)
	if err != nil {
		return fmt.Errorf("claim bootstrap marker: %w", err)
	}
	if claimed {
		logger.Info("bootstrap marker backfilled",
			zap.String("user_id", admin.ID.Hex()),
			zap.String("username", admin.Username))
	}
	return nil
}
