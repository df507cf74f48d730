// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	familystore "github.com/dalemusser/depensify/internal/app/store/families"
	"github.com/dalemusser/depensify/internal/app/system/events"
	"github.com/dalemusser/depensify/internal/app/system/indexes"
	"github.com/dalemusser/depensify/internal/app/system/timeouts"
	"github.com/dalemusser/depensify/internal/app/system/validators"
	"github.com/dalemusser/depensify/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client and, when configured, the AMQP
// publisher for domain events.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize),
		zap.Uint64("min_pool_size", appCfg.MongoMinPoolSize))

	db := client.Database(appCfg.MongoDatabase)
	deps := DBDeps{
		MongoClient:      client,
		MongoDatabase:    db,
		Events:           events.Nop{},
		InvitationExpiry: workers.NewInvitationExpiry(familystore.New(db), logger.Named("workers"), appCfg.InvitationSweepInterval),
	}

	if appCfg.AMQPURL != "" {
		pub, err := events.Dial(appCfg.AMQPURL, appCfg.AMQPExchange, logger.Named("events"))
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, err
		}
		deps.Events = pub
	} else {
		logger.Info("amqp_url not set; domain events are not published")
	}

	return deps, nil
}

// EnsureSchema creates collections, attaches JSON-schema validators and
// reconciles indexes. All steps are idempotent.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("collection validators failed", zap.Error(err))
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("schema ready")
	return nil
}
