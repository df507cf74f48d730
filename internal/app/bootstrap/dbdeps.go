// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/depensify/internal/app/system/events"
	"github.com/dalemusser/depensify/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Events receives domain events. events.Nop when amqp_url is empty.
	Events events.Publisher

	// InvitationExpiry is started in Startup and stopped in Shutdown.
	InvitationExpiry *workers.InvitationExpiry
}
