// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/depensify/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("families", familiesSchema())
	ensure("expenses", expensesSchema())

	// No validators; we still ensure the collections exist.
	ensure("deployment", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func enumOf(values []string) bson.A {
	out := bson.A{}
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

var roleEnum = enumOf([]string{models.RoleAdmin, models.RoleMember, models.RoleViewer})

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"username", "username_ci", "password_hash", "role", "status", "is_admin"},
			"properties": bson.M{
				"username":      bson.M{"bsonType": "string", "minLength": 3, "maxLength": 30, "pattern": ".*\\S.*"},
				"username_ci":   bson.M{"bsonType": "string", "minLength": 1},
				"password_hash": bson.M{"bsonType": "string", "minLength": 1},
				"email":         bson.M{"bsonType": bson.A{"string", "null"}},
				"role":          bson.M{"enum": roleEnum},
				"status":        bson.M{"enum": bson.A{models.StatusPending, models.StatusApproved, models.StatusRejected}},
				"is_admin":      bson.M{"bsonType": "bool"},
				"family_id":     bson.M{"bsonType": bson.A{"objectId", "null"}},
			},
		},
	}
}

func permissionsSchema() bson.M {
	props := bson.M{}
	for _, k := range models.PermissionKeys {
		props[k] = bson.M{"bsonType": "bool"}
	}
	return bson.M{"bsonType": "object", "properties": props}
}

func familiesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "owner_id", "invite_code", "settings", "members"},
			"properties": bson.M{
				"name":        bson.M{"bsonType": "string", "minLength": 2, "maxLength": 50, "pattern": ".*\\S.*"},
				"description": bson.M{"bsonType": "string", "maxLength": models.MaxDescriptionLen},
				"owner_id":    bson.M{"bsonType": "objectId"},
				"invite_code": bson.M{"bsonType": "string", "pattern": "^[A-Z0-9]{6}$"},
				"settings": bson.M{
					"bsonType": "object",
					"properties": bson.M{
						"allow_member_invites":      bson.M{"bsonType": "bool"},
						"require_approval_for_join": bson.M{"bsonType": "bool"},
						"default_member_role":       bson.M{"enum": bson.A{models.RoleMember, models.RoleViewer}},
					},
				},
				"members": bson.M{
					"bsonType": "array",
					"minItems": 1,
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"user_id", "role", "permissions"},
						"properties": bson.M{
							"user_id":     bson.M{"bsonType": "objectId"},
							"role":        bson.M{"enum": roleEnum},
							"permissions": permissionsSchema(),
						},
					},
				},
				"invitations": bson.M{"bsonType": bson.A{"array", "null"}},
			},
		},
	}
}

func expensesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "description", "amount", "category", "date"},
			"properties": bson.M{
				"user_id":     bson.M{"bsonType": "objectId"},
				"family_id":   bson.M{"bsonType": bson.A{"objectId", "null"}},
				"description": bson.M{"bsonType": "string", "minLength": 1, "maxLength": models.MaxDescriptionLen},
				"amount":      bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "exclusiveMinimum": 0},
				"category":    bson.M{"enum": enumOf(models.Categories)},
				"date":        bson.M{"bsonType": "date"},
			},
		},
	}
}
