package utils

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quickcert/certbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SeedAdminUser upserts an admin account; an existing account with the same
// email is left untouched. Missing credentials mean seeding is skipped.
func SeedAdminUser(ctx context.Context, adminsCol *mongo.Collection, email, pass string, cost int) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || pass == "" {
		slog.Debug("admin seeding skipped: ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	hash, err := HashPassword(pass, cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()

	filter := bson.M{"email": email}
	update := bson.M{
		"$setOnInsert": bson.M{
			"email":        email,
			"passwordHash": hash,
			"role":         models.RoleAdmin,
			"createdAt":    now,
			"updatedAt":    now,
		},
	}

	opts := options.UpdateOne().SetUpsert(true)

	res, err := adminsCol.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("seed admin upsert failed: %w", err)
	}

	if res.UpsertedCount == 1 {
		slog.Info("admin user seeded", slog.String("email", email))
	} else {
		slog.Info("admin user already exists", slog.String("email", email))
	}
	return nil
}
