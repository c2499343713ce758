package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"leadflow/internal/constants"
)

// EnsureMongoCollections creates the indexes backing the rule lookup. The
// collections themselves are created on first insert.
func EnsureMongoCollections(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(constants.MongoRulesCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "active", Value: 1},
				{Key: "trigger_table", Value: 1},
				{Key: "trigger_event", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_automation_rules_trigger"),
		},
		{
			Keys:    bson.D{{Key: "action_target_table", Value: 1}},
			Options: options.Index().SetName("idx_automation_rules_action_target_table"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
