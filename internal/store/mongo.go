package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"leadflow/internal/automation"
	"leadflow/internal/constants"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/metrics"
)

// MongoStore keeps rules in one collection and the records of each table
// in a collection of their own ("lead_records", "order_records", ...).
type MongoStore struct {
	db    *mongo.Database
	rules *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:    db,
		rules: db.Collection(constants.MongoRulesCollection),
	}
}

func (s *MongoStore) Name() string {
	return constants.StoreTypeMongoDB
}

type ruleDocument struct {
	ID                string                `bson:"_id"`
	Name              string                `bson:"name"`
	Active            bool                  `bson:"active"`
	TriggerTable      string                `bson:"trigger_table"`
	TriggerEvent      string                `bson:"trigger_event"`
	Condition1        *automation.Condition `bson:"condition1,omitempty"`
	Condition2        *automation.Condition `bson:"condition2,omitempty"`
	Logic             string                `bson:"logic,omitempty"`
	ActionType        string                `bson:"action_type"`
	ActionTargetTable string                `bson:"action_target_table,omitempty"`
	ActionTargetField string                `bson:"action_target_field,omitempty"`
	ActionValue       string                `bson:"action_value,omitempty"`
	ExecutionCount    int                   `bson:"execution_count"`
	LastExecuted      *time.Time            `bson:"last_executed,omitempty"`
	CreatedAt         time.Time             `bson:"created_at"`
}

func (d ruleDocument) toRule() automation.Rule {
	if d.LastExecuted != nil {
		last := d.LastExecuted.UTC()
		d.LastExecuted = &last
	}
	return automation.Rule{
		ID:                d.ID,
		Name:              d.Name,
		Active:            d.Active,
		TriggerTable:      automation.Table(d.TriggerTable),
		TriggerEvent:      automation.Event(d.TriggerEvent),
		Condition1:        d.Condition1,
		Condition2:        d.Condition2,
		Logic:             automation.Logic(d.Logic),
		ActionType:        automation.ActionType(d.ActionType),
		ActionTargetTable: automation.Table(d.ActionTargetTable),
		ActionTargetField: d.ActionTargetField,
		ActionValue:       d.ActionValue,
		ExecutionCount:    d.ExecutionCount,
		LastExecuted:      d.LastExecuted,
	}
}

func ruleDocumentFrom(rule automation.Rule, createdAt time.Time) ruleDocument {
	return ruleDocument{
		ID:                rule.ID,
		Name:              rule.Name,
		Active:            rule.Active,
		TriggerTable:      string(rule.TriggerTable),
		TriggerEvent:      string(rule.TriggerEvent),
		Condition1:        rule.Condition1,
		Condition2:        rule.Condition2,
		Logic:             string(rule.Logic),
		ActionType:        string(rule.ActionType),
		ActionTargetTable: string(rule.ActionTargetTable),
		ActionTargetField: rule.ActionTargetField,
		ActionValue:       rule.ActionValue,
		ExecutionCount:    rule.ExecutionCount,
		LastExecuted:      rule.LastExecuted,
		CreatedAt:         createdAt,
	}
}

// RecordsCollection names the collection holding the records of table.
func RecordsCollection(table automation.Table) string {
	return lowerTable(table) + constants.MongoRecordsCollectionSuffix
}

// PutRule upserts rule. Rules keep the creation time of their first insert,
// which is their position in query results.
func (s *MongoStore) PutRule(ctx context.Context, rule automation.Rule) error {
	doc := ruleDocumentFrom(rule, time.Now().UTC())
	set, err := toSetDocument(doc)
	if err != nil {
		return err
	}
	delete(set, "created_at")

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": doc.CreatedAt},
	}
	_, err = s.rules.UpdateByID(ctx, rule.ID, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb upsert rule failed: %w", err)
	}
	return nil
}

func (s *MongoStore) PutRecord(ctx context.Context, table automation.Table, record automation.Record) error {
	_, err := s.db.Collection(RecordsCollection(table)).UpdateByID(ctx, record.ID,
		bson.M{"$set": bson.M{"fields": record.Fields}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongodb upsert record failed: %w", err)
	}
	return nil
}

func (s *MongoStore) QueryRules(ctx context.Context, filter automation.RuleFilter) ([]automation.Rule, error) {
	start := time.Now()
	query := bson.M{
		"active":        filter.Active,
		"trigger_table": string(filter.Table),
		"trigger_event": string(filter.Event),
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.rules.Find(ctx, query, opts)
	if err != nil {
		s.observe("find_rules", "error", start)
		return nil, fmt.Errorf("mongodb find rules failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ruleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		s.observe("find_rules", "error", start)
		return nil, fmt.Errorf("mongodb decode rules failed: %w", err)
	}
	s.observe("find_rules", "success", start)

	rules := make([]automation.Rule, 0, len(docs))
	for _, d := range docs {
		rules = append(rules, d.toRule())
	}
	return rules, nil
}

func (s *MongoStore) Get(ctx context.Context, table automation.Table, id string) (automation.Record, error) {
	start := time.Now()
	var doc bson.M
	err := s.db.Collection(RecordsCollection(table)).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		s.observe("get_record", "not_found", start)
		return automation.Record{}, recordNotFound(table, id)
	}
	if err != nil {
		s.observe("get_record", "error", start)
		return automation.Record{}, fmt.Errorf("mongodb get record failed: %w", err)
	}
	s.observe("get_record", "success", start)
	return automation.Record{ID: id, Table: table, Fields: fieldsFromDocument(doc)}, nil
}

func (s *MongoStore) Update(ctx context.Context, table automation.Table, id string, fields automation.Fields) (automation.Record, error) {
	start := time.Now()
	set := bson.M{}
	for k, v := range fields {
		set["fields."+k] = v
	}

	var doc bson.M
	err := s.db.Collection(RecordsCollection(table)).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		s.observe("update_record", "not_found", start)
		return automation.Record{}, recordNotFound(table, id)
	}
	if err != nil {
		s.observe("update_record", "error", start)
		return automation.Record{}, fmt.Errorf("mongodb update record failed: %w", err)
	}
	s.observe("update_record", "success", start)
	return automation.Record{ID: id, Table: table, Fields: fieldsFromDocument(doc)}, nil
}

// RecordExecution increments the stored counter atomically instead of
// writing entry.ExecutionCount, so concurrent firings are not lost.
func (s *MongoStore) RecordExecution(ctx context.Context, entry automation.LedgerEntry) error {
	start := time.Now()
	res, err := s.rules.UpdateByID(ctx, entry.RuleID, bson.M{
		"$inc": bson.M{"execution_count": 1},
		"$set": bson.M{"last_executed": entry.LastExecuted},
	})
	if err != nil {
		s.observe("record_execution", "error", start)
		return fmt.Errorf("mongodb record execution failed: %w", err)
	}
	if res.MatchedCount == 0 {
		s.observe("record_execution", "not_found", start)
		return pkgerrors.ErrNotFound.WithMessage(fmt.Sprintf("automation %s not found", entry.RuleID))
	}
	s.observe("record_execution", "success", start)
	return nil
}

func (s *MongoStore) observe(operation, status string, start time.Time) {
	metrics.IncDatabaseQuery("automation", "mongodb", operation, status)
	metrics.ObserveDatabaseQueryDuration("automation", "mongodb", operation, time.Since(start))
}

func toSetDocument(doc ruleDocument) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to encode rule: %w", err)
	}
	delete(m, "_id")
	return m, nil
}

func fieldsFromDocument(doc bson.M) automation.Fields {
	raw, ok := normalizeBSON(doc["fields"]).(map[string]any)
	if !ok {
		return automation.Fields{}
	}
	return automation.Fields(raw)
}

// normalizeBSON turns driver types into the plain values conditions and
// link fields expect.
func normalizeBSON(v any) any {
	switch x := v.(type) {
	case primitive.A:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeBSON(item)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalizeBSON(item)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	}
	return v
}
