package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"leadflow/internal/automation"
	"leadflow/internal/constants"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/metrics"
)

// PostgresStore keeps rules in automation_rules and every record, whatever
// its table, in records as a JSONB field map.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string {
	return constants.StoreTypePostgres
}

// RunPostgresMigrations applies the migrations found in dir.
func RunPostgresMigrations(db *sql.DB, dir string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

const ruleColumns = `id, name, is_active, trigger_table, trigger_event,
	trigger_field, trigger_operator, trigger_value,
	trigger_field2, trigger_operator2, trigger_value2, trigger_logic,
	action_type, action_target_table, action_target_field, action_value,
	execution_count, last_executed`

func (s *PostgresStore) PutRule(ctx context.Context, rule automation.Rule) error {
	c1 := conditionColumns(rule.Condition1)
	c2 := conditionColumns(rule.Condition2)

	var lastExecuted any
	if rule.LastExecuted != nil {
		lastExecuted = rule.LastExecuted.Format(automation.DateLayout)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO automation_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			is_active = EXCLUDED.is_active,
			trigger_table = EXCLUDED.trigger_table,
			trigger_event = EXCLUDED.trigger_event,
			trigger_field = EXCLUDED.trigger_field,
			trigger_operator = EXCLUDED.trigger_operator,
			trigger_value = EXCLUDED.trigger_value,
			trigger_field2 = EXCLUDED.trigger_field2,
			trigger_operator2 = EXCLUDED.trigger_operator2,
			trigger_value2 = EXCLUDED.trigger_value2,
			trigger_logic = EXCLUDED.trigger_logic,
			action_type = EXCLUDED.action_type,
			action_target_table = EXCLUDED.action_target_table,
			action_target_field = EXCLUDED.action_target_field,
			action_value = EXCLUDED.action_value,
			execution_count = EXCLUDED.execution_count,
			last_executed = EXCLUDED.last_executed`,
		rule.ID, rule.Name, rule.Active, string(rule.TriggerTable), string(rule.TriggerEvent),
		c1[0], c1[1], c1[2],
		c2[0], c2[1], c2[2], string(rule.Logic),
		string(rule.ActionType), string(rule.ActionTargetTable), rule.ActionTargetField, rule.ActionValue,
		rule.ExecutionCount, lastExecuted,
	)
	if err != nil {
		return fmt.Errorf("postgres upsert rule failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutRecord(ctx context.Context, table automation.Table, record automation.Record) error {
	data, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (table_name, id, fields) VALUES ($1, $2, $3)
		ON CONFLICT (table_name, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = NOW()`,
		string(table), record.ID, data,
	)
	if err != nil {
		return fmt.Errorf("postgres upsert record failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryRules(ctx context.Context, filter automation.RuleFilter) ([]automation.Rule, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules
		WHERE is_active = $1 AND trigger_table = $2 AND trigger_event = $3
		ORDER BY created_at, id`,
		filter.Active, string(filter.Table), string(filter.Event),
	)
	if err != nil {
		s.observe("find_rules", "error", start)
		return nil, fmt.Errorf("postgres query rules failed: %w", err)
	}
	defer rows.Close()

	var rules []automation.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			s.observe("find_rules", "error", start)
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		s.observe("find_rules", "error", start)
		return nil, fmt.Errorf("postgres query rules failed: %w", err)
	}
	s.observe("find_rules", "success", start)
	return rules, nil
}

func (s *PostgresStore) Get(ctx context.Context, table automation.Table, id string) (automation.Record, error) {
	start := time.Now()
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM records WHERE table_name = $1 AND id = $2`,
		string(table), id,
	).Scan(&raw)
	return s.recordResult("get_record", table, id, raw, err, start)
}

// Update merges fields into the stored map with the jsonb || operator.
func (s *PostgresStore) Update(ctx context.Context, table automation.Table, id string, fields automation.Fields) (automation.Record, error) {
	start := time.Now()
	data, err := json.Marshal(fields)
	if err != nil {
		return automation.Record{}, fmt.Errorf("failed to encode fields: %w", err)
	}

	var raw []byte
	err = s.db.QueryRowContext(ctx, `
		UPDATE records SET fields = fields || $3::jsonb, updated_at = NOW()
		WHERE table_name = $1 AND id = $2
		RETURNING fields`,
		string(table), id, data,
	).Scan(&raw)
	return s.recordResult("update_record", table, id, raw, err, start)
}

// RecordExecution increments the stored counter in the statement itself.
func (s *PostgresStore) RecordExecution(ctx context.Context, entry automation.LedgerEntry) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE automation_rules
		SET execution_count = execution_count + 1, last_executed = $2
		WHERE id = $1`,
		entry.RuleID, entry.LastExecuted.Format(automation.DateLayout),
	)
	if err != nil {
		s.observe("record_execution", "error", start)
		return fmt.Errorf("postgres record execution failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		s.observe("record_execution", "error", start)
		return fmt.Errorf("postgres record execution failed: %w", err)
	}
	if n == 0 {
		s.observe("record_execution", "not_found", start)
		return pkgerrors.ErrNotFound.WithMessage(fmt.Sprintf("automation %s not found", entry.RuleID))
	}
	s.observe("record_execution", "success", start)
	return nil
}

func (s *PostgresStore) recordResult(operation string, table automation.Table, id string, raw []byte, err error, start time.Time) (automation.Record, error) {
	if errors.Is(err, sql.ErrNoRows) {
		s.observe(operation, "not_found", start)
		return automation.Record{}, recordNotFound(table, id)
	}
	if err != nil {
		s.observe(operation, "error", start)
		return automation.Record{}, fmt.Errorf("postgres %s failed: %w", operation, err)
	}

	fields := automation.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		s.observe(operation, "error", start)
		return automation.Record{}, fmt.Errorf("failed to decode fields: %w", err)
	}
	s.observe(operation, "success", start)
	return automation.Record{ID: id, Table: table, Fields: fields}, nil
}

func (s *PostgresStore) observe(operation, status string, start time.Time) {
	metrics.IncDatabaseQuery("automation", "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration("automation", "postgres", operation, time.Since(start))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (automation.Rule, error) {
	var (
		rule                    automation.Rule
		table, event, logic     string
		actionType, targetTable string
		field1, op1, value1     string
		field2, op2, value2     string
		lastExecuted            sql.NullTime
	)
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Active, &table, &event,
		&field1, &op1, &value1,
		&field2, &op2, &value2, &logic,
		&actionType, &targetTable, &rule.ActionTargetField, &rule.ActionValue,
		&rule.ExecutionCount, &lastExecuted,
	)
	if err != nil {
		return automation.Rule{}, fmt.Errorf("postgres scan rule failed: %w", err)
	}

	rule.TriggerTable = automation.Table(table)
	rule.TriggerEvent = automation.Event(event)
	rule.Condition1 = conditionFrom(field1, op1, value1)
	rule.Condition2 = secondConditionFrom(field2, op2, value2)
	rule.Logic = automation.Logic(logic)
	rule.ActionType = automation.ActionType(actionType)
	rule.ActionTargetTable = automation.Table(targetTable)
	if lastExecuted.Valid {
		t := automation.Today(lastExecuted.Time)
		rule.LastExecuted = &t
	}
	return rule, nil
}

func conditionColumns(c *automation.Condition) [3]string {
	if c == nil {
		return [3]string{}
	}
	return [3]string{c.Field, string(c.Operator), c.Value}
}
