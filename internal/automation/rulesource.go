package automation

import (
	"context"

	"leadflow/internal/logger"
)

// RuleSource loads the active rules for a (table, event) pair. Filtering
// happens in the store query, never client side.
type RuleSource struct {
	query   RuleQuery
	schemas Schemas
	logger  logger.Logger
}

func NewRuleSource(query RuleQuery, schemas Schemas, log logger.Logger) *RuleSource {
	return &RuleSource{query: query, schemas: schemas, logger: log}
}

// FindActive returns the matching rules in the store's order.
func (s *RuleSource) FindActive(ctx context.Context, table Table, event Event) ([]Rule, error) {
	rules, err := s.query.QueryRules(ctx, RuleFilter{Active: true, Table: table, Event: event})
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		s.checkFields(ctx, rule)
	}
	return rules, nil
}

// checkFields logs conditions and actions that reference fields unknown
// to the schemas. The rule is still evaluated.
func (s *RuleSource) checkFields(ctx context.Context, rule Rule) {
	if len(s.schemas) == 0 {
		return
	}
	for _, cond := range []*Condition{rule.Condition1, rule.Condition2} {
		if cond == nil || cond.Field == "" {
			continue
		}
		if !s.schemas.Has(rule.TriggerTable, cond.Field) {
			s.logger.WarnwCtx(ctx, "Rule condition references unknown field",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"table", string(rule.TriggerTable),
				"field", cond.Field,
			)
		}
	}
	if rule.ActionType == ActionUpdateField && rule.ActionTargetField != "" &&
		rule.ActionTargetTable.Valid() && !s.schemas.Has(rule.ActionTargetTable, rule.ActionTargetField) {
		s.logger.WarnwCtx(ctx, "Rule action references unknown field",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"table", string(rule.ActionTargetTable),
			"field", rule.ActionTargetField,
		)
	}
}
