package main

import (
	"fmt"

	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/internal/logger"
	"leadflow/internal/store"
)

// engine is the dispatch pipeline shared by the serve and dispatch commands.
type engine struct {
	store         store.Backend
	rules         *automation.RuleSource
	relationships *automation.RelationshipTable
	dispatcher    *automation.Dispatcher
}

func newEngine(cfg *config.Config, backend store.Backend, log logger.Logger, reporters ...automation.Reporter) (*engine, error) {
	schemas := automation.DefaultSchemas()

	relationships, err := buildRelationships(cfg.Automation.Relationships, schemas)
	if err != nil {
		return nil, err
	}

	policy, err := automation.ParseMissingConditionPolicy(cfg.Automation.MissingConditionPolicy)
	if err != nil {
		return nil, err
	}

	rules := automation.NewRuleSource(backend, schemas, log)
	dispatcher := automation.NewDispatcher(
		rules,
		automation.NewConditionEvaluator(policy, log),
		automation.NewActionExecutor(backend, automation.NewTargetResolver(relationships), log),
		automation.NewExecutionLedger(backend, nil),
		log,
		automation.WithReporters(reporters...),
	)

	return &engine{
		store:         backend,
		rules:         rules,
		relationships: relationships,
		dispatcher:    dispatcher,
	}, nil
}

// buildRelationships layers the configured links over the defaults and
// checks the result against the table schemas.
func buildRelationships(overrides []config.RelationshipConfig, schemas automation.Schemas) (*automation.RelationshipTable, error) {
	rels := automation.DefaultRelationships()
	for i, rc := range overrides {
		source, err := automation.ParseTable(rc.Source)
		if err != nil {
			return nil, fmt.Errorf("automation.relationships[%d].source: %w", i, err)
		}
		target, err := automation.ParseTable(rc.Target)
		if err != nil {
			return nil, fmt.Errorf("automation.relationships[%d].target: %w", i, err)
		}
		rels = append(rels, automation.Relationship{Source: source, Target: target, LinkField: rc.LinkField})
	}

	table := automation.NewRelationshipTable(rels...)
	if err := table.Validate(schemas); err != nil {
		return nil, fmt.Errorf("invalid relationships: %w", err)
	}
	return table, nil
}
