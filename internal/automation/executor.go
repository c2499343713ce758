package automation

import (
	"context"
	"fmt"

	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
)

type OutcomeStatus string

const (
	StatusExecuted OutcomeStatus = "executed"
	StatusSkipped  OutcomeStatus = "skipped"
	StatusFailed   OutcomeStatus = "failed"
	// StatusNotMatched only appears in dispatch reports, for rules whose
	// conditions did not hold.
	StatusNotMatched OutcomeStatus = "not_matched"
)

// Outcome is the result of executing one rule's action.
type Outcome struct {
	Status OutcomeStatus
	Target Resolution
	Err    error
}

func executed(target Resolution) Outcome {
	return Outcome{Status: StatusExecuted, Target: target}
}

func skipped(err error) Outcome {
	return Outcome{Status: StatusSkipped, Err: err}
}

func failed(target Resolution, err error) Outcome {
	return Outcome{Status: StatusFailed, Target: target, Err: err}
}

type ActionExecutor struct {
	records  RecordStore
	resolver *TargetResolver
	logger   logger.Logger
}

func NewActionExecutor(records RecordStore, resolver *TargetResolver, log logger.Logger) *ActionExecutor {
	return &ActionExecutor{records: records, resolver: resolver, logger: log}
}

// Execute performs the rule's action for the dispatched event. Resolution
// problems skip the rule; configuration and store problems fail it.
func (e *ActionExecutor) Execute(ctx context.Context, rule Rule, dc DispatchContext) Outcome {
	switch rule.ActionType {
	case ActionUpdateField:
		return e.updateField(ctx, rule, dc)
	case ActionCreateActivity, ActionSendNotification:
		return failed(Resolution{}, pkgerrors.NewUnsupportedActionError(string(rule.ActionType)))
	default:
		return failed(Resolution{}, pkgerrors.NewConfigurationError(rule.ID,
			fmt.Sprintf("unknown action type %q", rule.ActionType)))
	}
}

func (e *ActionExecutor) updateField(ctx context.Context, rule Rule, dc DispatchContext) Outcome {
	if err := validateUpdateField(rule); err != nil {
		return failed(Resolution{}, err)
	}

	target, failure := e.resolver.Resolve(rule, dc)
	if failure != nil {
		e.logger.WarnwCtx(ctx, "Automation target not resolved",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"reason", string(failure.Reason),
			"source_table", string(failure.Source),
			"target_table", string(failure.Target),
			"link_field", failure.LinkField,
		)
		return skipped(failure)
	}

	if len(target.Candidates) > 1 {
		e.logger.DebugwCtx(ctx, "Multi-valued link, using first id",
			"rule_id", rule.ID,
			"link_field", target.LinkField,
			"candidates", len(target.Candidates),
		)
	}

	fields := Fields{rule.ActionTargetField: rule.ActionValue}
	if _, err := e.records.Update(ctx, target.Table, target.ID, fields); err != nil {
		return failed(target, err)
	}

	e.logger.InfowCtx(ctx, "Automation updated field",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"target_table", string(target.Table),
		"target_id", target.ID,
		"field", rule.ActionTargetField,
		"value", rule.ActionValue,
	)
	return executed(target)
}

func validateUpdateField(rule Rule) error {
	switch {
	case rule.ActionTargetTable == "":
		return pkgerrors.NewConfigurationError(rule.ID, "action target table is not set")
	case !rule.ActionTargetTable.Valid():
		return pkgerrors.NewConfigurationError(rule.ID, fmt.Sprintf("unknown action target table %q", rule.ActionTargetTable))
	case rule.ActionTargetField == "":
		return pkgerrors.NewConfigurationError(rule.ID, "action target field is not set")
	case rule.ActionValue == "":
		return pkgerrors.NewConfigurationError(rule.ID, "action value is not set")
	}
	return nil
}
