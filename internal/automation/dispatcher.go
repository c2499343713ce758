package automation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/logging"
	"leadflow/pkg/metrics"
	"leadflow/pkg/tracing"
)

// RuleOutcome is the per-rule line of a dispatch report.
type RuleOutcome struct {
	RuleID      string        `json:"rule_id"`
	RuleName    string        `json:"rule_name"`
	Status      OutcomeStatus `json:"status"`
	TargetTable Table         `json:"target_table,omitempty"`
	TargetID    string        `json:"target_id,omitempty"`
	Error       string        `json:"error,omitempty"`
	DurationMs  int64         `json:"duration_ms"`

	err error
}

// Err returns the error behind a skipped or failed outcome.
func (o RuleOutcome) Err() error {
	return o.err
}

// Report summarises one dispatch.
type Report struct {
	DispatchID       string        `json:"dispatch_id"`
	Table            Table         `json:"table"`
	Event            Event         `json:"event"`
	RecordID         string        `json:"record_id"`
	PreviousRecordID string        `json:"previous_record_id,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	DurationMs       int64         `json:"duration_ms"`
	Candidates       int           `json:"candidates"`
	Succeeded        int           `json:"succeeded"`
	Outcomes         []RuleOutcome `json:"outcomes"`
}

// Dispatcher runs the automations that apply to a record event.
type Dispatcher struct {
	rules     *RuleSource
	evaluator *ConditionEvaluator
	executor  *ActionExecutor
	ledger    *ExecutionLedger
	reporters []Reporter
	logger    logger.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Dispatcher)

func WithReporters(reporters ...Reporter) Option {
	return func(d *Dispatcher) {
		d.reporters = append(d.reporters, reporters...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) {
		d.newID = newID
	}
}

func NewDispatcher(rules *RuleSource, evaluator *ConditionEvaluator, executor *ActionExecutor, ledger *ExecutionLedger, log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		rules:     rules,
		evaluator: evaluator,
		executor:  executor,
		ledger:    ledger,
		logger:    log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch returns the number of rules whose action executed.
func (d *Dispatcher) Dispatch(ctx context.Context, table Table, event Event, record Record, previous *Record) (int, error) {
	report, err := d.DispatchReport(ctx, DispatchContext{
		Table:    table,
		Event:    event,
		Record:   record,
		Previous: previous,
	})
	if err != nil {
		return 0, err
	}
	return report.Succeeded, nil
}

func (d *Dispatcher) DispatchCreated(ctx context.Context, table Table, record Record) (int, error) {
	return d.Dispatch(ctx, table, EventCreated, record, nil)
}

func (d *Dispatcher) DispatchUpdated(ctx context.Context, table Table, record Record, previous *Record) (int, error) {
	return d.Dispatch(ctx, table, EventUpdated, record, previous)
}

func (d *Dispatcher) DispatchDeleted(ctx context.Context, table Table, record Record) (int, error) {
	return d.Dispatch(ctx, table, EventDeleted, record, nil)
}

// DispatchReport loads the candidate rules and processes them one after
// the other in store order. Only a rule loading failure is returned; every
// per-rule failure is recorded in the report. Cancelling ctx does not stop
// a dispatch that has started.
func (d *Dispatcher) DispatchReport(ctx context.Context, dc DispatchContext) (*Report, error) {
	if err := dc.validate(); err != nil {
		return nil, err
	}
	if dc.Record.Table == "" {
		dc.Record.Table = dc.Table
	}

	ctx = context.WithoutCancel(ctx)
	dispatchID := d.newID()
	ctx = logging.WithDispatchID(ctx, dispatchID)

	ctx, span := tracing.GetTracer("automation-dispatcher").Start(ctx, "automation.dispatch")
	defer span.End()
	if traceID := tracing.TraceID(ctx); traceID != "" {
		ctx = logging.WithTraceID(ctx, traceID)
	}
	span.SetAttributes(
		attribute.String("automation.table", string(dc.Table)),
		attribute.String("automation.event", string(dc.Event)),
		attribute.String("automation.record_id", dc.Record.ID),
	)

	report := &Report{
		DispatchID: dispatchID,
		Table:      dc.Table,
		Event:      dc.Event,
		RecordID:   dc.Record.ID,
		StartedAt:  d.now(),
	}
	if dc.Previous != nil {
		report.PreviousRecordID = dc.Previous.ID
	}

	d.logger.DebugwCtx(ctx, "Checking automations",
		"table", string(dc.Table),
		"event", string(dc.Event),
		"record_id", dc.Record.ID,
	)

	rules, err := d.rules.FindActive(ctx, dc.Table, dc.Event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "loading rules failed")
		metrics.IncDispatch(string(dc.Table), string(dc.Event), "error")
		d.logger.ErrorwCtx(ctx, "Failed to load automations",
			"table", string(dc.Table),
			"event", string(dc.Event),
			"error", err,
		)
		return nil, err
	}

	report.Candidates = len(rules)
	report.Outcomes = make([]RuleOutcome, 0, len(rules))
	metrics.ObserveRulesMatched(string(dc.Table), string(dc.Event), len(rules))

	for _, rule := range rules {
		outcome := d.processRule(ctx, rule, dc)
		if outcome.Status == StatusExecuted {
			report.Succeeded++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	elapsed := d.now().Sub(report.StartedAt)
	report.DurationMs = elapsed.Milliseconds()
	metrics.IncDispatch(string(dc.Table), string(dc.Event), "ok")
	metrics.ObserveDispatchDuration(string(dc.Table), string(dc.Event), elapsed)
	span.SetAttributes(
		attribute.Int("automation.candidates", report.Candidates),
		attribute.Int("automation.succeeded", report.Succeeded),
	)

	d.logger.InfowCtx(ctx, "Automations dispatched",
		"table", string(dc.Table),
		"event", string(dc.Event),
		"record_id", dc.Record.ID,
		"candidates", report.Candidates,
		"succeeded", report.Succeeded,
	)

	d.publish(ctx, report)
	return report, nil
}

func (d *Dispatcher) processRule(ctx context.Context, rule Rule, dc DispatchContext) RuleOutcome {
	start := d.now()
	ctx, span := tracing.GetTracer("automation-dispatcher").Start(ctx, "automation.rule")
	defer span.End()
	span.SetAttributes(
		attribute.String("automation.rule_id", rule.ID),
		attribute.String("automation.rule_name", rule.Name),
	)

	result := RuleOutcome{RuleID: rule.ID, RuleName: rule.Name}
	finish := func() RuleOutcome {
		result.DurationMs = d.now().Sub(start).Milliseconds()
		if result.err != nil {
			result.Error = result.err.Error()
		}
		metrics.IncRuleOutcome(rule.ID, rule.Name, string(result.Status))
		return result
	}

	if !d.evaluator.Evaluate(ctx, rule, dc.Record) {
		d.logger.DebugwCtx(ctx, "Automation conditions not met",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
		)
		result.Status = StatusNotMatched
		return finish()
	}

	d.logger.DebugwCtx(ctx, "Automation matched",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
	)

	var outcome Outcome
	if err := pkgerrors.Guard(func() error {
		outcome = d.executor.Execute(ctx, rule, dc)
		return nil
	}); err != nil {
		outcome = failed(Resolution{}, err)
	}
	result.Status = outcome.Status
	result.TargetTable = outcome.Target.Table
	result.TargetID = outcome.Target.ID
	result.err = outcome.Err

	switch outcome.Status {
	case StatusExecuted:
		d.recordLedger(ctx, rule)
	case StatusSkipped:
		d.logger.WarnwCtx(ctx, "Automation skipped",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"error", outcome.Err,
		)
	case StatusFailed:
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, "action failed")
		d.logger.ErrorwCtx(ctx, "Automation failed",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"action_type", string(rule.ActionType),
			"error", outcome.Err,
		)
	}
	return finish()
}

func (d *Dispatcher) recordLedger(ctx context.Context, rule Rule) {
	entry, err := d.ledger.RecordSuccess(ctx, rule)
	if err != nil {
		metrics.IncLedgerFailure()
		d.logger.ErrorwCtx(ctx, "Failed to record automation execution",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"error", err,
		)
		return
	}
	d.logger.DebugwCtx(ctx, "Automation execution recorded",
		"rule_id", rule.ID,
		"execution_count", entry.ExecutionCount,
		"last_executed", entry.LastExecuted.Format(DateLayout),
	)
}

func (d *Dispatcher) publish(ctx context.Context, report *Report) {
	for _, r := range d.reporters {
		if err := r.Report(ctx, report); err != nil {
			d.logger.WarnwCtx(ctx, "Failed to publish dispatch report",
				"error", err,
			)
		}
	}
}
