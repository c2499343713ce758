package automation

import (
	"context"
	"time"
)

// ExecutionLedger counts successful firings per rule. The write is not
// linked to the action it follows: a failure between the two leaves the
// action applied and the counter stale.
type ExecutionLedger struct {
	store LedgerStore
	now   func() time.Time
}

func NewExecutionLedger(store LedgerStore, now func() time.Time) *ExecutionLedger {
	if now == nil {
		now = time.Now
	}
	return &ExecutionLedger{store: store, now: now}
}

// RecordSuccess persists executionCount+1 and today's date (UTC) for rule.
func (l *ExecutionLedger) RecordSuccess(ctx context.Context, rule Rule) (LedgerEntry, error) {
	entry := LedgerEntry{
		RuleID:         rule.ID,
		TriggerTable:   rule.TriggerTable,
		TriggerEvent:   rule.TriggerEvent,
		ExecutionCount: rule.ExecutionCount + 1,
		LastExecuted:   Today(l.now()),
	}
	if err := l.store.RecordExecution(ctx, entry); err != nil {
		return entry, err
	}
	return entry, nil
}

// Today truncates t to midnight UTC.
func Today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
