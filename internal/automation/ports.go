package automation

import (
	"context"
	"time"
)

// RuleFilter is pushed down to the rule store; stores must not return
// rules outside it.
type RuleFilter struct {
	Active bool
	Table  Table
	Event  Event
}

type RuleQuery interface {
	QueryRules(ctx context.Context, filter RuleFilter) ([]Rule, error)
}

type RecordStore interface {
	Get(ctx context.Context, table Table, id string) (Record, error)
	Update(ctx context.Context, table Table, id string, fields Fields) (Record, error)
}

// LedgerEntry is one successful firing of a rule. ExecutionCount is the
// value the rule should hold after the write. The trigger pair lets caching
// stores drop stale rule lists.
type LedgerEntry struct {
	RuleID         string
	TriggerTable   Table
	TriggerEvent   Event
	ExecutionCount int
	LastExecuted   time.Time
}

type LedgerStore interface {
	RecordExecution(ctx context.Context, entry LedgerEntry) error
}

// Reporter receives the outcome of every dispatch.
type Reporter interface {
	Report(ctx context.Context, report *Report) error
}
