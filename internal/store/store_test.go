package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"leadflow/internal/automation"
	"leadflow/pkg/retry"
)

// scriptedBackend fails each call with the next queued error, then
// delegates to an in-memory store.
type scriptedBackend struct {
	*MemoryStore
	mu    sync.Mutex
	errs  []error
	calls int
}

func newScriptedBackend(errs ...error) *scriptedBackend {
	return &scriptedBackend{MemoryStore: NewMemoryStore(), errs: errs}
}

func (b *scriptedBackend) next() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if len(b.errs) == 0 {
		return nil
	}
	err := b.errs[0]
	b.errs = b.errs[1:]
	return err
}

func (b *scriptedBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *scriptedBackend) QueryRules(ctx context.Context, filter automation.RuleFilter) ([]automation.Rule, error) {
	if err := b.next(); err != nil {
		return nil, err
	}
	return b.MemoryStore.QueryRules(ctx, filter)
}

func (b *scriptedBackend) Update(ctx context.Context, table automation.Table, id string, fields automation.Fields) (automation.Record, error) {
	if err := b.next(); err != nil {
		return automation.Record{}, err
	}
	return b.MemoryStore.Update(ctx, table, id, fields)
}

func (b *scriptedBackend) RecordExecution(ctx context.Context, entry automation.LedgerEntry) error {
	if err := b.next(); err != nil {
		return err
	}
	return b.MemoryStore.RecordExecution(ctx, entry)
}

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     4 * time.Millisecond,
		Multiplier:      2,
	}
}

var errBoom = errors.New("boom")

func sampleRule() automation.Rule {
	return automation.Rule{
		ID:                "recRule1",
		Name:              "Lead contattato",
		Active:            true,
		TriggerTable:      automation.TableActivity,
		TriggerEvent:      automation.EventCreated,
		Condition1:        &automation.Condition{Field: "Esito", Operator: automation.OpEquals, Value: "Contatto riuscito"},
		ActionType:        automation.ActionUpdateField,
		ActionTargetTable: automation.TableLead,
		ActionTargetField: "Stato",
		ActionValue:       "Contattato",
		ExecutionCount:    5,
	}
}
