package automation

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgerrors "leadflow/pkg/errors"
)

type fakeRuleQuery struct {
	rules   []Rule
	err     error
	filters []RuleFilter
}

func (q *fakeRuleQuery) QueryRules(_ context.Context, filter RuleFilter) ([]Rule, error) {
	q.filters = append(q.filters, filter)
	if q.err != nil {
		return nil, q.err
	}
	var out []Rule
	for _, r := range q.rules {
		if r.Active == filter.Active && r.TriggerTable == filter.Table && r.TriggerEvent == filter.Event {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordKey struct {
	table Table
	id    string
}

type fakeRecords struct {
	mu        sync.Mutex
	records   map[recordKey]Fields
	updateErr map[recordKey]error
	panics    map[recordKey]any
	updates   []recordKey
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		records:   make(map[recordKey]Fields),
		updateErr: make(map[recordKey]error),
		panics:    make(map[recordKey]any),
	}
}

func (s *fakeRecords) put(table Table, id string, fields Fields) {
	s.records[recordKey{table, id}] = fields
}

func (s *fakeRecords) field(table Table, id, field string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[recordKey{table, id}][field]
}

func (s *fakeRecords) Get(_ context.Context, table Table, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.records[recordKey{table, id}]
	if !ok {
		return Record{}, pkgerrors.NewPermanentStoreError("get", pkgerrors.ErrNotFound)
	}
	return Record{ID: id, Table: table, Fields: fields}, nil
}

func (s *fakeRecords) Update(_ context.Context, table Table, id string, fields Fields) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{table, id}
	s.updates = append(s.updates, key)
	if v, ok := s.panics[key]; ok {
		panic(v)
	}
	if err := s.updateErr[key]; err != nil {
		return Record{}, err
	}
	existing, ok := s.records[key]
	if !ok {
		return Record{}, pkgerrors.NewPermanentStoreError("update", pkgerrors.ErrNotFound)
	}
	for k, v := range fields {
		existing[k] = v
	}
	return Record{ID: id, Table: table, Fields: existing}, nil
}

type fakeLedger struct {
	entries []LedgerEntry
	err     error
}

func (l *fakeLedger) RecordExecution(_ context.Context, entry LedgerEntry) error {
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, entry)
	return nil
}

type fakeReporter struct {
	reports []*Report
	err     error
}

func (r *fakeReporter) Report(_ context.Context, report *Report) error {
	r.reports = append(r.reports, report)
	return r.err
}

var errStoreDown = errors.New("store down")

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 16, 30, 0, 0, time.UTC)
}

func cond(field string, op Operator, value string) *Condition {
	return &Condition{Field: field, Operator: op, Value: value}
}
