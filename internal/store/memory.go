package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"leadflow/internal/automation"
	"leadflow/internal/constants"
	pkgerrors "leadflow/pkg/errors"
)

// MemoryStore keeps rules and records in process. Rules are returned in
// insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	rules   []automation.Rule
	records map[automation.Table]map[string]automation.Fields
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[automation.Table]map[string]automation.Fields),
	}
}

func (s *MemoryStore) Name() string {
	return constants.StoreTypeMemory
}

// PutRule inserts rule, replacing any rule with the same id in place.
func (s *MemoryStore) PutRule(rule automation.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].ID == rule.ID {
			s.rules[i] = rule
			return
		}
	}
	s.rules = append(s.rules, rule)
}

func (s *MemoryStore) Rule(id string) (automation.Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return automation.Rule{}, false
}

func (s *MemoryStore) PutRecord(table automation.Table, record automation.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[table] == nil {
		s.records[table] = make(map[string]automation.Fields)
	}
	s.records[table][record.ID] = copyFields(record.Fields)
}

func (s *MemoryStore) QueryRules(_ context.Context, filter automation.RuleFilter) ([]automation.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []automation.Rule
	for _, r := range s.rules {
		if r.Active == filter.Active && r.TriggerTable == filter.Table && r.TriggerEvent == filter.Event {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, table automation.Table, id string) (automation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.records[table][id]
	if !ok {
		return automation.Record{}, recordNotFound(table, id)
	}
	return automation.Record{ID: id, Table: table, Fields: copyFields(fields)}, nil
}

func (s *MemoryStore) Update(_ context.Context, table automation.Table, id string, fields automation.Fields) (automation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[table][id]
	if !ok {
		return automation.Record{}, recordNotFound(table, id)
	}
	for k, v := range fields {
		existing[k] = v
	}
	return automation.Record{ID: id, Table: table, Fields: copyFields(existing)}, nil
}

func (s *MemoryStore) RecordExecution(_ context.Context, entry automation.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].ID != entry.RuleID {
			continue
		}
		last := entry.LastExecuted
		s.rules[i].ExecutionCount = entry.ExecutionCount
		s.rules[i].LastExecuted = &last
		return nil
	}
	return pkgerrors.ErrNotFound.WithMessage(fmt.Sprintf("automation %s not found", entry.RuleID))
}

// Fixtures is the file format accepted by LoadFixtures.
type Fixtures struct {
	Rules   []automation.Rule                        `json:"rules"`
	Records map[automation.Table][]automation.Record `json:"records"`
}

// LoadFixtures seeds the store from a JSON file.
func (s *MemoryStore) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixtures: %w", err)
	}

	var fixtures Fixtures
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("failed to parse fixtures: %w", err)
	}

	for _, rule := range fixtures.Rules {
		s.PutRule(rule)
	}
	for table, records := range fixtures.Records {
		if !table.Valid() {
			return fmt.Errorf("fixtures reference unknown table %q", table)
		}
		for _, record := range records {
			s.PutRecord(table, record)
		}
	}
	return nil
}

func recordNotFound(table automation.Table, id string) error {
	return pkgerrors.ErrNotFound.WithMessage(fmt.Sprintf("%s record %s not found", table, id))
}

func copyFields(fields automation.Fields) automation.Fields {
	out := make(automation.Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
