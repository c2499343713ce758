package store

import (
	"context"
	"fmt"

	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/pkg/circuitbreaker"
)

// CircuitBreakerStore stops calling a backend that keeps failing with
// retryable errors. Permanent errors such as a missing record count as
// successful calls and never trip it.
type CircuitBreakerStore struct {
	backend Backend
	cb      *circuitbreaker.Wrapper
}

// NewCircuitBreakerStore returns backend unchanged when the breaker is
// disabled.
func NewCircuitBreakerStore(backend Backend, cfg config.CircuitBreakerConfig) Backend {
	if !cfg.Enabled {
		return backend
	}

	cbConfig := circuitbreaker.DefaultConfig("store-" + backend.Name())
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 {
		cbConfig.FailureRatio = cfg.FailureRatio
	}
	if cfg.MinRequests > 0 {
		cbConfig.MinRequests = cfg.MinRequests
	}
	cbConfig.IsSuccessful = func(err error) bool {
		return err == nil || !IsRetryable(err)
	}

	return &CircuitBreakerStore{
		backend: backend,
		cb:      circuitbreaker.NewWrapper(cbConfig),
	}
}

func (s *CircuitBreakerStore) Name() string {
	return s.backend.Name()
}

func (s *CircuitBreakerStore) State() string {
	return s.cb.State().String()
}

func (s *CircuitBreakerStore) QueryRules(ctx context.Context, filter automation.RuleFilter) ([]automation.Rule, error) {
	var rules []automation.Rule
	err := s.execute(ctx, func(ctx context.Context) error {
		var err error
		rules, err = s.backend.QueryRules(ctx, filter)
		return err
	})
	return rules, err
}

func (s *CircuitBreakerStore) Get(ctx context.Context, table automation.Table, id string) (automation.Record, error) {
	var record automation.Record
	err := s.execute(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.backend.Get(ctx, table, id)
		return err
	})
	return record, err
}

func (s *CircuitBreakerStore) Update(ctx context.Context, table automation.Table, id string, fields automation.Fields) (automation.Record, error) {
	var record automation.Record
	err := s.execute(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.backend.Update(ctx, table, id, fields)
		return err
	})
	return record, err
}

func (s *CircuitBreakerStore) RecordExecution(ctx context.Context, entry automation.LedgerEntry) error {
	return s.execute(ctx, func(ctx context.Context) error {
		return s.backend.RecordExecution(ctx, entry)
	})
}

func (s *CircuitBreakerStore) execute(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.cb.Execute(ctx, fn)
	if err != nil && circuitbreaker.IsOpenError(err) {
		return fmt.Errorf("circuit breaker is open for %s: %w", s.cb.Name(), err)
	}
	return err
}
