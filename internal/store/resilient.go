package store

import (
	"context"
	"errors"
	"time"

	"leadflow/internal/automation"
	"leadflow/internal/logger"
	"leadflow/pkg/circuitbreaker"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/metrics"
	"leadflow/pkg/retry"
)

// Resilient retries store calls that fail with a retryable error and maps
// the final failure onto the store error taxonomy: TransientStoreError
// after exhaustion, PermanentStoreError for anything else.
type Resilient struct {
	backend     Backend
	policy      retry.Policy
	classify    retry.Classifier
	callTimeout time.Duration
	logger      logger.Logger
}

type ResilientOption func(*Resilient)

// WithCallTimeout bounds every single attempt.
func WithCallTimeout(d time.Duration) ResilientOption {
	return func(r *Resilient) {
		r.callTimeout = d
	}
}

func WithClassifier(classify retry.Classifier) ResilientOption {
	return func(r *Resilient) {
		r.classify = classify
	}
}

func NewResilient(backend Backend, policy retry.Policy, log logger.Logger, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		backend:  backend,
		policy:   policy,
		classify: IsRetryable,
		logger:   log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resilient) Name() string {
	return r.backend.Name()
}

// Call runs an arbitrary store operation under the retry policy and error
// mapping used by the capability methods below.
func (r *Resilient) Call(ctx context.Context, label string, op func(ctx context.Context) error) error {
	return r.do(ctx, label, "call", op)
}

func (r *Resilient) QueryRules(ctx context.Context, filter automation.RuleFilter) ([]automation.Rule, error) {
	var rules []automation.Rule
	err := r.do(ctx, OpFindAutomations, "query_rules", func(ctx context.Context) error {
		var err error
		rules, err = r.backend.QueryRules(ctx, filter)
		return err
	})
	return rules, err
}

func (r *Resilient) Get(ctx context.Context, table automation.Table, id string) (automation.Record, error) {
	var record automation.Record
	err := r.do(ctx, getLabel(table, id), "get_record", func(ctx context.Context) error {
		var err error
		record, err = r.backend.Get(ctx, table, id)
		return err
	})
	return record, err
}

func (r *Resilient) Update(ctx context.Context, table automation.Table, id string, fields automation.Fields) (automation.Record, error) {
	var record automation.Record
	err := r.do(ctx, updateLabel(table, id), "update_record", func(ctx context.Context) error {
		var err error
		record, err = r.backend.Update(ctx, table, id, fields)
		return err
	})
	return record, err
}

func (r *Resilient) RecordExecution(ctx context.Context, entry automation.LedgerEntry) error {
	return r.do(ctx, OpUpdateAutomation+"-"+entry.RuleID, "record_execution", func(ctx context.Context) error {
		return r.backend.RecordExecution(ctx, entry)
	})
}

// do runs fn under the retry policy. label names the call in logs and
// errors; kind is the low-cardinality metric label.
func (r *Resilient) do(ctx context.Context, label, kind string, fn func(ctx context.Context) error) error {
	start := time.Now()
	store := r.backend.Name()

	attempt := func(ctx context.Context) error {
		if r.callTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
			defer cancel()
		}

		err := fn(ctx)
		switch {
		case err == nil:
			metrics.IncStoreCallAttempt(store, kind, "success")
		case r.retryable(err):
			metrics.IncStoreCallAttempt(store, kind, "retryable")
		default:
			metrics.IncStoreCallAttempt(store, kind, "permanent")
		}
		return err
	}

	onRetry := func(a retry.Attempt) {
		r.logger.WarnwCtx(ctx, "Store call failed, retrying",
			"operation", label,
			"attempt", a.Number,
			"max_attempts", r.policy.MaxRetries+1,
			"next_delay", a.NextDelay.String(),
			"error", a.Err,
		)
	}

	err := retry.Do(ctx, r.policy, r.retryable, attempt, onRetry)
	metrics.ObserveStoreCallDuration(store, kind, time.Since(start))
	if err == nil {
		return nil
	}

	var exhausted *retry.ExhaustedError
	var permanent *retry.PermanentError
	switch {
	case errors.As(err, &exhausted):
		r.logger.ErrorwCtx(ctx, "Store call failed after all retries",
			"operation", label,
			"attempts", exhausted.Attempts,
			"error", exhausted.Err,
		)
		return pkgerrors.NewTransientStoreError(label, exhausted.Attempts, exhausted.Err)
	case errors.As(err, &permanent):
		if circuitbreaker.IsOpenError(permanent.Err) {
			r.logger.WarnwCtx(ctx, "Store circuit breaker is open",
				"operation", label,
				"error", permanent.Err,
			)
			return pkgerrors.NewTransientStoreError(label, permanent.Attempts, permanent.Err)
		}
		r.logger.ErrorwCtx(ctx, "Store call failed",
			"operation", label,
			"attempt", permanent.Attempts,
			"error", permanent.Err,
		)
		if pkgerrors.IsPermanentStore(permanent.Err) {
			return permanent.Err
		}
		return pkgerrors.NewPermanentStoreError(label, permanent.Err)
	default:
		return pkgerrors.NewTransientStoreError(label, 1, err)
	}
}

// retryable keeps an open breaker out of the retry loop; it is reported
// as transient without waiting.
func (r *Resilient) retryable(err error) bool {
	if circuitbreaker.IsOpenError(err) {
		return false
	}
	return r.classify(err)
}
