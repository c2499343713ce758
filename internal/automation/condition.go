package automation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"leadflow/internal/logger"
)

// MissingConditionPolicy decides the result of a condition whose field or
// operator is not configured.
type MissingConditionPolicy string

const (
	// FailOpen treats an incomplete condition as true, so a misconfigured
	// rule fires on every matching event.
	FailOpen MissingConditionPolicy = "fail_open"
	// FailClosed treats an incomplete condition as false.
	FailClosed MissingConditionPolicy = "fail_closed"
)

func ParseMissingConditionPolicy(s string) (MissingConditionPolicy, error) {
	switch MissingConditionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailOpen:
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	}
	return "", fmt.Errorf("unknown missing condition policy %q", s)
}

// ContainsSeparator splits the candidates of a contains condition.
const ContainsSeparator = "|"

type ConditionEvaluator struct {
	policy MissingConditionPolicy
	logger logger.Logger
}

func NewConditionEvaluator(policy MissingConditionPolicy, log logger.Logger) *ConditionEvaluator {
	if policy == "" {
		policy = FailOpen
	}
	return &ConditionEvaluator{policy: policy, logger: log}
}

// Evaluate combines the rule's conditions. An absent condition is
// vacuously true and Logic is consulted only when both are present. The
// second condition counts as present only when it names a field; the
// missing-condition policy applies to the first one alone.
func (e *ConditionEvaluator) Evaluate(ctx context.Context, rule Rule, record Record) bool {
	first := true
	if rule.Condition1 != nil {
		first = e.EvaluateCondition(ctx, *rule.Condition1, record)
	}
	if rule.Condition2 == nil || rule.Condition2.Field == "" {
		return first
	}

	second := e.EvaluateCondition(ctx, *rule.Condition2, record)
	if rule.EffectiveLogic() == LogicOr {
		return first || second
	}
	return first && second
}

func (e *ConditionEvaluator) EvaluateCondition(ctx context.Context, cond Condition, record Record) bool {
	if !cond.IsSet() {
		return e.policy == FailOpen
	}

	value, _ := record.Get(cond.Field)

	switch cond.Operator {
	case OpEquals:
		return value.String() == cond.Value
	case OpNotEquals:
		return value.String() != cond.Value
	case OpContains:
		return containsAny(value.String(), cond.Value)
	case OpNotContains:
		candidates := splitCandidates(cond.Value)
		return len(candidates) > 0 && !containsAny(value.String(), cond.Value)
	case OpIsEmpty:
		return value.IsEmpty()
	case OpIsNotEmpty:
		return !value.IsEmpty()
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return compareNumbers(cond.Operator, value, cond.Value)
	default:
		e.logger.WarnwCtx(ctx, "Unknown condition operator",
			"field", cond.Field,
			"operator", string(cond.Operator),
		)
		return false
	}
}

func splitCandidates(value string) []string {
	parts := strings.Split(value, ContainsSeparator)
	candidates := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			candidates = append(candidates, p)
		}
	}
	return candidates
}

func containsAny(haystack, value string) bool {
	for _, candidate := range splitCandidates(value) {
		if strings.Contains(haystack, candidate) {
			return true
		}
	}
	return false
}

func compareNumbers(op Operator, value Value, operand string) bool {
	left, ok := value.Float()
	if !ok {
		return false
	}
	right, err := strconv.ParseFloat(strings.TrimSpace(operand), 64)
	if err != nil {
		return false
	}

	switch op {
	case OpGreaterThan:
		return left > right
	case OpGreaterOrEqual:
		return left >= right
	case OpLessThan:
		return left < right
	case OpLessOrEqual:
		return left <= right
	}
	return false
}
