package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"leadflow/internal/automation"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/metrics"
)

// CachedRuleQuery keeps the active rule list of each (table, event) pair
// in Redis. A ledger write drops the entry for the rule's trigger pair so
// the next dispatch reads fresh execution counts. Redis failures fall
// through to the backend.
type CachedRuleQuery struct {
	Backend
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRuleQuery(backend Backend, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedRuleQuery {
	if ttl <= 0 {
		ttl = constants.DefaultRuleCacheTTL
	}
	return &CachedRuleQuery{
		Backend: backend,
		client:  client,
		ttl:     ttl,
		logger:  log,
	}
}

func RuleCacheKey(table automation.Table, event automation.Event) string {
	return constants.CacheKeyPrefixRules + string(table) + ":" + string(event)
}

func (c *CachedRuleQuery) QueryRules(ctx context.Context, filter automation.RuleFilter) ([]automation.Rule, error) {
	if !filter.Active {
		return c.Backend.QueryRules(ctx, filter)
	}

	key := RuleCacheKey(filter.Table, filter.Event)
	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var rules []automation.Rule
		if jsonErr := json.Unmarshal([]byte(val), &rules); jsonErr == nil {
			metrics.IncRuleCacheRequest("hit")
			return rules, nil
		}
		c.logger.WarnwCtx(ctx, "Discarding undecodable rule cache entry", "key", key)
	case errors.Is(err, redis.Nil):
		metrics.IncRuleCacheRequest("miss")
	default:
		metrics.IncRuleCacheRequest("error")
		c.logger.WarnwCtx(ctx, "Rule cache read failed", "key", key, "error", err)
	}

	rules, err := c.Backend.QueryRules(ctx, filter)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rules)
	if err != nil {
		return rules, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnwCtx(ctx, "Rule cache write failed", "key", key, "error", err)
	}
	return rules, nil
}

func (c *CachedRuleQuery) RecordExecution(ctx context.Context, entry automation.LedgerEntry) error {
	if err := c.Backend.RecordExecution(ctx, entry); err != nil {
		return err
	}
	if entry.TriggerTable == "" || entry.TriggerEvent == "" {
		return nil
	}

	key := RuleCacheKey(entry.TriggerTable, entry.TriggerEvent)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnwCtx(ctx, "Rule cache invalidation failed", "key", key, "error", err)
	}
	return nil
}
