package store

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/retry"
)

// Connections carries the clients opened at startup. Only the ones the
// configured store type needs must be set.
type Connections struct {
	Postgres *sql.DB
	Mongo    *mongo.Client
	Redis    *redis.Client
}

// New builds the configured backend and wraps it, innermost first, in the
// circuit breaker, the retrying client and the rule cache.
func New(cfg *config.Config, conns Connections, log logger.Logger) (Backend, error) {
	base, err := newBase(cfg, conns)
	if err != nil {
		return nil, err
	}

	policy := PolicyFromConfig(cfg.Retry)
	var backend Backend = NewCircuitBreakerStore(base, cfg.CircuitBreaker)
	backend = NewResilient(backend, policy, log, WithCallTimeout(cfg.Store.CallTimeout))

	if cfg.Automation.RuleCache.Enabled {
		if conns.Redis == nil {
			return nil, fmt.Errorf("rule cache enabled but no Redis client available")
		}
		backend = NewCachedRuleQuery(backend, conns.Redis, cfg.Automation.RuleCache.TTL, log)
	}

	log.Infow("Record store ready",
		"store", base.Name(),
		"max_retries", policy.MaxRetries,
		"retry_budget", policy.Budget().String(),
		"circuit_breaker", cfg.CircuitBreaker.Enabled,
		"rule_cache", cfg.Automation.RuleCache.Enabled,
	)
	return backend, nil
}

func newBase(cfg *config.Config, conns Connections) (Backend, error) {
	switch cfg.Store.Type {
	case constants.StoreTypeMemory, "":
		mem := NewMemoryStore()
		if cfg.Store.Memory.FixturesFile != "" {
			if err := mem.LoadFixtures(cfg.Store.Memory.FixturesFile); err != nil {
				return nil, err
			}
		}
		return mem, nil
	case constants.StoreTypeAirtable:
		return NewAirtableStore(cfg.Store.Airtable)
	case constants.StoreTypeMongoDB:
		if conns.Mongo == nil {
			return nil, fmt.Errorf("mongodb store selected but no MongoDB client available")
		}
		return NewMongoStore(conns.Mongo.Database(cfg.Database.MongoDB.Database)), nil
	case constants.StoreTypePostgres:
		if conns.Postgres == nil {
			return nil, fmt.Errorf("postgres store selected but no PostgreSQL connection available")
		}
		return NewPostgresStore(conns.Postgres), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store.Type)
	}
}

func PolicyFromConfig(cfg config.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.MaxRetries >= 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier >= 1 {
		policy.Multiplier = cfg.Multiplier
	}
	return policy
}
