package config

import (
	"errors"
	"fmt"
	"strings"

	"leadflow/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errs []error

	validators := []func(*Config) error{
		func(c *Config) error { return validateServer(c.Server) },
		func(c *Config) error { return validateStore(c.Store, c.Database) },
		func(c *Config) error { return validateDatabase(c.Database) },
		func(c *Config) error { return validateRetry(c.Retry) },
		func(c *Config) error { return validateCircuitBreaker(c.CircuitBreaker) },
		func(c *Config) error { return validateAutomation(c.Automation, c.Database) },
		func(c *Config) error { return validateBroker(c.Broker) },
	}
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateStore(cfg StoreConfig, db DatabaseConfig) error {
	if cfg.CallTimeout < 0 {
		return &ValidationError{
			Field:   "store.call_timeout",
			Message: "call timeout must be non-negative",
		}
	}

	switch cfg.Type {
	case constants.StoreTypeMemory:
		return nil
	case constants.StoreTypeAirtable:
		return validateAirtable(cfg.Airtable)
	case constants.StoreTypeMongoDB:
		if db.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "database.mongodb.uri",
				Message: "MongoDB URI is required when store.type is mongodb",
			}
		}
		return nil
	case constants.StoreTypePostgres:
		if db.Postgres.Host == "" {
			return &ValidationError{
				Field:   "database.postgres.host",
				Message: "PostgreSQL host is required when store.type is postgres",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "store.type",
			Message: fmt.Sprintf("unknown store type: %s (supported: memory, airtable, mongodb, postgres)", cfg.Type),
		}
	}
}

func validateAirtable(cfg AirtableConfig) error {
	if cfg.APIKey == "" {
		return &ValidationError{
			Field:   "store.airtable.api_key",
			Message: "Airtable API key is required",
		}
	}

	if cfg.BaseID == "" {
		return &ValidationError{
			Field:   "store.airtable.base_id",
			Message: "Airtable base ID is required",
		}
	}

	if cfg.AutomationsTable == "" {
		return &ValidationError{
			Field:   "store.airtable.automations_table",
			Message: "Airtable automations table is required",
		}
	}

	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "store.airtable.timeout",
			Message: "timeout must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validateRetry(cfg RetryConfig) error {
	if cfg.MaxRetries < 0 {
		return &ValidationError{
			Field:   "retry.max_retries",
			Message: "max_retries must be non-negative",
		}
	}

	if cfg.InitialInterval <= 0 {
		return &ValidationError{
			Field:   "retry.initial_interval",
			Message: "initial_interval must be positive",
		}
	}

	if cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   "retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier < 1 {
		return &ValidationError{
			Field:   "retry.multiplier",
			Message: "multiplier must be at least 1",
		}
	}

	return nil
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_ratio",
			Message: "failure_ratio must be in (0, 1]",
		}
	}

	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "circuit_breaker.timeout",
			Message: "timeout must be positive",
		}
	}

	return nil
}

func validateAutomation(cfg AutomationConfig, db DatabaseConfig) error {
	switch strings.ToLower(cfg.MissingConditionPolicy) {
	case "", "fail_open", "fail_closed":
	default:
		return &ValidationError{
			Field:   "automation.missing_condition_policy",
			Message: fmt.Sprintf("invalid policy: %s (valid: fail_open, fail_closed)", cfg.MissingConditionPolicy),
		}
	}

	for i, rel := range cfg.Relationships {
		if rel.Source == "" || rel.Target == "" || rel.LinkField == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("automation.relationships[%d]", i),
				Message: "source, target and link_field are required",
			}
		}
	}

	if cfg.RuleCache.Enabled {
		if db.Redis.Host == "" {
			return &ValidationError{
				Field:   "database.redis.host",
				Message: "Redis is required when automation.rule_cache is enabled",
			}
		}
		if cfg.RuleCache.TTL <= 0 {
			return &ValidationError{
				Field:   "automation.rule_cache.ttl",
				Message: "ttl must be positive",
			}
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return nil
	case "kafka":
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Kafka.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Kafka.OutcomeTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.outcome_topic",
			Message: "outcome topic is required",
		}
	}

	return nil
}
