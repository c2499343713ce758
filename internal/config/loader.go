package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"leadflow/internal/constants"
)

// LoadConfig reads configFile (optional) and the environment. Keys map to
// variables by upper-casing and replacing "." with "_", e.g.
// STORE_AIRTABLE_API_KEY.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "60s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("store.type", constants.StoreTypeMemory)
	viper.SetDefault("store.call_timeout", constants.DefaultStoreCallTimeout)
	viper.SetDefault("store.airtable.base_url", constants.DefaultAirtableBaseURL)
	viper.SetDefault("store.airtable.timeout", constants.DefaultHTTPTimeout)

	viper.SetDefault("retry.max_retries", 3)
	viper.SetDefault("retry.initial_interval", "1s")
	viper.SetDefault("retry.max_interval", "10s")
	viper.SetDefault("retry.multiplier", 2.0)

	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", "60s")
	viper.SetDefault("circuit_breaker.timeout", "30s")
	viper.SetDefault("circuit_breaker.failure_ratio", 0.5)
	viper.SetDefault("circuit_breaker.min_requests", 5)

	viper.SetDefault("automation.missing_condition_policy", "fail_open")
	viper.SetDefault("automation.rule_cache.ttl", constants.DefaultRuleCacheTTL)

	viper.SetDefault("broker.kafka.outcome_topic", constants.DefaultOutcomeTopic)

	viper.SetDefault("api.rate_limit.rps", 20)
	viper.SetDefault("api.rate_limit.burst", 40)
	viper.SetDefault("api.rate_limit.cleanup_interval", 60)
	viper.SetDefault("api.rate_limit.max_age", 300)

	viper.SetDefault("database.mongodb.database", constants.DefaultMongoDBName)
	viper.SetDefault("database.migrations_dir", "migrations/postgres")
}

func bindEnvVariables() {
	viper.BindEnv("store.type", "STORE_TYPE")
	viper.BindEnv("store.airtable.api_key", "STORE_AIRTABLE_API_KEY", "AIRTABLE_API_KEY")
	viper.BindEnv("store.airtable.base_id", "STORE_AIRTABLE_BASE_ID", "AIRTABLE_BASE_ID")
	viper.BindEnv("store.airtable.automations_table", "STORE_AIRTABLE_AUTOMATIONS_TABLE", "AIRTABLE_AUTOMATIONS_TABLE_ID")
	viper.BindEnv("store.memory.fixtures_file", "STORE_MEMORY_FIXTURES_FILE")

	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.outcome_topic", "BROKER_KAFKA_OUTCOME_TOPIC")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

// applyEnvOverrides handles values viper cannot split on its own.
func applyEnvOverrides(cfg *Config) {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if cfg.Store.Airtable.Tables == nil {
		cfg.Store.Airtable.Tables = make(map[string]string)
	}
	// viper lower-cases map keys read from the file, so env overrides do too.
	for _, table := range []string{"lead", "activity", "order", "user", "products"} {
		key := "STORE_AIRTABLE_TABLES_" + strings.ToUpper(table)
		if id := viper.GetString(key); id != "" {
			cfg.Store.Airtable.Tables[table] = id
		}
	}
}
