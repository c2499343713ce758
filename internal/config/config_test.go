package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.InitialInterval)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxInterval)
	assert.Equal(t, 2.0, cfg.Retry.Multiplier)
	assert.Equal(t, "fail_open", cfg.Automation.MissingConditionPolicy)
	assert.Equal(t, "https://api.airtable.com/v0", cfg.Store.Airtable.BaseURL)
}

func TestLoadAirtableConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
store:
  type: airtable
  call_timeout: 5s
  airtable:
    base_id: appXYZ
    automations_table: tblAuto
    tables:
      Lead: tblLeads
      Activity: tblActs
automation:
  missing_condition_policy: fail_closed
  relationships:
    - source: Activity
      target: Lead
      link_field: Lead Collegato
retry:
  max_retries: 5
  initial_interval: 200ms
  max_interval: 2s
  multiplier: 3
`)
	t.Setenv("STORE_AIRTABLE_API_KEY", "key123")
	t.Setenv("STORE_AIRTABLE_TABLES_ORDER", "tblOrders")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "key123", cfg.Store.Airtable.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Store.CallTimeout)
	assert.Equal(t, map[string]string{"lead": "tblLeads", "activity": "tblActs", "order": "tblOrders"}, cfg.Store.Airtable.Tables)
	assert.Equal(t, "fail_closed", cfg.Automation.MissingConditionPolicy)
	require.Len(t, cfg.Automation.Relationships, 1)
	assert.Equal(t, "Lead Collegato", cfg.Automation.Relationships[0].LinkField)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry.InitialInterval)
}

func TestLoadKafkaBrokersFromEnv(t *testing.T) {
	t.Setenv("BROKER_TYPE", "kafka")
	t.Setenv("BROKER_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, "automation_outcomes", cfg.Broker.Kafka.OutcomeTopic)
}

func TestValidateStatic(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name  string
		patch func(*Config)
		field string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown store", func(c *Config) { c.Store.Type = "sqlite" }, "store.type"},
		{"airtable without key", func(c *Config) { c.Store.Type = "airtable" }, "store.airtable.api_key"},
		{"mongodb without uri", func(c *Config) { c.Store.Type = "mongodb" }, "database.mongodb.uri"},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, "retry.max_retries"},
		{"max below initial", func(c *Config) { c.Retry.MaxInterval = time.Millisecond }, "retry.max_interval"},
		{"bad policy", func(c *Config) { c.Automation.MissingConditionPolicy = "maybe" }, "automation.missing_condition_policy"},
		{"incomplete relationship", func(c *Config) {
			c.Automation.Relationships = []RelationshipConfig{{Source: "Order"}}
		}, "automation.relationships[0]"},
		{"cache without redis", func(c *Config) { c.Automation.RuleCache.Enabled = true }, "database.redis.host"},
		{"kafka without brokers", func(c *Config) { c.Broker.Type = "kafka" }, "broker.kafka.brokers"},
		{"breaker ratio", func(c *Config) {
			c.CircuitBreaker.Enabled = true
			c.CircuitBreaker.FailureRatio = 2
		}, "circuit_breaker.failure_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.patch(cfg)

			err := ValidateStatic(cfg)
			require.Error(t, err)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
