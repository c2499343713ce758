package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	AutomationDispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_dispatches_total",
			Help: "Total number of record events dispatched to the automation engine (count)",
		},
		[]string{"table", "event", "status"},
	)

	AutomationDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_dispatch_duration_ms",
			Help:    "Duration of a full dispatch in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"table", "event"},
	)

	AutomationRulesMatched = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_rules_matched",
			Help:    "Number of active rules loaded per dispatch (count)",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		},
		[]string{"table", "event"},
	)

	AutomationRuleOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_rule_outcomes_total",
			Help: "Total number of rule outcomes by status (count)",
		},
		[]string{"rule_id", "rule_name", "status"},
	)

	AutomationLedgerFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "automation_ledger_failures_total",
			Help: "Total number of execution ledger writes that failed (count)",
		},
	)

	StoreCallAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_call_attempts_total",
			Help: "Total number of record store call attempts by result (count)",
		},
		[]string{"store", "operation", "result"},
	)

	StoreCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_call_duration_ms",
			Help:    "Duration of resilient record store calls including retries in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"store", "operation"},
	)

	RuleCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_cache_requests_total",
			Help: "Total number of rule cache lookups by result (count)",
		},
		[]string{"result"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

func RegisterAutomationMetrics() {
	prometheus.MustRegister(AutomationDispatchesTotal)
	prometheus.MustRegister(AutomationDispatchDuration)
	prometheus.MustRegister(AutomationRulesMatched)
	prometheus.MustRegister(AutomationRuleOutcomesTotal)
	prometheus.MustRegister(AutomationLedgerFailuresTotal)
}

func RegisterStoreMetrics() {
	prometheus.MustRegister(StoreCallAttemptsTotal)
	prometheus.MustRegister(StoreCallDuration)
	prometheus.MustRegister(RuleCacheRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterAPIMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func IncDispatch(table, event, status string) {
	AutomationDispatchesTotal.WithLabelValues(table, event, status).Inc()
}

func ObserveDispatchDuration(table, event string, duration time.Duration) {
	AutomationDispatchDuration.WithLabelValues(table, event).Observe(float64(duration.Milliseconds()))
}

func ObserveRulesMatched(table, event string, count int) {
	AutomationRulesMatched.WithLabelValues(table, event).Observe(float64(count))
}

func IncRuleOutcome(ruleID, ruleName, status string) {
	AutomationRuleOutcomesTotal.WithLabelValues(ruleID, ruleName, status).Inc()
}

func IncLedgerFailure() {
	AutomationLedgerFailuresTotal.Inc()
}

func IncStoreCallAttempt(store, operation, result string) {
	StoreCallAttemptsTotal.WithLabelValues(store, operation, result).Inc()
}

func ObserveStoreCallDuration(store, operation string, duration time.Duration) {
	StoreCallDuration.WithLabelValues(store, operation).Observe(float64(duration.Milliseconds()))
}

func IncRuleCacheRequest(result string) {
	RuleCacheRequestsTotal.WithLabelValues(result).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}
