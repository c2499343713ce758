package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout      = 10 * time.Second
	DefaultStoreCallTimeout = 15 * time.Second
	DefaultAirtableBaseURL  = "https://api.airtable.com/v0"
	AirtablePageSize        = 100
)

const (
	CacheKeyPrefixRules = "automation:rules:"
	DefaultRuleCacheTTL = 5 * time.Minute
)

const (
	DefaultOutcomeTopic = "automation_outcomes"
)

const (
	DefaultMongoDBName           = "leadflow"
	MongoRulesCollection         = "automation_rules"
	MongoRecordsCollectionSuffix = "_records"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	StoreTypeMemory   = "memory"
	StoreTypeAirtable = "airtable"
	StoreTypeMongoDB  = "mongodb"
	StoreTypePostgres = "postgres"
)

// Airtable field names of the automations table.
const (
	FieldName              = "Name"
	FieldIsActive          = "IsActive"
	FieldTriggerTable      = "TriggerTable"
	FieldTriggerEvent      = "TriggerEvent"
	FieldTriggerField      = "TriggerField"
	FieldTriggerOperator   = "TriggerOperator"
	FieldTriggerValue      = "TriggerValue"
	FieldTriggerField2     = "TriggerField2"
	FieldTriggerOperator2  = "TriggerOperator2"
	FieldTriggerValue2     = "TriggerValue2"
	FieldTriggerLogic      = "TriggerLogic"
	FieldActionType        = "ActionType"
	FieldActionTargetTable = "ActionTargetTable"
	FieldActionTargetField = "ActionTargetField"
	FieldActionValue       = "ActionValue"
	FieldExecutionCount    = "ExecutionCount"
	FieldLastExecuted      = "LastExecuted"
)
