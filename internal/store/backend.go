package store

import (
	"strings"

	"leadflow/internal/automation"
)

// Backend is a record store holding both the automation rules and the
// entity records they act on.
type Backend interface {
	automation.RuleQuery
	automation.RecordStore
	automation.LedgerStore
	Name() string
}

// Operation labels used in logs, metrics and store errors.
const (
	OpFindAutomations  = "find-automations"
	OpUpdateAutomation = "update-automation"
)

func getLabel(table automation.Table, id string) string {
	return "get-" + lowerTable(table) + "-" + id
}

func updateLabel(table automation.Table, id string) string {
	return "update-" + lowerTable(table) + "-" + id
}

func lowerTable(table automation.Table) string {
	return strings.ToLower(string(table))
}
