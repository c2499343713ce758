package api

import (
	"leadflow/internal/automation"
)

type RecordPayload struct {
	ID     string            `json:"id" binding:"required"`
	Fields automation.Fields `json:"fields,omitempty"`
}

// DispatchRequest describes a record event raised by the mutation pathway.
// When Record.Fields is omitted the record is read from the store.
type DispatchRequest struct {
	Table          string         `json:"table" binding:"required"`
	Event          string         `json:"event" binding:"required"`
	Record         RecordPayload  `json:"record"`
	PreviousRecord *RecordPayload `json:"previous_record,omitempty"`
}

type RelationshipResponse struct {
	Source    automation.Table `json:"source"`
	Target    automation.Table `json:"target"`
	LinkField string           `json:"link_field"`
}

type RuleListResponse struct {
	Table automation.Table  `json:"table"`
	Event automation.Event  `json:"event"`
	Count int               `json:"count"`
	Rules []automation.Rule `json:"rules"`
}
