package automation

import (
	"fmt"
	"strings"
	"time"

	pkgerrors "leadflow/pkg/errors"
)

// DateLayout is the granularity of Rule.LastExecuted as persisted by stores.
const DateLayout = "2006-01-02"

// Table names an entity table of the CRM.
type Table string

const (
	TableLead     Table = "Lead"
	TableActivity Table = "Activity"
	TableOrder    Table = "Order"
	TableUser     Table = "User"
	TableProducts Table = "Products"
)

// Tables lists the entity tables that can trigger or receive actions.
func Tables() []Table {
	return []Table{TableLead, TableActivity, TableOrder, TableUser, TableProducts}
}

// Valid reports whether t is one of Tables().
func (t Table) Valid() bool {
	switch t {
	case TableLead, TableActivity, TableOrder, TableUser, TableProducts:
		return true
	}
	return false
}

// ParseTable matches s against the table names, ignoring case.
func ParseTable(s string) (Table, error) {
	for _, t := range Tables() {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("unknown table %q", s))
}

// Event is a record lifecycle event that can trigger rules.
type Event string

const (
	EventCreated Event = "Record Created"
	EventUpdated Event = "Record Updated"
	EventDeleted Event = "Record Deleted"
)

// Valid reports whether e is one of the three lifecycle events.
func (e Event) Valid() bool {
	switch e {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// ParseEvent accepts both the stored names ("Record Created") and the
// short forms ("created").
func ParseEvent(s string) (Event, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "record created", "created":
		return EventCreated, nil
	case "record updated", "updated":
		return EventUpdated, nil
	case "record deleted", "deleted":
		return EventDeleted, nil
	}
	return "", pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("unknown event %q", s))
}

// Operator is the comparison of a condition.
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
	OpIsEmpty        Operator = "is_empty"
	OpIsNotEmpty     Operator = "is_not_empty"
	OpGreaterThan    Operator = "greater_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessThan       Operator = "less_than"
	OpLessOrEqual    Operator = "less_or_equal"
)

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpNotContains, OpIsEmpty, OpIsNotEmpty,
		OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return true
	}
	return false
}

// Logic combines two conditions.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// ActionType is the kind of action a rule performs.
type ActionType string

const (
	ActionUpdateField      ActionType = "update_field"
	ActionCreateActivity   ActionType = "create_activity"
	ActionSendNotification ActionType = "send_notification"
)

// Valid reports whether a is a recognized action type.
func (a ActionType) Valid() bool {
	switch a {
	case ActionUpdateField, ActionCreateActivity, ActionSendNotification:
		return true
	}
	return false
}

// Condition is a single (field, operator, value) test against the
// triggering record. Operator is kept as read from the store so that an
// unknown operator can be reported instead of silently dropped.
type Condition struct {
	Field    string   `json:"field" bson:"field"`
	Operator Operator `json:"operator" bson:"operator"`
	Value    string   `json:"value,omitempty" bson:"value,omitempty"`
}

// IsSet reports whether both field and operator are configured.
func (c Condition) IsSet() bool {
	return c.Field != "" && c.Operator != ""
}

type Rule struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Active            bool       `json:"active"`
	TriggerTable      Table      `json:"trigger_table"`
	TriggerEvent      Event      `json:"trigger_event"`
	Condition1        *Condition `json:"condition1,omitempty"`
	Condition2        *Condition `json:"condition2,omitempty"`
	Logic             Logic      `json:"logic,omitempty"`
	ActionType        ActionType `json:"action_type"`
	ActionTargetTable Table      `json:"action_target_table,omitempty"`
	ActionTargetField string     `json:"action_target_field,omitempty"`
	ActionValue       string     `json:"action_value,omitempty"`
	ExecutionCount    int        `json:"execution_count"`
	LastExecuted      *time.Time `json:"last_executed,omitempty"`
}

// EffectiveLogic returns the combinator used when both conditions exist.
func (r Rule) EffectiveLogic() Logic {
	if strings.EqualFold(string(r.Logic), string(LogicOr)) {
		return LogicOr
	}
	return LogicAnd
}

// Fields is the raw field map of a record as returned by a store.
type Fields map[string]any

type Record struct {
	ID     string `json:"id"`
	Table  Table  `json:"table,omitempty"`
	Fields Fields `json:"fields"`
}

// Get returns the value of field. The second result is false when the
// field is absent or explicitly null.
func (r Record) Get(field string) (Value, bool) {
	raw, ok := r.Fields[field]
	if !ok || raw == nil {
		return Value{}, false
	}
	return Value{raw: raw}, true
}

// Links returns the record identifiers held by a link field, in order.
func (r Record) Links(field string) ([]string, bool) {
	v, ok := r.Get(field)
	if !ok {
		return nil, false
	}
	return v.Links()
}

// DispatchContext is the event handed to the dispatcher by the mutation
// pathway.
type DispatchContext struct {
	Table    Table
	Event    Event
	Record   Record
	Previous *Record
}

func (dc DispatchContext) validate() error {
	if !dc.Table.Valid() {
		return pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("unknown table %q", dc.Table))
	}
	if !dc.Event.Valid() {
		return pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("unknown event %q", dc.Event))
	}
	if dc.Record.ID == "" {
		return pkgerrors.ErrValidation.WithMessage("record id is required")
	}
	return nil
}
