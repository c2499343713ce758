package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
)

func newTestExecutor(records RecordStore) *ActionExecutor {
	resolver := NewTargetResolver(NewRelationshipTable(DefaultRelationships()...))
	return NewActionExecutor(records, resolver, logger.NopLogger())
}

func updateLeadRule() Rule {
	return Rule{
		ID:                "recRule1",
		Name:              "AUTO_CONTATTATO",
		ActionType:        ActionUpdateField,
		ActionTargetTable: TableLead,
		ActionTargetField: "Stato",
		ActionValue:       "Contattato",
	}
}

func activityCreated(fields Fields) DispatchContext {
	return DispatchContext{Table: TableActivity, Event: EventCreated, Record: activity(fields)}
}

func TestExecuteUpdateField(t *testing.T) {
	records := newFakeRecords()
	records.put(TableLead, "recL", Fields{"Stato": "Nuovo"})
	exec := newTestExecutor(records)

	outcome := exec.Execute(context.Background(), updateLeadRule(), activityCreated(Fields{"ID Lead": []any{"recL"}}))

	require.Equal(t, StatusExecuted, outcome.Status)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, TableLead, outcome.Target.Table)
	assert.Equal(t, "recL", outcome.Target.ID)
	assert.Equal(t, "Contattato", records.field(TableLead, "recL", "Stato"))
}

func TestExecuteMissingParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rule)
	}{
		{"no target table", func(r *Rule) { r.ActionTargetTable = "" }},
		{"unknown target table", func(r *Rule) { r.ActionTargetTable = "Notes" }},
		{"no target field", func(r *Rule) { r.ActionTargetField = "" }},
		{"no value", func(r *Rule) { r.ActionValue = "" }},
		{"unknown action type", func(r *Rule) { r.ActionType = "archive_record" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := newFakeRecords()
			rule := updateLeadRule()
			tt.mutate(&rule)

			outcome := newTestExecutor(records).Execute(context.Background(), rule, activityCreated(Fields{"ID Lead": []any{"recL"}}))

			assert.Equal(t, StatusFailed, outcome.Status)
			assert.True(t, pkgerrors.IsConfiguration(outcome.Err))
			assert.Empty(t, records.updates)
		})
	}
}

func TestExecuteUnsupportedActions(t *testing.T) {
	for _, actionType := range []ActionType{ActionCreateActivity, ActionSendNotification} {
		t.Run(string(actionType), func(t *testing.T) {
			records := newFakeRecords()
			rule := updateLeadRule()
			rule.ActionType = actionType

			outcome := newTestExecutor(records).Execute(context.Background(), rule, activityCreated(Fields{"ID Lead": []any{"recL"}}))

			assert.Equal(t, StatusFailed, outcome.Status)
			assert.True(t, pkgerrors.IsUnsupportedAction(outcome.Err))
			assert.Empty(t, records.updates)
		})
	}
}

func TestExecuteSkipsUnresolvableTarget(t *testing.T) {
	records := newFakeRecords()
	exec := newTestExecutor(records)

	outcome := exec.Execute(context.Background(), updateLeadRule(), activityCreated(Fields{"ID Lead": []any{}}))
	assert.Equal(t, StatusSkipped, outcome.Status)
	var failure *ResolutionFailure
	require.ErrorAs(t, outcome.Err, &failure)
	assert.Equal(t, ReasonMissingLink, failure.Reason)

	rule := updateLeadRule()
	rule.ActionTargetTable = TableProducts
	outcome = exec.Execute(context.Background(), rule, activityCreated(Fields{}))
	assert.Equal(t, StatusSkipped, outcome.Status)
	require.ErrorAs(t, outcome.Err, &failure)
	assert.Equal(t, ReasonUnsupportedRelationship, failure.Reason)

	assert.Empty(t, records.updates)
}

func TestExecuteStoreFailure(t *testing.T) {
	records := newFakeRecords()
	records.put(TableLead, "recL", Fields{"Stato": "Nuovo"})
	records.updateErr[recordKey{TableLead, "recL"}] = pkgerrors.NewTransientStoreError("update-leads-recL", 4, errStoreDown)

	outcome := newTestExecutor(records).Execute(context.Background(), updateLeadRule(), activityCreated(Fields{"ID Lead": []any{"recL"}}))

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.True(t, pkgerrors.IsTransientStore(outcome.Err))
	assert.Equal(t, "recL", outcome.Target.ID)
	assert.Equal(t, "Nuovo", records.field(TableLead, "recL", "Stato"))
}
