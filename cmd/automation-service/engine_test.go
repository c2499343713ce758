package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/internal/logger"
	"leadflow/internal/store"
)

func TestBuildRelationshipsOverridesDefaults(t *testing.T) {
	rels, err := buildRelationships([]config.RelationshipConfig{
		{Source: "lead", Target: "user", LinkField: "Assegnatario"},
	}, automation.DefaultSchemas())
	require.NoError(t, err)

	field, ok := rels.LinkField(automation.TableLead, automation.TableUser)
	require.True(t, ok)
	assert.Equal(t, "Assegnatario", field)
	assert.Len(t, rels.Relationships(), len(automation.DefaultRelationships()))
}

func TestBuildRelationshipsRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		rel  config.RelationshipConfig
	}{
		{name: "unknown source", rel: config.RelationshipConfig{Source: "Invoice", Target: "Lead", LinkField: "x"}},
		{name: "unknown target", rel: config.RelationshipConfig{Source: "Lead", Target: "Invoice", LinkField: "x"}},
		{name: "field not on source", rel: config.RelationshipConfig{Source: "Activity", Target: "Lead", LinkField: "Nope"}},
		{name: "same table", rel: config.RelationshipConfig{Source: "Lead", Target: "Lead", LinkField: "Assegnatario"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRelationships([]config.RelationshipConfig{tt.rel}, automation.DefaultSchemas())
			assert.Error(t, err)
		})
	}
}

func TestNewEngineRejectsUnknownPolicy(t *testing.T) {
	cfg := &config.Config{}
	cfg.Automation.MissingConditionPolicy = "sometimes"

	_, err := newEngine(cfg, store.NewMemoryStore(), logger.NopLogger())
	assert.Error(t, err)
}

func TestEngineDispatchesAgainstMemoryStore(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.PutRule(automation.Rule{
		ID:                "recAuto1",
		Name:              "Ordine chiuso",
		Active:            true,
		TriggerTable:      automation.TableOrder,
		TriggerEvent:      automation.EventCreated,
		ActionType:        automation.ActionUpdateField,
		ActionTargetTable: automation.TableLead,
		ActionTargetField: "Stato",
		ActionValue:       "Cliente",
	})
	mem.PutRecord(automation.TableLead, automation.Record{ID: "recL", Fields: automation.Fields{"Stato": "Contattato"}})

	eng, err := newEngine(&config.Config{}, mem, logger.NopLogger())
	require.NoError(t, err)

	n, err := eng.dispatcher.DispatchCreated(context.Background(), automation.TableOrder, automation.Record{
		ID:     "recO",
		Fields: automation.Fields{"ID_Lead": []any{"recL"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lead, err := mem.Get(context.Background(), automation.TableLead, "recL")
	require.NoError(t, err)
	assert.Equal(t, "Cliente", lead.Fields["Stato"])
}

func TestDispatchContextFromFlags(t *testing.T) {
	dir := t.TempDir()
	recordFile := filepath.Join(dir, "record.json")
	previousFile := filepath.Join(dir, "previous.json")
	require.NoError(t, os.WriteFile(recordFile, []byte(`{"id":"recL","fields":{"Stato":"Contattato"}}`), 0o600))
	require.NoError(t, os.WriteFile(previousFile, []byte(`{"id":"recL","fields":{"Stato":"Nuovo"}}`), 0o600))

	dc, err := dispatchContextFromFlags("lead", "updated", recordFile, previousFile)
	require.NoError(t, err)
	assert.Equal(t, automation.TableLead, dc.Table)
	assert.Equal(t, automation.EventUpdated, dc.Event)
	assert.Equal(t, "recL", dc.Record.ID)
	assert.Equal(t, automation.TableLead, dc.Record.Table)
	require.NotNil(t, dc.Previous)
	assert.Equal(t, "Nuovo", dc.Previous.Fields["Stato"])
}

func TestDispatchContextFromFlagsErrors(t *testing.T) {
	dir := t.TempDir()
	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`{"fields":{}}`), 0o600))

	_, err := dispatchContextFromFlags("Invoice", "created", noID, "")
	assert.Error(t, err)

	_, err = dispatchContextFromFlags("Lead", "created", filepath.Join(dir, "missing.json"), "")
	assert.Error(t, err)

	_, err = dispatchContextFromFlags("Lead", "created", noID, "")
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, &automation.Report{DispatchID: "d1", Succeeded: 2}))
	assert.Contains(t, buf.String(), `"dispatch_id": "d1"`)
	assert.Contains(t, buf.String(), `"succeeded": 2`)
}
