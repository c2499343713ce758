package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
)

func newAirtable(t *testing.T, handler http.HandlerFunc) *AirtableStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewAirtableStore(config.AirtableConfig{
		BaseURL:          srv.URL,
		APIKey:           "keyTest",
		BaseID:           "appBase",
		AutomationsTable: "tblAutomations",
		Tables:           map[string]string{"lead": "tblLeads"},
		Timeout:          time.Second,
	})
	require.NoError(t, err)
	return s
}

func TestRuleFormula(t *testing.T) {
	assert.Equal(t,
		"AND({IsActive} = TRUE(), {TriggerTable} = 'Activity', {TriggerEvent} = 'Record Created')",
		RuleFormula(activityCreated))
	assert.Equal(t,
		`AND(NOT({IsActive}), {TriggerTable} = 'O\'Brien', {TriggerEvent} = 'Record Updated')`,
		RuleFormula(automation.RuleFilter{Table: "O'Brien", Event: automation.EventUpdated}))
}

func TestRuleFromFieldsIgnoresSecondConditionWithoutField(t *testing.T) {
	rule := RuleFromFields("recAuto1", map[string]any{
		constants.FieldTriggerField:     "Esito",
		constants.FieldTriggerOperator:  "equals",
		constants.FieldTriggerValue:     "Contatto riuscito",
		constants.FieldTriggerOperator2: "equals",
		constants.FieldTriggerLogic:     "OR",
	})
	require.NotNil(t, rule.Condition1)
	assert.Nil(t, rule.Condition2)

	e := automation.NewConditionEvaluator(automation.FailOpen, logger.NopLogger())
	record := automation.Record{ID: "recAct1", Table: automation.TableActivity, Fields: automation.Fields{"Esito": "Non risponde"}}
	assert.False(t, e.Evaluate(context.Background(), rule, record))

	rule = RuleFromFields("recAuto2", map[string]any{
		constants.FieldTriggerField2:    "Esito",
		constants.FieldTriggerOperator2: "is_not_empty",
	})
	assert.Nil(t, rule.Condition1)
	require.NotNil(t, rule.Condition2)
	assert.Equal(t, "Esito", rule.Condition2.Field)
}

func TestAirtableQueryRulesPaginates(t *testing.T) {
	var offsets []string
	s := newAirtable(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer keyTest", r.Header.Get("Authorization"))
		assert.Equal(t, "/appBase/tblAutomations", r.URL.Path)
		assert.Equal(t, RuleFormula(activityCreated), r.URL.Query().Get("filterByFormula"))
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		offsets = append(offsets, r.URL.Query().Get("offset"))

		if r.URL.Query().Get("offset") == "" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{{
					"id": "recRule1",
					"fields": map[string]any{
						"Name":              "Lead contattato",
						"IsActive":          true,
						"TriggerTable":      "Activity",
						"TriggerEvent":      "Record Created",
						"TriggerField":      "Esito",
						"TriggerOperator":   "equals",
						"TriggerValue":      "Contatto riuscito",
						"ActionType":        "update_field",
						"ActionTargetTable": "Lead",
						"ActionTargetField": "Stato",
						"ActionValue":       "Contattato",
						"ExecutionCount":    5,
						"LastExecuted":      "2025-03-13",
					},
				}},
				"offset": "itrPage2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{{
				"id":     "recRule2",
				"fields": map[string]any{"Name": "Second", "IsActive": true, "TriggerTable": "Activity", "TriggerEvent": "Record Created"},
			}},
		})
	})

	rules, err := s.QueryRules(context.Background(), activityCreated)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, []string{"", "itrPage2"}, offsets)

	first := rules[0]
	assert.Equal(t, "recRule1", first.ID)
	assert.True(t, first.Active)
	assert.Equal(t, automation.TableActivity, first.TriggerTable)
	require.NotNil(t, first.Condition1)
	assert.Equal(t, automation.Condition{Field: "Esito", Operator: automation.OpEquals, Value: "Contatto riuscito"}, *first.Condition1)
	assert.Nil(t, first.Condition2)
	assert.Equal(t, 5, first.ExecutionCount)
	require.NotNil(t, first.LastExecuted)
	assert.Equal(t, "2025-03-13", first.LastExecuted.Format(automation.DateLayout))

	assert.Equal(t, "recRule2", rules[1].ID)
	assert.Nil(t, rules[1].Condition1)
}

func TestAirtableUpdateUsesMappedTable(t *testing.T) {
	s := newAirtable(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/appBase/tblLeads/recLead1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"Stato": "Contattato"}, body["fields"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "recLead1",
			"fields": map[string]any{"Stato": "Contattato", "Nome": "Mario"},
		})
	})

	rec, err := s.Update(context.Background(), automation.TableLead, "recLead1", automation.Fields{"Stato": "Contattato"})
	require.NoError(t, err)
	assert.Equal(t, "recLead1", rec.ID)
	assert.Equal(t, automation.TableLead, rec.Table)
	assert.Equal(t, "Mario", rec.Fields["Nome"])
}

func TestAirtableUnmappedTableUsesName(t *testing.T) {
	s := newAirtable(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appBase/Activity/recAct1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "recAct1", "fields": map[string]any{"ID Lead": []string{"recLead1"}}})
	})

	rec, err := s.Get(context.Background(), automation.TableActivity, "recAct1")
	require.NoError(t, err)
	links, ok := rec.Links("ID Lead")
	require.True(t, ok)
	assert.Equal(t, []string{"recLead1"}, links)
}

func TestAirtableRecordExecution(t *testing.T) {
	s := newAirtable(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appBase/tblAutomations/recRule1", r.URL.Path)
		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"ExecutionCount": float64(6), "LastExecuted": "2025-03-14"}, body["fields"])
		_, _ = w.Write([]byte(`{"id":"recRule1","fields":{}}`))
	})

	err := s.RecordExecution(context.Background(), automation.LedgerEntry{
		RuleID:         "recRule1",
		ExecutionCount: 6,
		LastExecuted:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestAirtableErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
		notFound  bool
		message   string
	}{
		{"throttled", http.StatusTooManyRequests, `{"error":{"type":"RATE_LIMIT_REACHED","message":"slow down"}}`, true, false, "RATE_LIMIT_REACHED: slow down"},
		{"unavailable", http.StatusServiceUnavailable, `upstream down`, true, false, "upstream down"},
		{"invalid", http.StatusUnprocessableEntity, `{"error":{"type":"INVALID_VALUE_FOR_COLUMN","message":"bad value"}}`, false, false, "INVALID_VALUE_FOR_COLUMN: bad value"},
		{"missing", http.StatusNotFound, `{"error":"NOT_FOUND"}`, false, true, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newAirtable(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := s.Get(context.Background(), automation.TableLead, "recLead1")
			require.Error(t, err)

			var statusErr *pkgerrors.StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.message, statusErr.Body)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.notFound, pkgerrors.IsNotFound(err))
		})
	}
}

func TestNewAirtableStoreRejectsUnknownTable(t *testing.T) {
	_, err := NewAirtableStore(config.AirtableConfig{Tables: map[string]string{"invoice": "tblX"}})
	assert.Error(t, err)
}
