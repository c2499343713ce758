package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/internal/logger"
	"leadflow/internal/store"
	pkgerrors "leadflow/pkg/errors"
	"leadflow/pkg/health"
)

var errBoom = errors.New("boom")

type failingRules struct{}

func (failingRules) QueryRules(context.Context, automation.RuleFilter) ([]automation.Rule, error) {
	return nil, pkgerrors.NewTransientStoreError("find-automations", 4, errBoom)
}

type apiFixture struct {
	store  *store.MemoryStore
	router *gin.Engine
}

func contattatoRule() automation.Rule {
	return automation.Rule{
		ID:                "recAuto1",
		Name:              "Lead contattato",
		Active:            true,
		TriggerTable:      automation.TableActivity,
		TriggerEvent:      automation.EventCreated,
		Condition1:        &automation.Condition{Field: "Esito", Operator: automation.OpEquals, Value: "Contatto riuscito"},
		ActionType:        automation.ActionUpdateField,
		ActionTargetTable: automation.TableLead,
		ActionTargetField: "Stato",
		ActionValue:       "Contattato",
		ExecutionCount:    2,
	}
}

func newAPIFixture(t *testing.T, query automation.RuleQuery) *apiFixture {
	t.Helper()
	log := logger.NopLogger()

	mem := store.NewMemoryStore()
	mem.PutRule(contattatoRule())
	mem.PutRecord(automation.TableLead, automation.Record{ID: "recL", Fields: automation.Fields{"Stato": "Nuovo"}})
	mem.PutRecord(automation.TableActivity, automation.Record{ID: "recA", Fields: automation.Fields{
		"Esito":   "Contatto riuscito",
		"ID Lead": []any{"recL"},
	}})
	if query == nil {
		query = mem
	}

	relationships := automation.NewRelationshipTable(automation.DefaultRelationships()...)
	rules := automation.NewRuleSource(query, automation.DefaultSchemas(), log)
	dispatcher := automation.NewDispatcher(
		rules,
		automation.NewConditionEvaluator(automation.FailOpen, log),
		automation.NewActionExecutor(mem, automation.NewTargetResolver(relationships), log),
		automation.NewExecutionLedger(mem, func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }),
		log,
	)

	handler := NewHandler(dispatcher, rules, mem, relationships, log)
	router := NewRouter(context.Background(), &config.Config{}, handler, health.NewCheckerRegistry(), "automation-service", log)
	return &apiFixture{store: mem, router: router}
}

func (f *apiFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestDispatchWithInlineFields(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/dispatch", map[string]any{
		"table": "Activity",
		"event": "Record Created",
		"record": map[string]any{
			"id":     "recNew",
			"fields": map[string]any{"Esito": "Contatto riuscito", "ID Lead": []string{"recL"}},
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report automation.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Candidates)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, automation.StatusExecuted, report.Outcomes[0].Status)
	assert.Equal(t, "recL", report.Outcomes[0].TargetID)

	lead, err := f.store.Get(context.Background(), automation.TableLead, "recL")
	require.NoError(t, err)
	assert.Equal(t, "Contattato", lead.Fields["Stato"])

	rule, ok := f.store.Rule("recAuto1")
	require.True(t, ok)
	assert.Equal(t, 3, rule.ExecutionCount)
}

func TestDispatchLoadsRecordWhenFieldsOmitted(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/dispatch", map[string]any{
		"table":  "activity",
		"event":  "created",
		"record": map[string]any{"id": "recA"},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report automation.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, "recA", report.RecordID)
}

func TestDispatchUnknownStoredRecord(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/dispatch", map[string]any{
		"table":  "Activity",
		"event":  "Record Created",
		"record": map[string]any{"id": "recMissing"},
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), pkgerrors.ErrNotFound.Code)
}

func TestDispatchRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "malformed json", body: "{"},
		{name: "missing record id", body: map[string]any{"table": "Lead", "event": "created", "record": map[string]any{}}},
		{name: "unknown table", body: map[string]any{"table": "Invoice", "event": "created", "record": map[string]any{"id": "r1", "fields": map[string]any{}}}},
		{name: "unknown event", body: map[string]any{"table": "Lead", "event": "archived", "record": map[string]any{"id": "r1", "fields": map[string]any{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, nil)
			w := f.do(http.MethodPost, "/api/v1/dispatch", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), pkgerrors.ErrValidation.Code)
		})
	}
}

func TestDispatchRuleLoadFailure(t *testing.T) {
	f := newAPIFixture(t, failingRules{})

	w := f.do(http.MethodPost, "/api/v1/dispatch", map[string]any{
		"table":  "Activity",
		"event":  "Record Created",
		"record": map[string]any{"id": "recA", "fields": map[string]any{"Esito": "Contatto riuscito"}},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), pkgerrors.ErrTransientStore.Code)

	lead, err := f.store.Get(context.Background(), automation.TableLead, "recL")
	require.NoError(t, err)
	assert.Equal(t, "Nuovo", lead.Fields["Stato"])
}

func TestListAutomations(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/automations?table=Activity&event=created", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RuleListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, automation.TableActivity, resp.Table)
	assert.Equal(t, automation.EventCreated, resp.Event)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "recAuto1", resp.Rules[0].ID)

	w = f.do(http.MethodGet, "/api/v1/automations?table=Lead&event=deleted", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rules":[]`)
}

func TestListRelationships(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/relationships", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []RelationshipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, len(automation.DefaultRelationships()))
	assert.Contains(t, resp, RelationshipResponse{Source: automation.TableActivity, Target: automation.TableLead, LinkField: "ID Lead"})
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthUnhealthy(t *testing.T) {
	registry := health.NewCheckerRegistry()
	registry.Register(health.NewFuncChecker("store", func(context.Context) error { return errBoom }))

	log := logger.NopLogger()
	mem := store.NewMemoryStore()
	rels := automation.NewRelationshipTable(automation.DefaultRelationships()...)
	rules := automation.NewRuleSource(mem, nil, log)
	handler := NewHandler(nil, rules, mem, rels, log)
	router := NewRouter(context.Background(), &config.Config{}, handler, registry, "automation-service", log)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
