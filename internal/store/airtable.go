package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/internal/constants"
	pkgerrors "leadflow/pkg/errors"
)

// AirtableStore talks to the Airtable REST API. The automations table
// holds the rules, one Airtable table per entity holds the records.
type AirtableStore struct {
	client           *http.Client
	baseURL          string
	baseID           string
	apiKey           string
	automationsTable string
	tables           map[automation.Table]string
}

func NewAirtableStore(cfg config.AirtableConfig) (*AirtableStore, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = constants.DefaultAirtableBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	tables := make(map[automation.Table]string, len(cfg.Tables))
	for name, tableID := range cfg.Tables {
		table, err := automation.ParseTable(name)
		if err != nil {
			return nil, fmt.Errorf("airtable table mapping: %w", err)
		}
		tables[table] = tableID
	}

	return &AirtableStore{
		client:           &http.Client{Timeout: timeout},
		baseURL:          strings.TrimRight(baseURL, "/"),
		baseID:           cfg.BaseID,
		apiKey:           cfg.APIKey,
		automationsTable: cfg.AutomationsTable,
		tables:           tables,
	}, nil
}

func (s *AirtableStore) Name() string {
	return constants.StoreTypeAirtable
}

type airtableRecord struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`
}

type airtableList struct {
	Records []airtableRecord `json:"records"`
	Offset  string           `json:"offset,omitempty"`
}

type airtableError struct {
	Error json.RawMessage `json:"error"`
}

type airtableErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RuleFormula renders filter as an Airtable filterByFormula expression.
func RuleFormula(filter automation.RuleFilter) string {
	active := "{" + constants.FieldIsActive + "} = TRUE()"
	if !filter.Active {
		active = "NOT({" + constants.FieldIsActive + "})"
	}
	return fmt.Sprintf("AND(%s, {%s} = '%s', {%s} = '%s')",
		active,
		constants.FieldTriggerTable, formulaString(string(filter.Table)),
		constants.FieldTriggerEvent, formulaString(string(filter.Event)),
	)
}

func formulaString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func (s *AirtableStore) QueryRules(ctx context.Context, filter automation.RuleFilter) ([]automation.Rule, error) {
	params := url.Values{}
	params.Set("filterByFormula", RuleFormula(filter))
	params.Set("pageSize", strconv.Itoa(constants.AirtablePageSize))

	var rules []automation.Rule
	for {
		var page airtableList
		if err := s.do(ctx, http.MethodGet, s.tableURL(s.automationsTable, "")+"?"+params.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			rules = append(rules, RuleFromFields(rec.ID, rec.Fields))
		}
		if page.Offset == "" {
			return rules, nil
		}
		params.Set("offset", page.Offset)
	}
}

func (s *AirtableStore) Get(ctx context.Context, table automation.Table, id string) (automation.Record, error) {
	var rec airtableRecord
	if err := s.do(ctx, http.MethodGet, s.tableURL(s.tableID(table), id), nil, &rec); err != nil {
		return automation.Record{}, err
	}
	return automation.Record{ID: rec.ID, Table: table, Fields: rec.Fields}, nil
}

func (s *AirtableStore) Update(ctx context.Context, table automation.Table, id string, fields automation.Fields) (automation.Record, error) {
	body := map[string]any{"fields": fields}
	var rec airtableRecord
	if err := s.do(ctx, http.MethodPatch, s.tableURL(s.tableID(table), id), body, &rec); err != nil {
		return automation.Record{}, err
	}
	return automation.Record{ID: rec.ID, Table: table, Fields: rec.Fields}, nil
}

func (s *AirtableStore) RecordExecution(ctx context.Context, entry automation.LedgerEntry) error {
	body := map[string]any{
		"fields": map[string]any{
			constants.FieldExecutionCount: entry.ExecutionCount,
			constants.FieldLastExecuted:   entry.LastExecuted.Format(automation.DateLayout),
		},
	}
	return s.do(ctx, http.MethodPatch, s.tableURL(s.automationsTable, entry.RuleID), body, nil)
}

// tableID falls back to the table name, which Airtable accepts in URLs.
func (s *AirtableStore) tableID(table automation.Table) string {
	if id, ok := s.tables[table]; ok && id != "" {
		return id
	}
	return string(table)
}

func (s *AirtableStore) tableURL(table, recordID string) string {
	u := s.baseURL + "/" + url.PathEscape(s.baseID) + "/" + url.PathEscape(table)
	if recordID != "" {
		u += "/" + url.PathEscape(recordID)
	}
	return u
}

func (s *AirtableStore) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("airtable request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	statusErr := &pkgerrors.StatusError{StatusCode: resp.StatusCode, Body: airtableMessage(raw)}
	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.ErrNotFound.WithCause(statusErr)
	}
	return statusErr
}

// airtableMessage extracts "TYPE: message" from an Airtable error body.
// The error member is either an object or a bare string.
func airtableMessage(raw []byte) string {
	var envelope airtableError
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Error) == 0 {
		return strings.TrimSpace(string(raw))
	}

	var detail airtableErrorDetail
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		if detail.Message == "" {
			return detail.Type
		}
		return detail.Type + ": " + detail.Message
	}

	var code string
	if err := json.Unmarshal(envelope.Error, &code); err == nil {
		return code
	}
	return strings.TrimSpace(string(raw))
}

// RuleFromFields decodes a row of the automations table.
func RuleFromFields(id string, fields map[string]any) automation.Rule {
	rule := automation.Rule{
		ID:                id,
		Name:              stringField(fields, constants.FieldName),
		Active:            boolField(fields, constants.FieldIsActive),
		TriggerTable:      automation.Table(stringField(fields, constants.FieldTriggerTable)),
		TriggerEvent:      automation.Event(stringField(fields, constants.FieldTriggerEvent)),
		Condition1:        conditionFrom(stringField(fields, constants.FieldTriggerField), stringField(fields, constants.FieldTriggerOperator), stringField(fields, constants.FieldTriggerValue)),
		Condition2:        secondConditionFrom(stringField(fields, constants.FieldTriggerField2), stringField(fields, constants.FieldTriggerOperator2), stringField(fields, constants.FieldTriggerValue2)),
		Logic:             automation.Logic(stringField(fields, constants.FieldTriggerLogic)),
		ActionType:        automation.ActionType(stringField(fields, constants.FieldActionType)),
		ActionTargetTable: automation.Table(stringField(fields, constants.FieldActionTargetTable)),
		ActionTargetField: stringField(fields, constants.FieldActionTargetField),
		ActionValue:       stringField(fields, constants.FieldActionValue),
		ExecutionCount:    intField(fields, constants.FieldExecutionCount),
	}
	if last := stringField(fields, constants.FieldLastExecuted); last != "" {
		if t, err := time.Parse(automation.DateLayout, last); err == nil {
			rule.LastExecuted = &t
		}
	}
	return rule
}

// secondConditionFrom returns nil unless the second condition names a
// field. Leftover operator or value columns alone do not make it present.
func secondConditionFrom(field, operator, value string) *automation.Condition {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	return conditionFrom(field, operator, value)
}

// conditionFrom returns nil when none of the three parts is configured.
func conditionFrom(field, operator, value string) *automation.Condition {
	if field == "" && operator == "" && value == "" {
		return nil
	}
	return &automation.Condition{
		Field:    field,
		Operator: automation.Operator(operator),
		Value:    value,
	}
}

func stringField(fields map[string]any, name string) string {
	v, ok := fields[name]
	if !ok || v == nil {
		return ""
	}
	return automation.NewValue(v).String()
}

func boolField(fields map[string]any, name string) bool {
	switch v := fields[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func intField(fields map[string]any, name string) int {
	f, ok := automation.NewValue(fields[name]).Float()
	if !ok {
		return 0
	}
	return int(f)
}
