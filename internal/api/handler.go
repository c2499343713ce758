package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"leadflow/internal/automation"
	"leadflow/internal/logger"
	pkgerrors "leadflow/pkg/errors"
)

// Dispatcher is the part of automation.Dispatcher the HTTP layer needs.
type Dispatcher interface {
	DispatchReport(ctx context.Context, dc automation.DispatchContext) (*automation.Report, error)
}

// RuleFinder lists the active rules of a (table, event) pair.
type RuleFinder interface {
	FindActive(ctx context.Context, table automation.Table, event automation.Event) ([]automation.Rule, error)
}

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := pkgerrors.ToHTTPStatus(err)
	response := pkgerrors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
	dispatcher    Dispatcher
	rules         RuleFinder
	records       automation.RecordStore
	relationships *automation.RelationshipTable
}

func NewHandler(dispatcher Dispatcher, rules RuleFinder, records automation.RecordStore, relationships *automation.RelationshipTable, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler:   BaseHandler{Logger: log},
		dispatcher:    dispatcher,
		rules:         rules,
		records:       records,
		relationships: relationships,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/dispatch", h.Dispatch)

		automations := v1.Group("/automations")
		{
			automations.GET("", h.ListAutomations)
		}

		v1.GET("/relationships", h.ListRelationships)
	}
}

// Dispatch godoc
// @Summary      Dispatch a record event
// @Description  Runs every active automation matching the table and event against the record
// @Tags         dispatch
// @Accept       json
// @Produce      json
// @Param        event  body      DispatchRequest  true  "Record event"
// @Success      200    {object}  automation.Report
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      502    {object}  errors.ErrorResponse
// @Router       /dispatch [post]
func (h *Handler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pkgerrors.ToErrorResponse(pkgerrors.ErrValidation.WithCause(err)))
		return
	}

	table, err := automation.ParseTable(req.Table)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	event, err := automation.ParseEvent(req.Event)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	record, err := h.loadRecord(ctx, table, req.Record)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	dc := automation.DispatchContext{Table: table, Event: event, Record: record}
	if req.PreviousRecord != nil {
		previous := automation.Record{ID: req.PreviousRecord.ID, Table: table, Fields: req.PreviousRecord.Fields}
		dc.Previous = &previous
	}

	report, err := h.dispatcher.DispatchReport(ctx, dc)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListAutomations godoc
// @Summary      List active automations
// @Description  Lists the active automations that a record event on the table would evaluate
// @Tags         automations
// @Produce      json
// @Param        table  query     string  true  "Trigger table"
// @Param        event  query     string  true  "Trigger event"
// @Success      200    {object}  RuleListResponse
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      502    {object}  errors.ErrorResponse
// @Router       /automations [get]
func (h *Handler) ListAutomations(c *gin.Context) {
	table, err := automation.ParseTable(c.Query("table"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	event, err := automation.ParseEvent(c.Query("event"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	rules, err := h.rules.FindActive(c.Request.Context(), table, event)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if rules == nil {
		rules = []automation.Rule{}
	}

	c.JSON(http.StatusOK, RuleListResponse{
		Table: table,
		Event: event,
		Count: len(rules),
		Rules: rules,
	})
}

// ListRelationships godoc
// @Summary      List table relationships
// @Description  Lists the link fields used to resolve action targets
// @Tags         automations
// @Produce      json
// @Success      200  {array}  RelationshipResponse
// @Router       /relationships [get]
func (h *Handler) ListRelationships(c *gin.Context) {
	rels := h.relationships.Relationships()
	resp := make([]RelationshipResponse, 0, len(rels))
	for _, r := range rels {
		resp = append(resp, RelationshipResponse{Source: r.Source, Target: r.Target, LinkField: r.LinkField})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) loadRecord(ctx context.Context, table automation.Table, payload RecordPayload) (automation.Record, error) {
	if payload.Fields != nil {
		return automation.Record{ID: payload.ID, Table: table, Fields: payload.Fields}, nil
	}

	record, err := h.records.Get(ctx, table, payload.ID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return automation.Record{}, pkgerrors.ErrNotFound.
				WithMessage("record "+payload.ID+" not found in "+string(table)).
				WithCause(err)
		}
		return automation.Record{}, err
	}
	record.Table = table
	return record, nil
}
