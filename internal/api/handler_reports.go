package api

import (
	"context"
	"errors"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/tsanders-rh/costctl/internal/cache"
	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/store"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// CycleRunner runs a full optimization cycle for a fleet
type CycleRunner interface {
	RunFleet(ctx context.Context, fleet string) (*types.CostReport, error)
}

// ReportHandler handles report-related API endpoints
type ReportHandler struct {
	store    *store.Store
	cache    cache.Cache
	registry *fleet.Registry
	runner   CycleRunner
}

// NewReportHandler creates a new report handler
func NewReportHandler(s *store.Store, c cache.Cache, registry *fleet.Registry, runner CycleRunner) *ReportHandler {
	return &ReportHandler{
		store:    s,
		cache:    c,
		registry: registry,
		runner:   runner,
	}
}

// RunReportRequest is the body for POST /api/v1/reports
type RunReportRequest struct {
	Fleet string `json:"fleet" validate:"required"`
}

// Run handles POST /api/v1/reports
func (h *ReportHandler) Run(c echo.Context) error {
	ctx := c.Request().Context()

	var req RunReportRequest
	if err := c.Bind(&req); err != nil {
		return ErrorBadRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return ErrorBadRequest(c, "fleet is required")
	}

	if !h.registry.Exists(req.Fleet) {
		return ErrorNotFound(c, "fleet not found: "+req.Fleet)
	}

	report, err := h.runner.RunFleet(ctx, req.Fleet)
	if err != nil {
		// Assembly survives provider failures; an error here means the
		// report could not be persisted. Return it anyway.
		if report != nil {
			log.Printf("Report %s generated but not persisted: %v", report.ID, err)
			return SuccessCreated(c, report)
		}
		return ErrorInternal(c, "failed to run optimization cycle: "+err.Error())
	}

	return SuccessCreated(c, report)
}

// List handles GET /api/v1/reports
func (h *ReportHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	fleetName := c.QueryParam("fleet")
	if fleetName == "" {
		return ErrorBadRequest(c, "fleet query parameter is required")
	}

	pagination := ParsePaginationParams(c)

	summaries, err := h.store.Reports.List(ctx, fleetName, pagination.Offset, pagination.PerPage)
	if err != nil {
		return ErrorInternal(c, "failed to list reports: "+err.Error())
	}

	total, err := h.store.Reports.Count(ctx, fleetName)
	if err != nil {
		return ErrorInternal(c, "failed to count reports: "+err.Error())
	}

	return SuccessPaginated(c, summaries, CalculatePagination(pagination.Page, pagination.PerPage, total))
}

// Get handles GET /api/v1/reports/:id
func (h *ReportHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	report, err := h.store.Reports.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrorNotFound(c, "report not found")
		}
		return ErrorInternal(c, "failed to retrieve report: "+err.Error())
	}

	return SuccessOK(c, report)
}

// Latest handles GET /api/v1/reports/latest
func (h *ReportHandler) Latest(c echo.Context) error {
	ctx := c.Request().Context()

	fleetName := c.QueryParam("fleet")
	if fleetName == "" {
		return ErrorBadRequest(c, "fleet query parameter is required")
	}

	if h.cache != nil {
		report, found, err := h.cache.GetLatestReport(ctx, fleetName)
		if err != nil {
			log.Printf("Cache lookup failed for fleet %s: %v", fleetName, err)
		} else if found {
			return SuccessOK(c, report)
		}
	}

	report, err := h.store.Reports.Latest(ctx, fleetName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrorNotFound(c, "no reports for fleet: "+fleetName)
		}
		return ErrorInternal(c, "failed to retrieve latest report: "+err.Error())
	}

	return SuccessOK(c, report)
}
