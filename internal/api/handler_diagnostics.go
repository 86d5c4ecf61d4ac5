package api

import (
	"github.com/labstack/echo/v4"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/report"
)

// AssemblerFactory builds a report assembler for a fleet
type AssemblerFactory func(f *fleet.Fleet) *report.Assembler

// DiagnosticsHandler handles single-stage diagnostic endpoints
type DiagnosticsHandler struct {
	registry *fleet.Registry
	assemble AssemblerFactory
}

// NewDiagnosticsHandler creates a new diagnostics handler
func NewDiagnosticsHandler(registry *fleet.Registry, assemble AssemblerFactory) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		registry: registry,
		assemble: assemble,
	}
}

// Get handles GET /api/v1/diagnostics/:stage
func (h *DiagnosticsHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	fleetName := c.QueryParam("fleet")
	if fleetName == "" {
		return ErrorBadRequest(c, "fleet query parameter is required")
	}

	f, err := h.registry.Get(fleetName)
	if err != nil {
		return ErrorNotFound(c, err.Error())
	}

	assembler := h.assemble(f)

	switch stage := c.Param("stage"); stage {
	case "spot":
		return SuccessOK(c, assembler.DiagnoseSpot(ctx))
	case "idle":
		return SuccessOK(c, assembler.DiagnoseIdle(ctx))
	case "scaling":
		return SuccessOK(c, assembler.DiagnoseScaling(ctx))
	case "costs":
		return SuccessOK(c, assembler.DiagnoseCosts(ctx))
	case "storage":
		return SuccessOK(c, assembler.DiagnoseStorage(ctx))
	default:
		return ErrorBadRequest(c, "unknown diagnostic stage: "+stage)
	}
}
