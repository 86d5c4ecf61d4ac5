package api

import (
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/tsanders-rh/costctl/internal/fleet"
)

// FleetHandler exposes the configured fleet profiles
type FleetHandler struct {
	registry *fleet.Registry
}

// NewFleetHandler creates a new fleet handler
func NewFleetHandler(registry *fleet.Registry) *FleetHandler {
	return &FleetHandler{
		registry: registry,
	}
}

// FleetSummary is the listing view of a fleet profile
type FleetSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Region      string `json:"region"`
	GroupName   string `json:"group_name"`
}

// List handles GET /api/v1/fleets
func (h *FleetHandler) List(c echo.Context) error {
	fleets := h.registry.List()

	summaries := make([]FleetSummary, 0, len(fleets))
	for _, f := range fleets {
		summaries = append(summaries, FleetSummary{
			Name:        f.Name,
			DisplayName: f.DisplayName,
			Description: f.Description,
			Region:      f.Region,
			GroupName:   f.AutoScaling.GroupName,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})

	return SuccessList(c, summaries, len(summaries))
}

// Get handles GET /api/v1/fleets/:name
func (h *FleetHandler) Get(c echo.Context) error {
	f, err := h.registry.Get(c.Param("name"))
	if err != nil {
		return ErrorNotFound(c, err.Error())
	}

	return SuccessOK(c, f)
}
