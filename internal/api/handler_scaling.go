package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// CapacityApplier reads group capacity and applies a confirmed change
type CapacityApplier interface {
	Capacity(ctx context.Context) (*types.GroupCapacity, error)
	Apply(ctx context.Context, rec *types.ScalingRecommendation) error
}

// ApplierFactory builds a capacity applier for a fleet
type ApplierFactory func(f *fleet.Fleet) CapacityApplier

// ScalingHandler handles the explicit capacity mutation endpoint
type ScalingHandler struct {
	registry *fleet.Registry
	applier  ApplierFactory
}

// NewScalingHandler creates a new scaling handler
func NewScalingHandler(registry *fleet.Registry, applier ApplierFactory) *ScalingHandler {
	return &ScalingHandler{
		registry: registry,
		applier:  applier,
	}
}

// ApplyRequest is the body for POST /api/v1/scaling/apply. The caller
// restates the desired capacity it saw recommended; nothing is applied
// implicitly from a stored report.
type ApplyRequest struct {
	Fleet           string `json:"fleet" validate:"required"`
	ProposedDesired int    `json:"proposed_desired" validate:"min=0"`
}

// ApplyResponse confirms the applied change
type ApplyResponse struct {
	GroupName       string `json:"group_name"`
	PreviousDesired int    `json:"previous_desired"`
	AppliedDesired  int    `json:"applied_desired"`
}

// Apply handles POST /api/v1/scaling/apply
func (h *ScalingHandler) Apply(c echo.Context) error {
	ctx := c.Request().Context()

	var req ApplyRequest
	if err := c.Bind(&req); err != nil {
		return ErrorBadRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return ErrorBadRequest(c, "fleet is required and proposed_desired must be non-negative")
	}

	f, err := h.registry.Get(req.Fleet)
	if err != nil {
		return ErrorNotFound(c, err.Error())
	}

	applier := h.applier(f)

	capacity, err := applier.Capacity(ctx)
	if err != nil {
		return ErrorServiceUnavailable(c, "failed to read group capacity: "+err.Error())
	}

	if req.ProposedDesired == capacity.Desired {
		return ErrorConflict(c, "group is already at the proposed capacity")
	}

	rec := &types.ScalingRecommendation{
		GroupName:       capacity.GroupName,
		CurrentDesired:  capacity.Desired,
		CurrentMin:      capacity.Min,
		CurrentMax:      capacity.Max,
		ProposedDesired: req.ProposedDesired,
	}

	if err := applier.Apply(ctx, rec); err != nil {
		return ErrorBadRequest(c, err.Error())
	}

	return SuccessOK(c, &ApplyResponse{
		GroupName:       capacity.GroupName,
		PreviousDesired: capacity.Desired,
		AppliedDesired:  req.ProposedDesired,
	})
}
