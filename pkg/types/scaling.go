package types

// GroupCapacity is the current desired/min/max configuration of an
// auto-scaling group.
type GroupCapacity struct {
	GroupName string `json:"group_name"`
	Desired   int    `json:"desired"`
	Min       int    `json:"min"`
	Max       int    `json:"max"`
}

// ScalingActivitySummary counts recent scale events within the lookback
// window, derived from the group's scaling activity history.
type ScalingActivitySummary struct {
	ScaleUps   int    `json:"scale_ups"`
	ScaleDowns int    `json:"scale_downs"`
	Window     Window `json:"window"`
}

// ScalingRecommendation is an advisory capacity change. It is never applied
// automatically; a caller must explicitly confirm the mutation.
type ScalingRecommendation struct {
	GroupName       string `json:"group_id"`
	CurrentDesired  int    `json:"current_desired"`
	CurrentMin      int    `json:"current_min"`
	CurrentMax      int    `json:"current_max"`
	ProposedDesired int    `json:"proposed_desired"`
	Rationale       string `json:"rationale"`
}

// Delta returns the proposed capacity change. Always a unit step.
func (r *ScalingRecommendation) Delta() int {
	return r.ProposedDesired - r.CurrentDesired
}
