package types

import "github.com/shopspring/decimal"

// IdleVerdict is the derived idle classification for one instance.
// Recomputed every run, never persisted on its own.
type IdleVerdict struct {
	ResourceID   string `json:"resource_id"`
	InstanceType string `json:"instance_type,omitempty"`
	Idle         bool   `json:"is_idle"`
	// Reason cites the deciding metric and its observed value, for audit.
	Reason          string          `json:"reason"`
	EvaluatedWindow Window          `json:"evaluated_window"`
	RuntimeHours    float64         `json:"runtime_hours,omitempty"`
	EstimatedCost   decimal.Decimal `json:"estimated_cost,omitempty"`
}
