package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single immutable spot price observation for an
// (instance type, availability zone) pair.
type PricePoint struct {
	InstanceType string          `json:"instance_type"`
	Zone         string          `json:"zone"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	ObservedAt   time.Time       `json:"observed_at"`
}

// ZonePriceStats summarizes spot prices observed in one availability zone
// over the lookback window.
type ZonePriceStats struct {
	CurrentPrice decimal.Decimal `json:"current_price"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	MinPrice     decimal.Decimal `json:"min_price"`
	MaxPrice     decimal.Decimal `json:"max_price"`
	// Volatility is (max-min)/min, zero when min is zero.
	Volatility float64 `json:"price_volatility"`
}

// SpotPriceStats is the per-instance-type price analysis: zone statistics,
// the on-demand comparison price, and the best zone by current price.
type SpotPriceStats struct {
	InstanceType      string                    `json:"instance_type"`
	Zones             map[string]ZonePriceStats `json:"availability_zones,omitempty"`
	OnDemandPrice     decimal.Decimal           `json:"on_demand_price"`
	BestZone          string                    `json:"best_zone,omitempty"`
	MaxSavingsPercent float64                   `json:"max_savings_percent"`
	// Error is set when the lookup for this instance type failed. Other
	// instance types in the same batch are unaffected.
	Error string `json:"error,omitempty"`
}

// SavingsEstimate compares the current spot price against on-demand for one
// instance type.
type SavingsEstimate struct {
	InstanceType   string          `json:"instance_type"`
	SpotPrice      decimal.Decimal `json:"spot_price"`
	OnDemandPrice  decimal.Decimal `json:"on_demand_price"`
	HourlySavings  decimal.Decimal `json:"hourly_savings"`
	DailySavings   decimal.Decimal `json:"daily_savings"`
	MonthlySavings decimal.Decimal `json:"monthly_savings"`
	SavingsPercent float64         `json:"savings_percent"`
}
