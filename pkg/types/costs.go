package types

import "github.com/shopspring/decimal"

// CostTrend labels the direction of forecasted spend relative to the
// current month.
type CostTrend string

const (
	CostTrendIncreasing CostTrend = "increasing"
	CostTrendStable     CostTrend = "stable"
)

// CostInsights summarizes month-to-date spend and the 30-day forecast for
// the project's tagged resources.
type CostInsights struct {
	CurrentMonthCost    decimal.Decimal            `json:"current_month_cost"`
	ForecastedMonthCost decimal.Decimal            `json:"forecasted_month_cost"`
	ServiceBreakdown    map[string]decimal.Decimal `json:"service_breakdown,omitempty"`
	Trend               CostTrend                  `json:"cost_trend"`
}
