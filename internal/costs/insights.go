package costs

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// ExplorerAPI is the slice of the Cost Explorer API the observer needs
type ExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
	GetCostForecast(ctx context.Context, params *costexplorer.GetCostForecastInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostForecastOutput, error)
}

// Observer queries month-to-date spend and the 30-day forecast for the
// fleet's tagged resources.
type Observer struct {
	ce    ExplorerAPI
	fleet *fleet.Fleet
}

// NewObserver creates a new cost insights observer
func NewObserver(ce ExplorerAPI, f *fleet.Fleet) *Observer {
	return &Observer{
		ce:    ce,
		fleet: f,
	}
}

const ceDateFormat = "2006-01-02"

// Insights gathers current-month costs by service and the forecast. now
// anchors the month boundaries so identical inputs yield identical output.
func (o *Observer) Insights(ctx context.Context, now time.Time) (*types.CostInsights, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	tagFilter := &cetypes.Expression{
		Tags: &cetypes.TagValues{
			Key:    aws.String(o.fleet.ProjectTag.Key),
			Values: []string{o.fleet.ProjectTag.Value},
		},
	}

	usage, err := o.ce.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(monthStart.Format(ceDateFormat)),
			End:   aws.String(now.Format(ceDateFormat)),
		},
		Granularity: cetypes.GranularityMonthly,
		Metrics:     []string{"BlendedCost"},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
		Filter: tagFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("get cost and usage: %w", err)
	}

	total := decimal.Zero
	breakdown := make(map[string]decimal.Decimal)

	for _, result := range usage.ResultsByTime {
		for _, group := range result.Groups {
			metric, ok := group.Metrics["BlendedCost"]
			if !ok {
				continue
			}
			amount, err := decimal.NewFromString(aws.ToString(metric.Amount))
			if err != nil {
				continue
			}

			service := "Unknown"
			if len(group.Keys) > 0 {
				service = group.Keys[0]
			}

			total = total.Add(amount)
			breakdown[service] = breakdown[service].Add(amount)
		}
	}

	insights := &types.CostInsights{
		CurrentMonthCost: total.Round(2),
		ServiceBreakdown: roundAll(breakdown),
		Trend:            types.CostTrendStable,
	}

	forecast, err := o.ce.GetCostForecast(ctx, &costexplorer.GetCostForecastInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(now.Format(ceDateFormat)),
			End:   aws.String(now.AddDate(0, 0, 30).Format(ceDateFormat)),
		},
		Metric:      cetypes.MetricBlendedCost,
		Granularity: cetypes.GranularityMonthly,
		Filter:      tagFilter,
	})
	if err != nil {
		// Forecast is best effort; month-to-date numbers still stand
		return insights, nil
	}

	if forecast.Total != nil {
		amount, err := decimal.NewFromString(aws.ToString(forecast.Total.Amount))
		if err == nil {
			insights.ForecastedMonthCost = amount.Round(2)
			if amount.GreaterThan(total) {
				insights.Trend = types.CostTrendIncreasing
			}
		}
	}

	return insights, nil
}

func roundAll(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v.Round(2)
	}
	return out
}
