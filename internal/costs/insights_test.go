package costs_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsanders-rh/costctl/internal/costs"
	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

type fakeExplorerAPI struct {
	usage       *costexplorer.GetCostAndUsageOutput
	usageErr    error
	forecast    *costexplorer.GetCostForecastOutput
	forecastErr error

	usageInput *costexplorer.GetCostAndUsageInput
}

func (f *fakeExplorerAPI) GetCostAndUsage(_ context.Context, in *costexplorer.GetCostAndUsageInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.usageInput = in
	return f.usage, f.usageErr
}

func (f *fakeExplorerAPI) GetCostForecast(_ context.Context, _ *costexplorer.GetCostForecastInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostForecastOutput, error) {
	return f.forecast, f.forecastErr
}

func costsFleet() *fleet.Fleet {
	f := &fleet.Fleet{
		Region:     "us-east-1",
		ProjectTag: fleet.TagConfig{Key: "Project", Value: "AI-Starter-Kit"},
	}
	f.ApplyDefaults()
	return f
}

func serviceGroup(service, amount string) cetypes.Group {
	return cetypes.Group{
		Keys: []string{service},
		Metrics: map[string]cetypes.MetricValue{
			"BlendedCost": {Amount: aws.String(amount)},
		},
	}
}

func TestObserver_Insights(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("sums service costs and reads forecast", func(t *testing.T) {
		api := &fakeExplorerAPI{
			usage: &costexplorer.GetCostAndUsageOutput{
				ResultsByTime: []cetypes.ResultByTime{{
					Groups: []cetypes.Group{
						serviceGroup("Amazon Elastic Compute Cloud - Compute", "812.50"),
						serviceGroup("Amazon Simple Storage Service", "42.25"),
					},
				}},
			},
			forecast: &costexplorer.GetCostForecastOutput{
				Total: &cetypes.MetricValue{Amount: aws.String("1700.00")},
			},
		}

		obs := costs.NewObserver(api, costsFleet())
		insights, err := obs.Insights(context.Background(), now)
		require.NoError(t, err)

		assert.True(t, decimal.NewFromFloat(854.75).Equal(insights.CurrentMonthCost))
		assert.True(t, decimal.NewFromFloat(1700.00).Equal(insights.ForecastedMonthCost))
		assert.Equal(t, types.CostTrendIncreasing, insights.Trend)
		assert.Len(t, insights.ServiceBreakdown, 2)
	})

	t.Run("queries month-to-date with project tag filter", func(t *testing.T) {
		api := &fakeExplorerAPI{usage: &costexplorer.GetCostAndUsageOutput{}}

		obs := costs.NewObserver(api, costsFleet())
		_, err := obs.Insights(context.Background(), now)
		require.NoError(t, err)

		require.NotNil(t, api.usageInput)
		assert.Equal(t, "2025-06-01", aws.ToString(api.usageInput.TimePeriod.Start))
		assert.Equal(t, "2025-06-15", aws.ToString(api.usageInput.TimePeriod.End))
		require.NotNil(t, api.usageInput.Filter.Tags)
		assert.Equal(t, "Project", aws.ToString(api.usageInput.Filter.Tags.Key))
	})

	t.Run("forecast failure keeps month-to-date insights", func(t *testing.T) {
		api := &fakeExplorerAPI{
			usage: &costexplorer.GetCostAndUsageOutput{
				ResultsByTime: []cetypes.ResultByTime{{
					Groups: []cetypes.Group{serviceGroup("Amazon EC2", "100.00")},
				}},
			},
			forecastErr: fmt.Errorf("throttled"),
		}

		obs := costs.NewObserver(api, costsFleet())
		insights, err := obs.Insights(context.Background(), now)
		require.NoError(t, err)

		assert.True(t, decimal.NewFromFloat(100.00).Equal(insights.CurrentMonthCost))
		assert.True(t, insights.ForecastedMonthCost.IsZero())
		assert.Equal(t, types.CostTrendStable, insights.Trend)
	})

	t.Run("usage failure surfaces as error", func(t *testing.T) {
		api := &fakeExplorerAPI{usageErr: fmt.Errorf("access denied")}

		obs := costs.NewObserver(api, costsFleet())
		_, err := obs.Insights(context.Background(), now)
		assert.Error(t, err)
	})
}
