package observe_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsanders-rh/costctl/internal/observe"
	"github.com/tsanders-rh/costctl/pkg/types"
)

type fakeMetricsAPI struct {
	fn func(*cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error)
}

func (f *fakeMetricsAPI) GetMetricStatistics(_ context.Context, in *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	return f.fn(in)
}

func datapoint(avg float64, at time.Time) cwtypes.Datapoint {
	return cwtypes.Datapoint{
		Average:   aws.Float64(avg),
		Timestamp: aws.Time(at),
	}
}

func TestUtilizationObserver_Observe(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := types.Window{Start: now.Add(-2 * time.Hour), End: now}

	t.Run("orders samples ascending", func(t *testing.T) {
		cw := &fakeMetricsAPI{fn: func(in *cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
			// CloudWatch does not guarantee datapoint ordering
			return &cloudwatch.GetMetricStatisticsOutput{
				Datapoints: []cwtypes.Datapoint{
					datapoint(30, now.Add(-5*time.Minute)),
					datapoint(10, now.Add(-15*time.Minute)),
					datapoint(20, now.Add(-10*time.Minute)),
				},
			}, nil
		}}

		obs := observe.NewUtilizationObserver(cw, testFleet("g4dn.xlarge"))
		series := obs.Observe(context.Background(), "i-0abc", window)

		samples := series[types.MetricGPUUtil]
		require.Len(t, samples, 3)
		assert.Equal(t, []float64{10, 20, 30}, []float64{samples[0].Value, samples[1].Value, samples[2].Value})
		for _, s := range samples {
			assert.Equal(t, "i-0abc", s.ResourceID)
		}
	})

	t.Run("empty datapoints yield empty series, not an error", func(t *testing.T) {
		cw := &fakeMetricsAPI{fn: func(in *cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
			return &cloudwatch.GetMetricStatisticsOutput{}, nil
		}}

		obs := observe.NewUtilizationObserver(cw, testFleet("g4dn.xlarge"))
		series := obs.Observe(context.Background(), "i-0abc", window)

		require.Contains(t, series, types.MetricGPUUtil)
		assert.Empty(t, series[types.MetricGPUUtil])
		assert.Empty(t, series[types.MetricGPUMemUtil])
		assert.Empty(t, series[types.MetricCPUUtil])
	})

	t.Run("one failing metric leaves the others intact", func(t *testing.T) {
		cw := &fakeMetricsAPI{fn: func(in *cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
			if aws.ToString(in.MetricName) == "GPUUtilization" {
				return nil, fmt.Errorf("throttled")
			}
			return &cloudwatch.GetMetricStatisticsOutput{
				Datapoints: []cwtypes.Datapoint{datapoint(42, now.Add(-5*time.Minute))},
			}, nil
		}}

		obs := observe.NewUtilizationObserver(cw, testFleet("g4dn.xlarge"))
		series := obs.Observe(context.Background(), "i-0abc", window)

		assert.Empty(t, series[types.MetricGPUUtil])
		require.Len(t, series[types.MetricCPUUtil], 1)
		assert.Equal(t, 42.0, series[types.MetricCPUUtil][0].Value)
	})

	t.Run("queries the fleet's metric namespaces", func(t *testing.T) {
		var namespaces []string
		cw := &fakeMetricsAPI{fn: func(in *cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
			namespaces = append(namespaces, aws.ToString(in.Namespace))
			return &cloudwatch.GetMetricStatisticsOutput{}, nil
		}}

		obs := observe.NewUtilizationObserver(cw, testFleet("g4dn.xlarge"))
		obs.Observe(context.Background(), "i-0abc", window)

		assert.Equal(t, []string{"GPU/Monitoring", "GPU/Monitoring", "AWS/EC2"}, namespaces)
	})
}
