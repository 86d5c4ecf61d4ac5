package observe

import (
	"context"
	"log"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// MetricsAPI is the slice of the CloudWatch API the utilization observer needs
type MetricsAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// UtilizationObserver queries recent utilization series for fleet
// instances. A metric with no datapoints yields an empty series: callers
// must treat that as "unknown", never as zero utilization.
type UtilizationObserver struct {
	cw    MetricsAPI
	fleet *fleet.Fleet
}

// NewUtilizationObserver creates a new utilization observer
func NewUtilizationObserver(cw MetricsAPI, f *fleet.Fleet) *UtilizationObserver {
	return &UtilizationObserver{
		cw:    cw,
		fleet: f,
	}
}

// metricQuery maps one logical metric to its CloudWatch coordinates
type metricQuery struct {
	name      types.MetricName
	namespace string
	metric    string
}

func (o *UtilizationObserver) queries() []metricQuery {
	m := o.fleet.Metrics
	return []metricQuery{
		{name: types.MetricGPUUtil, namespace: m.GPUNamespace, metric: m.GPUUtilMetric},
		{name: types.MetricGPUMemUtil, namespace: m.GPUNamespace, metric: m.GPUMemUtilMetric},
		{name: types.MetricCPUUtil, namespace: m.CPUNamespace, metric: m.CPUUtilMetric},
	}
}

// Observe returns the per-metric sample series for one instance over the
// window, ordered by timestamp ascending. A failed or empty metric query
// produces an empty series for that metric; the other metrics still load.
func (o *UtilizationObserver) Observe(ctx context.Context, resourceID string, window types.Window) map[types.MetricName][]types.UtilizationSample {
	series := make(map[types.MetricName][]types.UtilizationSample, 3)

	for _, q := range o.queries() {
		samples, err := o.fetch(ctx, resourceID, q, window)
		if err != nil {
			log.Printf("Metric %s unavailable for %s: %v", q.name, resourceID, err)
			series[q.name] = []types.UtilizationSample{}
			continue
		}
		series[q.name] = samples
	}

	return series
}

func (o *UtilizationObserver) fetch(ctx context.Context, resourceID string, q metricQuery, window types.Window) ([]types.UtilizationSample, error) {
	out, err := o.cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(q.namespace),
		MetricName: aws.String(q.metric),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("InstanceId"), Value: aws.String(resourceID)},
		},
		StartTime:  aws.Time(window.Start),
		EndTime:    aws.Time(window.End),
		Period:     aws.Int32(int32(o.fleet.Metrics.PeriodSeconds)),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil {
		return nil, err
	}

	samples := make([]types.UtilizationSample, 0, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		samples = append(samples, types.UtilizationSample{
			ResourceID: resourceID,
			Metric:     q.name,
			Value:      aws.ToFloat64(dp.Average),
			ObservedAt: aws.ToTime(dp.Timestamp),
		})
	}

	// CloudWatch returns datapoints unordered
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].ObservedAt.Before(samples[j].ObservedAt)
	})

	return samples, nil
}

// ObserveAll loads utilization series for every given instance
func (o *UtilizationObserver) ObserveAll(ctx context.Context, instances []types.ResourceUtilization, window types.Window) []types.ResourceUtilization {
	out := make([]types.ResourceUtilization, 0, len(instances))
	for _, inst := range instances {
		inst.Series = o.Observe(ctx, inst.ResourceID, window)
		out = append(out, inst)
	}
	return out
}
