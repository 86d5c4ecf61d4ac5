package report_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/report"
	"github.com/tsanders-rh/costctl/pkg/types"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakePrices struct {
	points   []types.PricePoint
	analysis map[string]*types.SpotPriceStats
	err      error
}

func (f *fakePrices) Observe(context.Context, types.Window) ([]types.PricePoint, map[string]*types.SpotPriceStats, error) {
	return f.points, f.analysis, f.err
}

type fakeInstances struct {
	instances []types.ResourceUtilization
	err       error
}

func (f *fakeInstances) ListRunning(context.Context) ([]types.ResourceUtilization, error) {
	return f.instances, f.err
}

type fakeUtilization struct {
	series map[string]map[types.MetricName][]types.UtilizationSample
}

func (f *fakeUtilization) ObserveAll(_ context.Context, instances []types.ResourceUtilization, _ types.Window) []types.ResourceUtilization {
	out := make([]types.ResourceUtilization, 0, len(instances))
	for _, inst := range instances {
		if series, ok := f.series[inst.ResourceID]; ok {
			inst.Series = series
		} else {
			inst.Series = map[types.MetricName][]types.UtilizationSample{}
		}
		out = append(out, inst)
	}
	return out
}

type fakeGroups struct {
	capacity *types.GroupCapacity
	activity *types.ScalingActivitySummary
	err      error
}

func (f *fakeGroups) Capacity(context.Context) (*types.GroupCapacity, error) {
	return f.capacity, f.err
}

func (f *fakeGroups) RecentActivity(_ context.Context, w types.Window) (*types.ScalingActivitySummary, error) {
	if f.activity == nil {
		return &types.ScalingActivitySummary{Window: w}, nil
	}
	return f.activity, nil
}

type fakeInsights struct {
	insights *types.CostInsights
	err      error
}

func (f *fakeInsights) Insights(context.Context, time.Time) (*types.CostInsights, error) {
	return f.insights, f.err
}

type fakeStorage struct {
	findings []types.StorageFinding
	err      error
}

func (f *fakeStorage) Analyze(context.Context, time.Time) ([]types.StorageFinding, error) {
	return f.findings, f.err
}

type fakeAlerts struct {
	calls int
	sent  bool
}

func (f *fakeAlerts) Notify(_ context.Context, r *types.CostReport) (bool, error) {
	f.calls++
	f.sent = len(r.CriticalRecommendations()) > 0
	return f.sent, nil
}

func assemblerFleet() *fleet.Fleet {
	f := &fleet.Fleet{
		Name:   "gpu-inference",
		Region: "us-east-1",
		AutoScaling: fleet.AutoScalingConfig{
			GroupName:        "gpu-asg",
			MaxGroupCapacity: 10,
		},
		InstanceTypes: fleet.InstanceTypeConfig{
			Allowlist: []string{"g4dn.xlarge"},
			Default:   "g4dn.xlarge",
		},
		ProjectTag: fleet.TagConfig{Key: "Project", Value: "AI-Starter-Kit"},
		OnDemandFallback: map[string]float64{
			"g4dn.xlarge": 1.19,
		},
	}
	f.ApplyDefaults()
	return f
}

func gpuSeries(id string, gpu, gpuMem, cpu float64) map[types.MetricName][]types.UtilizationSample {
	sample := func(m types.MetricName, v float64) []types.UtilizationSample {
		return []types.UtilizationSample{{ResourceID: id, Metric: m, Value: v, ObservedAt: testNow.Add(-10 * time.Minute)}}
	}
	return map[types.MetricName][]types.UtilizationSample{
		types.MetricGPUUtil:    sample(types.MetricGPUUtil, gpu),
		types.MetricGPUMemUtil: sample(types.MetricGPUMemUtil, gpuMem),
		types.MetricCPUUtil:    sample(types.MetricCPUUtil, cpu),
	}
}

func priceAnalysis(savingsPercent float64) map[string]*types.SpotPriceStats {
	return map[string]*types.SpotPriceStats{
		"g4dn.xlarge": {
			InstanceType:      "g4dn.xlarge",
			BestZone:          "us-east-1a",
			OnDemandPrice:     decimal.NewFromFloat(1.19),
			MaxSavingsPercent: savingsPercent,
			Zones: map[string]types.ZonePriceStats{
				"us-east-1a": {CurrentPrice: decimal.NewFromFloat(0.35)},
			},
		},
	}
}

func defaultSources() report.Sources {
	return report.Sources{
		Prices: &fakePrices{analysis: priceAnalysis(70.5)},
		Instances: &fakeInstances{instances: []types.ResourceUtilization{
			{ResourceID: "i-0busy", InstanceType: "g4dn.xlarge", LaunchedAt: testNow.Add(-5 * time.Hour)},
			{ResourceID: "i-0idle", InstanceType: "g4dn.xlarge", LaunchedAt: testNow.Add(-10 * time.Hour)},
		}},
		Utilization: &fakeUtilization{series: map[string]map[types.MetricName][]types.UtilizationSample{
			"i-0busy": gpuSeries("i-0busy", 95, 80, 60),
			"i-0idle": gpuSeries("i-0idle", 2, 3, 4),
		}},
		Groups: &fakeGroups{
			capacity: &types.GroupCapacity{GroupName: "gpu-asg", Desired: 3, Min: 1, Max: 5},
		},
		Insights: &fakeInsights{insights: &types.CostInsights{
			CurrentMonthCost: decimal.NewFromFloat(500),
			Trend:            types.CostTrendStable,
		}},
		Storage: &fakeStorage{},
	}
}

func newAssembler(sources report.Sources) *report.Assembler {
	return report.NewAssembler(assemblerFleet(), sources).WithClock(func() time.Time { return testNow })
}

func TestAssembler_Assemble(t *testing.T) {
	t.Run("populates all sections", func(t *testing.T) {
		r := newAssembler(defaultSources()).Assemble(context.Background())

		assert.NotEmpty(t, r.ID)
		assert.Equal(t, testNow, r.GeneratedAt)
		assert.Equal(t, "gpu-inference", r.Fleet)

		assert.Empty(t, r.Prices.Error)
		require.Len(t, r.Idle.Verdicts, 2)
		assert.Empty(t, r.SectionErrors())

		// One idle, one busy
		assert.False(t, r.Idle.Verdicts[0].Idle) // i-0busy
		assert.True(t, r.Idle.Verdicts[1].Idle)  // i-0idle
	})

	t.Run("scale up recommendation at high utilization", func(t *testing.T) {
		sources := defaultSources()
		sources.Utilization = &fakeUtilization{series: map[string]map[types.MetricName][]types.UtilizationSample{
			"i-0busy": gpuSeries("i-0busy", 90, 80, 60),
			"i-0idle": gpuSeries("i-0idle", 80, 70, 50),
		}}

		r := newAssembler(sources).Assemble(context.Background())

		require.NotNil(t, r.Scaling.Recommendation)
		assert.Equal(t, 4, r.Scaling.Recommendation.ProposedDesired)
		assert.Contains(t, r.Scaling.Recommendation.Rationale, "scale up to 4")
	})

	t.Run("price failure does not empty the other sections", func(t *testing.T) {
		sources := defaultSources()
		sources.Prices = &fakePrices{err: fmt.Errorf("rate exceeded")}

		r := newAssembler(sources).Assemble(context.Background())

		assert.Equal(t, "rate exceeded", r.Prices.Error)
		assert.Len(t, r.Idle.Verdicts, 2)
		assert.NotNil(t, r.Scaling.Capacity)
		assert.NotNil(t, r.Costs.Insights)
	})

	t.Run("every stage failing still yields a structured report", func(t *testing.T) {
		sources := report.Sources{
			Prices:      &fakePrices{err: fmt.Errorf("prices down")},
			Instances:   &fakeInstances{err: fmt.Errorf("ec2 down")},
			Utilization: &fakeUtilization{},
			Groups:      &fakeGroups{err: fmt.Errorf("asg down")},
			Insights:    &fakeInsights{err: fmt.Errorf("ce down")},
			Storage:     &fakeStorage{err: fmt.Errorf("ebs down")},
		}

		r := newAssembler(sources).Assemble(context.Background())

		require.NotNil(t, r)
		assert.Len(t, r.SectionErrors(), 5)
	})

	t.Run("identical inputs yield identical recommendations", func(t *testing.T) {
		first := newAssembler(defaultSources()).Assemble(context.Background())
		second := newAssembler(defaultSources()).Assemble(context.Background())

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, first.Recommendations, second.Recommendations)
		assert.Equal(t, first.Idle.Verdicts, second.Idle.Verdicts)
	})

	t.Run("recommendations are ordered by priority", func(t *testing.T) {
		sources := defaultSources()
		sources.Insights = &fakeInsights{insights: &types.CostInsights{
			CurrentMonthCost: decimal.NewFromFloat(2500), // over critical
		}}
		sources.Storage = &fakeStorage{findings: []types.StorageFinding{
			{Kind: types.FindingGP2Migration, ResourceID: "vol-1"},
		}}

		r := newAssembler(sources).Assemble(context.Background())

		require.NotEmpty(t, r.Recommendations)
		assert.Equal(t, types.PriorityCritical, r.Recommendations[0].Priority)

		for i := 1; i < len(r.Recommendations); i++ {
			assert.GreaterOrEqual(t,
				r.Recommendations[i].Priority.Rank(),
				r.Recommendations[i-1].Priority.Rank())
		}
	})
}

func TestAssembler_AlertDispatch(t *testing.T) {
	t.Run("critical items trigger exactly one dispatch", func(t *testing.T) {
		alerts := &fakeAlerts{}
		sources := defaultSources()
		sources.Alerts = alerts
		sources.Insights = &fakeInsights{insights: &types.CostInsights{
			CurrentMonthCost: decimal.NewFromFloat(2500),
		}}

		newAssembler(sources).Assemble(context.Background())

		assert.Equal(t, 1, alerts.calls)
		assert.True(t, alerts.sent)
	})

	t.Run("no critical items means no alert", func(t *testing.T) {
		alerts := &fakeAlerts{}
		sources := defaultSources()
		sources.Alerts = alerts

		newAssembler(sources).Assemble(context.Background())

		assert.Equal(t, 1, alerts.calls)
		assert.False(t, alerts.sent)
	})
}

func TestAssembler_Diagnostics(t *testing.T) {
	t.Run("spot diagnostic runs only the price stage", func(t *testing.T) {
		section := newAssembler(defaultSources()).DiagnoseSpot(context.Background())
		assert.Empty(t, section.Error)
		assert.Contains(t, section.Analysis, "g4dn.xlarge")
	})

	t.Run("idle diagnostic classifies without a price stage", func(t *testing.T) {
		section := newAssembler(defaultSources()).DiagnoseIdle(context.Background())
		require.Len(t, section.Verdicts, 2)
	})

	t.Run("scaling diagnostic keeps the idle gating", func(t *testing.T) {
		sources := defaultSources()
		// Low utilization everywhere but no idle-confirmable data
		sources.Utilization = &fakeUtilization{series: map[string]map[types.MetricName][]types.UtilizationSample{
			"i-0busy": {types.MetricGPUUtil: gpuSeries("i-0busy", 10, 0, 0)[types.MetricGPUUtil]},
			"i-0idle": {types.MetricGPUUtil: gpuSeries("i-0idle", 10, 0, 0)[types.MetricGPUUtil]},
		}}

		section := newAssembler(sources).DiagnoseScaling(context.Background())

		require.NotNil(t, section.Capacity)
		// Utilization is low but no instance is confirmed idle
		assert.Nil(t, section.Recommendation)
	})
}
