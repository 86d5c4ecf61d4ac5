package idle_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/idle"
	"github.com/tsanders-rh/costctl/pkg/types"
)

func testDetector() *idle.Detector {
	f := &fleet.Fleet{}
	f.ApplyDefaults()
	return idle.NewDetector(f)
}

func series(resourceID string, metric types.MetricName, values ...float64) []types.UtilizationSample {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	samples := make([]types.UtilizationSample, 0, len(values))
	for i, v := range values {
		samples = append(samples, types.UtilizationSample{
			ResourceID: resourceID,
			Metric:     metric,
			Value:      v,
			ObservedAt: base.Add(time.Duration(i) * 5 * time.Minute),
		})
	}
	return samples
}

func resource(id string, gpu, gpuMem, cpu []float64) types.ResourceUtilization {
	return types.ResourceUtilization{
		ResourceID: id,
		Series: map[types.MetricName][]types.UtilizationSample{
			types.MetricGPUUtil:    series(id, types.MetricGPUUtil, gpu...),
			types.MetricGPUMemUtil: series(id, types.MetricGPUMemUtil, gpuMem...),
			types.MetricCPUUtil:    series(id, types.MetricCPUUtil, cpu...),
		},
	}
}

func testWindow() types.Window {
	end := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return types.Window{Start: end.Add(-2 * time.Hour), End: end}
}

func TestDetector_Classify(t *testing.T) {
	detector := testDetector()

	t.Run("all metrics below thresholds is idle", func(t *testing.T) {
		res := resource("i-0abc", []float64{2, 3, 4}, []float64{5, 6}, []float64{1, 2})

		verdict := detector.Classify(res, testWindow())

		assert.True(t, verdict.Idle)
		assert.Contains(t, verdict.Reason, "gpu_util avg 3.0")
		assert.Contains(t, verdict.Reason, "gpu_mem_util avg 5.5")
		assert.Contains(t, verdict.Reason, "cpu_util avg 1.5")
		assert.Equal(t, testWindow(), verdict.EvaluatedWindow)
	})

	t.Run("missing gpu_util data disqualifies idle", func(t *testing.T) {
		res := resource("i-0abc", nil, []float64{5}, []float64{1})

		verdict := detector.Classify(res, testWindow())

		assert.False(t, verdict.Idle)
		assert.Equal(t, "insufficient gpu_util data", verdict.Reason)
	})

	t.Run("any empty series disqualifies idle regardless of other metrics", func(t *testing.T) {
		for _, missing := range types.RequiredIdleMetrics {
			res := resource("i-0abc", []float64{0}, []float64{0}, []float64{0})
			res.Series[missing] = nil

			verdict := detector.Classify(res, testWindow())

			assert.False(t, verdict.Idle, "missing %s must disqualify idle", missing)
			assert.Contains(t, verdict.Reason, string(missing))
			assert.Contains(t, verdict.Reason, "insufficient")
		}
	})

	t.Run("busy gpu is not idle", func(t *testing.T) {
		res := resource("i-0abc", []float64{80, 90}, []float64{5}, []float64{1})

		verdict := detector.Classify(res, testWindow())

		assert.False(t, verdict.Idle)
		assert.Contains(t, verdict.Reason, "gpu_util average 85.0")
	})

	t.Run("threshold comparison is strict", func(t *testing.T) {
		// Averages exactly at the thresholds must not be idle
		res := resource("i-0abc", []float64{5}, []float64{10}, []float64{10})

		verdict := detector.Classify(res, testWindow())

		assert.False(t, verdict.Idle)
	})

	t.Run("idle verdict carries runtime cost estimate", func(t *testing.T) {
		detector := testDetector().WithRates(map[string]decimal.Decimal{
			"g4dn.xlarge": decimal.NewFromFloat(0.35),
		})

		res := resource("i-0abc", []float64{1}, []float64{2}, []float64{3})
		res.InstanceType = "g4dn.xlarge"
		res.LaunchedAt = testWindow().End.Add(-10 * time.Hour)

		verdict := detector.Classify(res, testWindow())

		require.True(t, verdict.Idle)
		assert.InDelta(t, 10.0, verdict.RuntimeHours, 1e-9)
		assert.True(t, decimal.NewFromFloat(3.5).Equal(verdict.EstimatedCost))
	})
}

func TestDetector_ClassifyAll(t *testing.T) {
	detector := testDetector()

	instances := []types.ResourceUtilization{
		resource("i-0ccc", []float64{1}, []float64{1}, []float64{1}),
		resource("i-0aaa", []float64{90}, []float64{80}, []float64{70}),
		resource("i-0bbb", []float64{2}, []float64{3}, []float64{4}),
	}

	verdicts := detector.ClassifyAll(instances, testWindow())

	require.Len(t, verdicts, 3)
	// Sorted by resource ID for deterministic output
	assert.Equal(t, "i-0aaa", verdicts[0].ResourceID)
	assert.Equal(t, "i-0bbb", verdicts[1].ResourceID)
	assert.Equal(t, "i-0ccc", verdicts[2].ResourceID)

	assert.False(t, verdicts[0].Idle)
	assert.True(t, verdicts[1].Idle)
	assert.True(t, verdicts[2].Idle)

	assert.True(t, idle.AnyIdle(verdicts))
	assert.False(t, idle.AnyIdle(verdicts[:1]))
}
