// Package idle classifies fleet instances as idle from their utilization
// series. The policy is deliberately conservative: an instance is idle only
// when every required metric confirms low utilization, and a metric with no
// data disqualifies the instance from being marked idle. Never shut down
// something we cannot observe.
package idle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// Detector classifies instances using conjunctive per-metric thresholds
type Detector struct {
	thresholds map[types.MetricName]float64
	// rates maps instance type to an hourly rate used for idle cost
	// estimates. Missing types produce a zero estimate, not an error.
	rates map[string]decimal.Decimal
}

// NewDetector creates a detector from the fleet's idle thresholds
func NewDetector(f *fleet.Fleet) *Detector {
	return &Detector{
		thresholds: map[types.MetricName]float64{
			types.MetricGPUUtil:    f.Thresholds.IdleGPUUtil,
			types.MetricGPUMemUtil: f.Thresholds.IdleGPUMemUtil,
			types.MetricCPUUtil:    f.Thresholds.IdleCPUUtil,
		},
		rates: make(map[string]decimal.Decimal),
	}
}

// WithRates sets the per-type hourly rates used for idle cost estimates
func (d *Detector) WithRates(rates map[string]decimal.Decimal) *Detector {
	d.rates = rates
	return d
}

// Classify evaluates one instance's utilization series over the window.
// Every required metric must have data and average strictly below its
// threshold for an idle verdict; anything else is not idle.
func (d *Detector) Classify(res types.ResourceUtilization, window types.Window) types.IdleVerdict {
	verdict := types.IdleVerdict{
		ResourceID:      res.ResourceID,
		InstanceType:    res.InstanceType,
		EvaluatedWindow: window,
	}

	averages := make(map[types.MetricName]float64, len(types.RequiredIdleMetrics))

	for _, metric := range types.RequiredIdleMetrics {
		samples := res.Series[metric]
		if len(samples) == 0 {
			verdict.Reason = fmt.Sprintf("insufficient %s data", metric)
			return verdict
		}

		avg := average(samples)
		averages[metric] = avg

		if avg >= d.thresholds[metric] {
			verdict.Reason = fmt.Sprintf("%s average %.1f at or above idle threshold %.1f",
				metric, avg, d.thresholds[metric])
			return verdict
		}
	}

	verdict.Idle = true
	verdict.Reason = idleReason(averages)

	if !res.LaunchedAt.IsZero() && window.End.After(res.LaunchedAt) {
		verdict.RuntimeHours = window.End.Sub(res.LaunchedAt).Hours()
		if rate, ok := d.rates[res.InstanceType]; ok {
			verdict.EstimatedCost = rate.Mul(decimal.NewFromFloat(verdict.RuntimeHours)).Round(2)
		}
	}

	return verdict
}

// ClassifyAll classifies every instance, sorted by resource ID so
// identical inputs always yield identical verdict lists.
func (d *Detector) ClassifyAll(instances []types.ResourceUtilization, window types.Window) []types.IdleVerdict {
	verdicts := make([]types.IdleVerdict, 0, len(instances))
	for _, inst := range instances {
		verdicts = append(verdicts, d.Classify(inst, window))
	}

	sort.Slice(verdicts, func(i, j int) bool {
		return verdicts[i].ResourceID < verdicts[j].ResourceID
	})

	return verdicts
}

// AnyIdle reports whether at least one verdict confirms idleness. The
// scaling advisor gates scale-down on this.
func AnyIdle(verdicts []types.IdleVerdict) bool {
	for _, v := range verdicts {
		if v.Idle {
			return true
		}
	}
	return false
}

func average(samples []types.UtilizationSample) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += s.Value
	}
	return sum / float64(len(samples))
}

// idleReason cites every metric average so the verdict is auditable
func idleReason(averages map[types.MetricName]float64) string {
	parts := make([]string, 0, len(types.RequiredIdleMetrics))
	for _, metric := range types.RequiredIdleMetrics {
		parts = append(parts, fmt.Sprintf("%s avg %.1f", metric, averages[metric]))
	}
	return "below idle thresholds: " + strings.Join(parts, ", ")
}
