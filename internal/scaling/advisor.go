package scaling

import (
	"fmt"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// Advisor produces at most one advisory capacity change per run. Capacity
// moves in unit steps only, bounded by the group's min/max, to avoid
// oscillation. Recommendations are never applied without explicit
// confirmation.
type Advisor struct {
	target           float64
	low              float64
	maxGroupCapacity int
}

// NewAdvisor creates an advisor from the fleet's utilization thresholds
func NewAdvisor(f *fleet.Fleet) *Advisor {
	return &Advisor{
		target:           f.Thresholds.TargetUtilization,
		low:              f.Thresholds.LowUtilization,
		maxGroupCapacity: f.AutoScaling.MaxGroupCapacity,
	}
}

// Advise compares current capacity against aggregate utilization and
// returns zero or one recommendation. utilizationKnown distinguishes "no
// signal" from "low signal": without a confirmed reading the advisor stays
// silent rather than treating missing data as zero utilization.
//
// Scale-down is additionally gated on an independently confirmed idle
// instance, so a transient utilization dip alone never shrinks the group.
func (a *Advisor) Advise(capacity types.GroupCapacity, utilization float64, utilizationKnown, hasConfirmedIdle bool) *types.ScalingRecommendation {
	if !utilizationKnown {
		return nil
	}

	if utilization > a.target && capacity.Desired < capacity.Max {
		proposed := capacity.Desired + 1
		return &types.ScalingRecommendation{
			GroupName:       capacity.GroupName,
			CurrentDesired:  capacity.Desired,
			CurrentMin:      capacity.Min,
			CurrentMax:      capacity.Max,
			ProposedDesired: proposed,
			Rationale: fmt.Sprintf("utilization %.1f%% above target %.1f%%: scale up to %d",
				utilization, a.target, proposed),
		}
	}

	if utilization < a.low && capacity.Desired > capacity.Min && hasConfirmedIdle {
		proposed := capacity.Desired - 1
		return &types.ScalingRecommendation{
			GroupName:       capacity.GroupName,
			CurrentDesired:  capacity.Desired,
			CurrentMin:      capacity.Min,
			CurrentMax:      capacity.Max,
			ProposedDesired: proposed,
			Rationale: fmt.Sprintf("utilization %.1f%% below low threshold %.1f%% with confirmed idle instance: scale down to %d",
				utilization, a.low, proposed),
		}
	}

	return nil
}

// MaxCapacityAdvisory flags a group whose recent activity suggests the max
// bound is too tight: more scale-ups than scale-downs while max sits under
// the configured group cap. Advisory text only, never a capacity change.
func (a *Advisor) MaxCapacityAdvisory(capacity types.GroupCapacity, activity types.ScalingActivitySummary) string {
	if a.maxGroupCapacity == 0 || capacity.Max >= a.maxGroupCapacity {
		return ""
	}
	if activity.ScaleUps <= activity.ScaleDowns {
		return ""
	}

	return fmt.Sprintf("group %s scaled up %d times vs %d scale-downs recently; consider raising max capacity above %d",
		capacity.GroupName, activity.ScaleUps, activity.ScaleDowns, capacity.Max)
}

// AggregateUtilization averages the per-instance gpu_util averages. The
// second return value is false when no instance has any gpu_util data, in
// which case the aggregate must not be interpreted as zero.
func AggregateUtilization(instances []types.ResourceUtilization) (float64, bool) {
	sum := 0.0
	count := 0

	for _, inst := range instances {
		samples := inst.Series[types.MetricGPUUtil]
		if len(samples) == 0 {
			continue
		}

		instSum := 0.0
		for _, s := range samples {
			instSum += s.Value
		}
		sum += instSum / float64(len(samples))
		count++
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
