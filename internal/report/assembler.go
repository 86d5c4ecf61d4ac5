package report

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/idle"
	"github.com/tsanders-rh/costctl/internal/observe"
	"github.com/tsanders-rh/costctl/internal/scaling"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// PriceSource provides spot/on-demand price observations
type PriceSource interface {
	Observe(ctx context.Context, window types.Window) ([]types.PricePoint, map[string]*types.SpotPriceStats, error)
}

// InstanceSource discovers the fleet's running instances
type InstanceSource interface {
	ListRunning(ctx context.Context) ([]types.ResourceUtilization, error)
}

// UtilizationSource loads utilization series for instances
type UtilizationSource interface {
	ObserveAll(ctx context.Context, instances []types.ResourceUtilization, window types.Window) []types.ResourceUtilization
}

// CapacitySource reads auto-scaling group state
type CapacitySource interface {
	Capacity(ctx context.Context) (*types.GroupCapacity, error)
	RecentActivity(ctx context.Context, window types.Window) (*types.ScalingActivitySummary, error)
}

// InsightsSource provides Cost Explorer insights
type InsightsSource interface {
	Insights(ctx context.Context, now time.Time) (*types.CostInsights, error)
}

// FindingSource provides storage findings
type FindingSource interface {
	Analyze(ctx context.Context, now time.Time) ([]types.StorageFinding, error)
}

// AlertDispatcher publishes the per-run critical alert
type AlertDispatcher interface {
	Notify(ctx context.Context, report *types.CostReport) (bool, error)
}

// Sources bundles the assembler's data-gathering dependencies. Alerts is
// optional; everything else is required for a full report.
type Sources struct {
	Prices      PriceSource
	Instances   InstanceSource
	Utilization UtilizationSource
	Groups      CapacitySource
	Insights    InsightsSource
	Storage     FindingSource
	Alerts      AlertDispatcher
}

// Assembler runs the observers in fixed order and merges their output into
// a single CostReport. A failure in any stage is captured as that section's
// error field; the remaining stages still run, and Assemble never returns
// an error for provider failures.
type Assembler struct {
	fleet   *fleet.Fleet
	sources Sources
	clock   func() time.Time
}

// NewAssembler creates a report assembler for one fleet
func NewAssembler(f *fleet.Fleet, sources Sources) *Assembler {
	return &Assembler{
		fleet:   f,
		sources: sources,
		clock:   time.Now,
	}
}

// WithClock overrides the time source, primarily for tests
func (a *Assembler) WithClock(clock func() time.Time) *Assembler {
	a.clock = clock
	return a
}

// Assemble runs the full pipeline: prices, instances, utilization, idle
// classification, scaling advice, cost insights, storage findings, then
// the prioritized narrative and the single critical alert dispatch.
func (a *Assembler) Assemble(ctx context.Context) *types.CostReport {
	now := a.clock().UTC()

	report := &types.CostReport{
		ID:          types.GenerateReportID(),
		GeneratedAt: now,
		Region:      a.fleet.Region,
		Fleet:       a.fleet.Name,
	}

	report.Prices = a.assemblePrices(ctx, now)

	instances, idleSection := a.assembleIdle(ctx, now, report.Prices.Analysis)
	report.Idle = idleSection

	report.Scaling = a.assembleScaling(ctx, now, instances, report.Idle.Verdicts)
	report.Costs = a.assembleCosts(ctx, now)
	report.Storage = a.assembleStorage(ctx, now)

	report.Recommendations = a.buildRecommendations(report)

	a.dispatchAlert(ctx, report)

	return report
}

// DiagnoseSpot runs only the price stage
func (a *Assembler) DiagnoseSpot(ctx context.Context) types.PriceSection {
	return a.assemblePrices(ctx, a.clock().UTC())
}

// DiagnoseIdle runs instance discovery, utilization, and idle
// classification. Idle cost estimates fall back to the static on-demand
// table since no price stage runs here.
func (a *Assembler) DiagnoseIdle(ctx context.Context) types.IdleSection {
	_, section := a.assembleIdle(ctx, a.clock().UTC(), nil)
	return section
}

// DiagnoseScaling runs the idle stage plus the scaling advisor, since
// scale-down advice is gated on confirmed idle instances
func (a *Assembler) DiagnoseScaling(ctx context.Context) types.ScalingSection {
	now := a.clock().UTC()
	instances, idleSection := a.assembleIdle(ctx, now, nil)
	return a.assembleScaling(ctx, now, instances, idleSection.Verdicts)
}

// DiagnoseCosts runs only the Cost Explorer stage
func (a *Assembler) DiagnoseCosts(ctx context.Context) types.CostSection {
	return a.assembleCosts(ctx, a.clock().UTC())
}

// DiagnoseStorage runs only the storage stage
func (a *Assembler) DiagnoseStorage(ctx context.Context) types.StorageSection {
	return a.assembleStorage(ctx, a.clock().UTC())
}

func (a *Assembler) priceWindow(now time.Time) types.Window {
	return types.Window{
		Start: now.Add(-time.Duration(a.fleet.Windows.PriceLookbackHours) * time.Hour),
		End:   now,
	}
}

func (a *Assembler) utilizationWindow(now time.Time) types.Window {
	return types.Window{
		Start: now.Add(-time.Duration(a.fleet.Windows.UtilizationLookbackMinutes) * time.Minute),
		End:   now,
	}
}

func (a *Assembler) activityWindow(now time.Time) types.Window {
	return types.Window{
		Start: now.Add(-time.Duration(a.fleet.Windows.ActivityLookbackHours) * time.Hour),
		End:   now,
	}
}

func (a *Assembler) assemblePrices(ctx context.Context, now time.Time) types.PriceSection {
	points, analysis, err := a.sources.Prices.Observe(ctx, a.priceWindow(now))
	if err != nil {
		log.Printf("Price stage failed: %v", err)
		return types.PriceSection{Error: err.Error()}
	}

	return types.PriceSection{
		Points:   points,
		Analysis: analysis,
		Savings:  observe.Savings(analysis),
	}
}

// assembleIdle discovers instances, loads their utilization, and
// classifies them. The instances (with series attached) are returned for
// the scaling stage so both stages see the exact same observations.
func (a *Assembler) assembleIdle(ctx context.Context, now time.Time, analysis map[string]*types.SpotPriceStats) ([]types.ResourceUtilization, types.IdleSection) {
	instances, err := a.sources.Instances.ListRunning(ctx)
	if err != nil {
		log.Printf("Instance discovery failed: %v", err)
		return nil, types.IdleSection{Error: err.Error()}
	}

	instances = a.sources.Utilization.ObserveAll(ctx, instances, a.utilizationWindow(now))

	detector := idle.NewDetector(a.fleet).WithRates(a.hourlyRates(analysis))
	verdicts := detector.ClassifyAll(instances, a.utilizationWindow(now))

	return instances, types.IdleSection{Verdicts: verdicts}
}

func (a *Assembler) assembleScaling(ctx context.Context, now time.Time, instances []types.ResourceUtilization, verdicts []types.IdleVerdict) types.ScalingSection {
	capacity, err := a.sources.Groups.Capacity(ctx)
	if err != nil {
		log.Printf("Scaling stage failed: %v", err)
		return types.ScalingSection{Error: err.Error()}
	}

	section := types.ScalingSection{Capacity: capacity}

	activity, err := a.sources.Groups.RecentActivity(ctx, a.activityWindow(now))
	if err != nil {
		// Activity history is advisory input only, keep going
		log.Printf("Scaling activity lookup failed: %v", err)
	} else {
		section.RecentActivity = activity
	}

	utilization, known := scaling.AggregateUtilization(instances)
	advisor := scaling.NewAdvisor(a.fleet)
	section.Recommendation = advisor.Advise(*capacity, utilization, known, idle.AnyIdle(verdicts))

	return section
}

func (a *Assembler) assembleCosts(ctx context.Context, now time.Time) types.CostSection {
	insights, err := a.sources.Insights.Insights(ctx, now)
	if err != nil {
		log.Printf("Cost insights stage failed: %v", err)
		return types.CostSection{Error: err.Error()}
	}
	return types.CostSection{Insights: insights}
}

func (a *Assembler) assembleStorage(ctx context.Context, now time.Time) types.StorageSection {
	findings, err := a.sources.Storage.Analyze(ctx, now)
	if err != nil {
		log.Printf("Storage stage failed: %v", err)
		return types.StorageSection{Error: err.Error()}
	}
	return types.StorageSection{Findings: findings}
}

// hourlyRates derives per-type hourly rates for idle cost estimates from
// this run's price analysis, falling back to the static table. Never mixes
// in data from a previous run.
func (a *Assembler) hourlyRates(analysis map[string]*types.SpotPriceStats) map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal)

	for instanceType, fallback := range a.fleet.OnDemandFallback {
		rates[instanceType] = decimal.NewFromFloat(fallback)
	}

	for instanceType, stats := range analysis {
		if stats.Error != "" || stats.BestZone == "" {
			continue
		}
		rates[instanceType] = stats.Zones[stats.BestZone].CurrentPrice
	}

	return rates
}

// buildRecommendations derives the prioritized narrative from the
// assembled sections. Priorities: critical cost breaches, then idle
// resource spend and standout spot savings, then moderate savings,
// storage findings, and capacity advisories. Ordering is fully
// deterministic so identical inputs yield identical lists.
func (a *Assembler) buildRecommendations(report *types.CostReport) []types.Recommendation {
	recs := []types.Recommendation{}

	recs = append(recs, a.costRecommendations(report)...)
	recs = append(recs, a.idleRecommendations(report)...)
	recs = append(recs, a.spotRecommendations(report)...)
	recs = append(recs, a.storageRecommendations(report)...)
	recs = append(recs, a.capacityRecommendations(report)...)

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority.Rank() != recs[j].Priority.Rank() {
			return recs[i].Priority.Rank() < recs[j].Priority.Rank()
		}
		if recs[i].Kind != recs[j].Kind {
			return recs[i].Kind < recs[j].Kind
		}
		return recs[i].Message < recs[j].Message
	})

	return recs
}

func (a *Assembler) costRecommendations(report *types.CostReport) []types.Recommendation {
	recs := []types.Recommendation{}

	if insights := report.Costs.Insights; insights != nil {
		monthly := insights.CurrentMonthCost
		switch {
		case monthly.GreaterThan(decimal.NewFromFloat(a.fleet.CostAlerts.MonthlyCritical)):
			recs = append(recs, types.Recommendation{
				Kind:     types.RecommendationCostAlert,
				Priority: types.PriorityCritical,
				Message:  fmt.Sprintf("monthly costs ($%s) exceed the critical threshold ($%.2f)", monthly.StringFixed(2), a.fleet.CostAlerts.MonthlyCritical),
				Action:   "immediate review and cost reduction required",
			})
		case monthly.GreaterThan(decimal.NewFromFloat(a.fleet.CostAlerts.MonthlyWarning)):
			recs = append(recs, types.Recommendation{
				Kind:     types.RecommendationCostAlert,
				Priority: types.PriorityMedium,
				Message:  fmt.Sprintf("monthly costs ($%s) exceed the warning threshold ($%.2f)", monthly.StringFixed(2), a.fleet.CostAlerts.MonthlyWarning),
				Action:   "monitor usage and consider optimization",
			})
		}
	}

	// Daily estimate: default instance type at its best current spot
	// price, across the group's desired capacity.
	if daily, ok := a.estimatedDailyCost(report); ok {
		switch {
		case daily.GreaterThan(decimal.NewFromFloat(a.fleet.CostAlerts.DailyCritical)):
			recs = append(recs, types.Recommendation{
				Kind:     types.RecommendationCostAlert,
				Priority: types.PriorityCritical,
				Message:  fmt.Sprintf("estimated daily cost ($%s) exceeds the critical threshold ($%.2f)", daily.StringFixed(2), a.fleet.CostAlerts.DailyCritical),
				Action:   "scale down unused capacity or pause non-production workloads",
			})
		case daily.GreaterThan(decimal.NewFromFloat(a.fleet.CostAlerts.DailyWarning)):
			recs = append(recs, types.Recommendation{
				Kind:     types.RecommendationCostAlert,
				Priority: types.PriorityMedium,
				Message:  fmt.Sprintf("estimated daily cost ($%s) exceeds the warning threshold ($%.2f)", daily.StringFixed(2), a.fleet.CostAlerts.DailyWarning),
				Action:   "review resource usage",
			})
		}
	}

	return recs
}

func (a *Assembler) estimatedDailyCost(report *types.CostReport) (decimal.Decimal, bool) {
	stats, ok := report.Prices.Analysis[a.fleet.InstanceTypes.Default]
	if !ok || stats.Error != "" || stats.BestZone == "" {
		return decimal.Zero, false
	}

	hourly := stats.Zones[stats.BestZone].CurrentPrice
	daily := hourly.Mul(decimal.NewFromInt(24))

	if report.Scaling.Capacity != nil && report.Scaling.Capacity.Desired > 0 {
		daily = daily.Mul(decimal.NewFromInt(int64(report.Scaling.Capacity.Desired)))
	}

	return daily, true
}

func (a *Assembler) idleRecommendations(report *types.CostReport) []types.Recommendation {
	idleCount := 0
	idleCost := decimal.Zero

	for _, verdict := range report.Idle.Verdicts {
		if verdict.Idle {
			idleCount++
			idleCost = idleCost.Add(verdict.EstimatedCost)
		}
	}

	if idleCount == 0 {
		return nil
	}

	return []types.Recommendation{{
		Kind:     types.RecommendationIdleResources,
		Priority: types.PriorityHigh,
		Message:  fmt.Sprintf("found %d idle instance(s) with an estimated $%s of runtime spend", idleCount, idleCost.StringFixed(2)),
		Action:   "review and terminate unused instances",
	}}
}

func (a *Assembler) spotRecommendations(report *types.CostReport) []types.Recommendation {
	recs := []types.Recommendation{}

	instanceTypes := make([]string, 0, len(report.Prices.Analysis))
	for instanceType := range report.Prices.Analysis {
		instanceTypes = append(instanceTypes, instanceType)
	}
	sort.Strings(instanceTypes)

	for _, instanceType := range instanceTypes {
		stats := report.Prices.Analysis[instanceType]
		if stats.Error != "" || stats.BestZone == "" {
			continue
		}

		switch {
		case stats.MaxSavingsPercent > 60:
			recs = append(recs, types.Recommendation{
				Kind:     types.RecommendationSpotSavings,
				Priority: types.PriorityHigh,
				Message:  fmt.Sprintf("excellent spot savings available for %s: %.1f%%", instanceType, stats.MaxSavingsPercent),
				Action:   fmt.Sprintf("deploy in %s for maximum savings", stats.BestZone),
			})
		case stats.MaxSavingsPercent > 30:
			recs = append(recs, types.Recommendation{
				Kind:     types.RecommendationSpotSavings,
				Priority: types.PriorityMedium,
				Message:  fmt.Sprintf("spot savings opportunity for %s: %.1f%%", instanceType, stats.MaxSavingsPercent),
				Action:   fmt.Sprintf("consider spot capacity in %s", stats.BestZone),
			})
		}
	}

	return recs
}

func (a *Assembler) storageRecommendations(report *types.CostReport) []types.Recommendation {
	if len(report.Storage.Findings) == 0 {
		return nil
	}

	return []types.Recommendation{{
		Kind:     types.RecommendationStorage,
		Priority: types.PriorityMedium,
		Message:  fmt.Sprintf("%d storage finding(s): volume type, size, or snapshot retention", len(report.Storage.Findings)),
		Action:   "review the storage section for per-resource details",
	}}
}

func (a *Assembler) capacityRecommendations(report *types.CostReport) []types.Recommendation {
	if report.Scaling.Capacity == nil || report.Scaling.RecentActivity == nil {
		return nil
	}

	advisor := scaling.NewAdvisor(a.fleet)
	msg := advisor.MaxCapacityAdvisory(*report.Scaling.Capacity, *report.Scaling.RecentActivity)
	if msg == "" {
		return nil
	}

	return []types.Recommendation{{
		Kind:     types.RecommendationMaxCapacity,
		Priority: types.PriorityLow,
		Message:  msg,
		Action:   "raise the group max if sustained demand continues",
	}}
}

// dispatchAlert publishes at most one alert per run, and only when
// critical items exist
func (a *Assembler) dispatchAlert(ctx context.Context, report *types.CostReport) {
	if a.sources.Alerts == nil {
		return
	}

	sent, err := a.sources.Alerts.Notify(ctx, report)
	if err != nil {
		log.Printf("Alert dispatch failed for report %s: %v", report.ID, err)
		return
	}
	if sent {
		log.Printf("Critical cost alert dispatched for report %s", report.ID)
	}
}
