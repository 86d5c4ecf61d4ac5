package types

import "time"

// Priority ranks a narrative recommendation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns the sort weight for a priority, lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// RecommendationKind classifies a narrative recommendation.
type RecommendationKind string

const (
	RecommendationCostAlert     RecommendationKind = "cost_alert"
	RecommendationIdleResources RecommendationKind = "idle_resources"
	RecommendationSpotSavings   RecommendationKind = "spot_savings"
	RecommendationStorage       RecommendationKind = "storage"
	RecommendationMaxCapacity   RecommendationKind = "max_capacity"
)

// Recommendation is a prioritized narrative item in the assembled report.
type Recommendation struct {
	Kind     RecommendationKind `json:"type"`
	Priority Priority           `json:"priority"`
	Message  string             `json:"message"`
	Action   string             `json:"action,omitempty"`
}

// PriceSection is the spot price analysis portion of a report.
type PriceSection struct {
	Points   []PricePoint               `json:"price_points,omitempty"`
	Analysis map[string]*SpotPriceStats `json:"analysis,omitempty"`
	Savings  []SavingsEstimate          `json:"savings,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// IdleSection holds the per-instance idle verdicts.
type IdleSection struct {
	Verdicts []IdleVerdict `json:"verdicts,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// ScalingSection holds group capacity, recent activity, and the advisory
// capacity recommendation when one exists.
type ScalingSection struct {
	Capacity       *GroupCapacity          `json:"capacity,omitempty"`
	RecentActivity *ScalingActivitySummary `json:"recent_activity,omitempty"`
	Recommendation *ScalingRecommendation  `json:"recommendation,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

// CostSection holds Cost Explorer insights.
type CostSection struct {
	Insights *CostInsights `json:"insights,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// StorageSection holds EBS and snapshot findings.
type StorageSection struct {
	Findings []StorageFinding `json:"findings,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// CostReport is the aggregate report produced once per run. Sections carry
// their own error fields so a provider failure in one stage never empties
// the others. Everything in the report is derived from data captured in the
// same run.
type CostReport struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Region      string    `json:"region"`
	Fleet       string    `json:"fleet,omitempty"`

	Prices  PriceSection   `json:"spot_price_analysis"`
	Idle    IdleSection    `json:"idle_resources"`
	Scaling ScalingSection `json:"scaling"`
	Costs   CostSection    `json:"cost_insights"`
	Storage StorageSection `json:"storage"`

	Recommendations []Recommendation `json:"recommendations"`
}

// ReportSummary is the listing view of a persisted report.
type ReportSummary struct {
	ID                  string    `json:"id"`
	Fleet               string    `json:"fleet,omitempty"`
	Region              string    `json:"region"`
	GeneratedAt         time.Time `json:"generated_at"`
	RecommendationCount int       `json:"recommendation_count"`
	CriticalCount       int       `json:"critical_count"`
	ArchiveKey          string    `json:"archive_key,omitempty"`
}

// SectionErrors collects the non-empty section errors keyed by section name.
func (r *CostReport) SectionErrors() map[string]string {
	errs := make(map[string]string)
	if r.Prices.Error != "" {
		errs["spot_price_analysis"] = r.Prices.Error
	}
	if r.Idle.Error != "" {
		errs["idle_resources"] = r.Idle.Error
	}
	if r.Scaling.Error != "" {
		errs["scaling"] = r.Scaling.Error
	}
	if r.Costs.Error != "" {
		errs["cost_insights"] = r.Costs.Error
	}
	if r.Storage.Error != "" {
		errs["storage"] = r.Storage.Error
	}
	return errs
}

// CriticalRecommendations returns only the critical-priority items. The
// alert dispatcher uses this to decide whether the single per-run alert
// fires.
func (r *CostReport) CriticalRecommendations() []Recommendation {
	var out []Recommendation
	for _, rec := range r.Recommendations {
		if rec.Priority == PriorityCritical {
			out = append(out, rec)
		}
	}
	return out
}
