package types

import "time"

// MetricName identifies a utilization signal.
type MetricName string

const (
	MetricGPUUtil    MetricName = "gpu_util"
	MetricGPUMemUtil MetricName = "gpu_mem_util"
	MetricCPUUtil    MetricName = "cpu_util"
)

// RequiredIdleMetrics is the metric set the idle detector evaluates.
// All three must confirm low utilization before an instance is marked idle.
var RequiredIdleMetrics = []MetricName{MetricGPUUtil, MetricGPUMemUtil, MetricCPUUtil}

// UtilizationSample is one data point in a utilization time series.
type UtilizationSample struct {
	ResourceID string     `json:"resource_id"`
	Metric     MetricName `json:"metric"`
	Value      float64    `json:"value"`
	ObservedAt time.Time  `json:"observed_at"`
}

// ResourceUtilization holds per-metric sample series for one instance,
// ordered by timestamp ascending. A missing or empty series means the
// signal is unknown, never that utilization was zero.
type ResourceUtilization struct {
	ResourceID   string                           `json:"resource_id"`
	InstanceType string                           `json:"instance_type,omitempty"`
	LaunchedAt   time.Time                        `json:"launched_at,omitempty"`
	Series       map[MetricName][]UtilizationSample `json:"series"`
}

// Window is a half-open observation interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
