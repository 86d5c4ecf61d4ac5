package fleet

// Fleet represents a complete fleet profile loaded from YAML. A fleet is
// the unit the optimizer reasons about: one region, one auto-scaling group,
// a set of candidate instance types, and the thresholds that drive
// classification and scaling advice.
type Fleet struct {
	Name          string             `yaml:"name" validate:"required"`
	DisplayName   string             `yaml:"displayName" validate:"required"`
	Description   string             `yaml:"description"`
	Enabled       bool               `yaml:"enabled"`
	Region        string             `yaml:"region" validate:"required"`
	ProjectTag    TagConfig          `yaml:"projectTag" validate:"required"`
	AutoScaling   AutoScalingConfig  `yaml:"autoScaling" validate:"required"`
	InstanceTypes InstanceTypeConfig `yaml:"instanceTypes" validate:"required"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Thresholds    ThresholdConfig    `yaml:"thresholds"`
	CostAlerts    CostAlertConfig    `yaml:"costAlerts"`
	Windows       WindowConfig       `yaml:"windows"`
	Storage       StorageConfig      `yaml:"storage"`

	// OnDemandFallback is the static per-hour price table used when the
	// Pricing API is unavailable, keyed by instance type.
	OnDemandFallback map[string]float64 `yaml:"onDemandFallback"`
}

// TagConfig identifies project resources by tag
type TagConfig struct {
	Key   string `yaml:"key" validate:"required"`
	Value string `yaml:"value" validate:"required"`
}

// AutoScalingConfig names the fleet's auto-scaling group
type AutoScalingConfig struct {
	GroupName string `yaml:"groupName" validate:"required"`
	// MaxGroupCapacity caps max-capacity advisories, never the group itself
	MaxGroupCapacity int `yaml:"maxGroupCapacity" validate:"min=0"`
}

// InstanceTypeConfig defines the candidate instance types
type InstanceTypeConfig struct {
	Allowlist []string `yaml:"allowlist" validate:"required,min=1"`
	Default   string   `yaml:"default" validate:"required"`
}

// MetricsConfig defines where utilization signals live in CloudWatch
type MetricsConfig struct {
	GPUNamespace     string `yaml:"gpuNamespace"`
	GPUUtilMetric    string `yaml:"gpuUtilMetric"`
	GPUMemUtilMetric string `yaml:"gpuMemUtilMetric"`
	CPUNamespace     string `yaml:"cpuNamespace"`
	CPUUtilMetric    string `yaml:"cpuUtilMetric"`
	PeriodSeconds    int    `yaml:"periodSeconds" validate:"min=0"`
}

// ThresholdConfig defines the classification and scaling thresholds.
// Comparisons against these are strict inequalities.
type ThresholdConfig struct {
	TargetUtilization float64 `yaml:"targetUtilization" validate:"min=0,max=100"`
	LowUtilization    float64 `yaml:"lowUtilization" validate:"min=0,max=100"`
	IdleGPUUtil       float64 `yaml:"idleGpuUtil" validate:"min=0,max=100"`
	IdleGPUMemUtil    float64 `yaml:"idleGpuMemUtil" validate:"min=0,max=100"`
	IdleCPUUtil       float64 `yaml:"idleCpuUtil" validate:"min=0,max=100"`
	MaxSpotPrice      float64 `yaml:"maxSpotPrice" validate:"min=0"`
}

// CostAlertConfig defines spend alert thresholds in USD
type CostAlertConfig struct {
	DailyWarning    float64 `yaml:"dailyWarning" validate:"min=0"`
	DailyCritical   float64 `yaml:"dailyCritical" validate:"min=0"`
	MonthlyWarning  float64 `yaml:"monthlyWarning" validate:"min=0"`
	MonthlyCritical float64 `yaml:"monthlyCritical" validate:"min=0"`
}

// WindowConfig defines the lookback windows for each observer
type WindowConfig struct {
	PriceLookbackHours         int `yaml:"priceLookbackHours" validate:"min=0"`
	UtilizationLookbackMinutes int `yaml:"utilizationLookbackMinutes" validate:"min=0"`
	ActivityLookbackHours      int `yaml:"activityLookbackHours" validate:"min=0"`
}

// StorageConfig defines storage finding thresholds
type StorageConfig struct {
	OversizeGiB           int `yaml:"oversizeGiB" validate:"min=0"`
	SnapshotRetentionDays int `yaml:"snapshotRetentionDays" validate:"min=0"`
}

// ApplyDefaults fills zero-valued optional fields with the defaults the
// original automation used.
func (f *Fleet) ApplyDefaults() {
	if f.Metrics.GPUNamespace == "" {
		f.Metrics.GPUNamespace = "GPU/Monitoring"
	}
	if f.Metrics.GPUUtilMetric == "" {
		f.Metrics.GPUUtilMetric = "GPUUtilization"
	}
	if f.Metrics.GPUMemUtilMetric == "" {
		f.Metrics.GPUMemUtilMetric = "GPUMemoryUtilization"
	}
	if f.Metrics.CPUNamespace == "" {
		f.Metrics.CPUNamespace = "AWS/EC2"
	}
	if f.Metrics.CPUUtilMetric == "" {
		f.Metrics.CPUUtilMetric = "CPUUtilization"
	}
	if f.Metrics.PeriodSeconds == 0 {
		f.Metrics.PeriodSeconds = 300
	}
	if f.Thresholds.TargetUtilization == 0 {
		f.Thresholds.TargetUtilization = 70.0
	}
	if f.Thresholds.LowUtilization == 0 {
		f.Thresholds.LowUtilization = 20.0
	}
	if f.Thresholds.IdleGPUUtil == 0 {
		f.Thresholds.IdleGPUUtil = 5.0
	}
	if f.Thresholds.IdleGPUMemUtil == 0 {
		f.Thresholds.IdleGPUMemUtil = 10.0
	}
	if f.Thresholds.IdleCPUUtil == 0 {
		f.Thresholds.IdleCPUUtil = 10.0
	}
	if f.CostAlerts.DailyWarning == 0 {
		f.CostAlerts.DailyWarning = 50.0
	}
	if f.CostAlerts.DailyCritical == 0 {
		f.CostAlerts.DailyCritical = 100.0
	}
	if f.CostAlerts.MonthlyWarning == 0 {
		f.CostAlerts.MonthlyWarning = 1000.0
	}
	if f.CostAlerts.MonthlyCritical == 0 {
		f.CostAlerts.MonthlyCritical = 2000.0
	}
	if f.Windows.PriceLookbackHours == 0 {
		f.Windows.PriceLookbackHours = 24
	}
	if f.Windows.UtilizationLookbackMinutes == 0 {
		f.Windows.UtilizationLookbackMinutes = 120
	}
	if f.Windows.ActivityLookbackHours == 0 {
		f.Windows.ActivityLookbackHours = 24
	}
	if f.Storage.OversizeGiB == 0 {
		f.Storage.OversizeGiB = 100
	}
	if f.Storage.SnapshotRetentionDays == 0 {
		f.Storage.SnapshotRetentionDays = 7
	}
}
