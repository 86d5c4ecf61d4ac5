package types

import "time"

// StorageFindingKind classifies an EBS/snapshot cost finding.
type StorageFindingKind string

const (
	FindingGP2Migration     StorageFindingKind = "gp2_migration"
	FindingOversizedVolume  StorageFindingKind = "oversized_volume"
	FindingUnattachedVolume StorageFindingKind = "unattached_volume"
	FindingStaleSnapshot    StorageFindingKind = "stale_snapshot"
)

// StorageFinding is an advisory storage cost observation. Findings never
// trigger deletions.
type StorageFinding struct {
	Kind       StorageFindingKind `json:"kind"`
	ResourceID string             `json:"resource_id"`
	SizeGiB    int                `json:"size_gib,omitempty"`
	CreatedAt  time.Time          `json:"created_at,omitempty"`
	Detail     string             `json:"detail"`
}
