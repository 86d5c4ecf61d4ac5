// Package storage surfaces EBS and snapshot cost findings. Findings are
// advisory only; nothing here deletes or modifies a resource.
package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// VolumeAPI is the slice of the EC2 API the analyzer needs
type VolumeAPI interface {
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
}

// Analyzer scans EBS volumes and snapshots for cost findings
type Analyzer struct {
	ec2   VolumeAPI
	fleet *fleet.Fleet
}

// NewAnalyzer creates a new storage analyzer
func NewAnalyzer(api VolumeAPI, f *fleet.Fleet) *Analyzer {
	return &Analyzer{
		ec2:   api,
		fleet: f,
	}
}

// Analyze returns storage findings for the fleet's tagged volumes and the
// account's stale snapshots. now anchors the snapshot retention cutoff.
func (a *Analyzer) Analyze(ctx context.Context, now time.Time) ([]types.StorageFinding, error) {
	findings := []types.StorageFinding{}

	volumeFindings, err := a.analyzeVolumes(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, volumeFindings...)

	snapshotFindings, err := a.analyzeSnapshots(ctx, now)
	if err != nil {
		return nil, err
	}
	findings = append(findings, snapshotFindings...)

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Kind != findings[j].Kind {
			return findings[i].Kind < findings[j].Kind
		}
		return findings[i].ResourceID < findings[j].ResourceID
	})

	return findings, nil
}

func (a *Analyzer) analyzeVolumes(ctx context.Context) ([]types.StorageFinding, error) {
	out, err := a.ec2.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("tag:" + a.fleet.ProjectTag.Key), Values: []string{a.fleet.ProjectTag.Value}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describe volumes: %w", err)
	}

	findings := []types.StorageFinding{}

	for _, volume := range out.Volumes {
		id := aws.ToString(volume.VolumeId)
		size := int(aws.ToInt32(volume.Size))

		if volume.VolumeType == ec2types.VolumeTypeGp2 {
			findings = append(findings, types.StorageFinding{
				Kind:       types.FindingGP2Migration,
				ResourceID: id,
				SizeGiB:    size,
				Detail:     "gp2 volume: migrating to gp3 reduces per-GiB cost",
			})
		}

		if size > a.fleet.Storage.OversizeGiB {
			findings = append(findings, types.StorageFinding{
				Kind:       types.FindingOversizedVolume,
				ResourceID: id,
				SizeGiB:    size,
				Detail:     fmt.Sprintf("volume is %d GiB, above the %d GiB review threshold", size, a.fleet.Storage.OversizeGiB),
			})
		}

		if volume.State == ec2types.VolumeStateAvailable {
			findings = append(findings, types.StorageFinding{
				Kind:       types.FindingUnattachedVolume,
				ResourceID: id,
				SizeGiB:    size,
				Detail:     "volume is unattached and still billing",
			})
		}
	}

	return findings, nil
}

func (a *Analyzer) analyzeSnapshots(ctx context.Context, now time.Time) ([]types.StorageFinding, error) {
	out, err := a.ec2.DescribeSnapshots(ctx, &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
	})
	if err != nil {
		return nil, fmt.Errorf("describe snapshots: %w", err)
	}

	cutoff := now.AddDate(0, 0, -a.fleet.Storage.SnapshotRetentionDays)
	findings := []types.StorageFinding{}

	for _, snapshot := range out.Snapshots {
		started := aws.ToTime(snapshot.StartTime)
		if !started.Before(cutoff) {
			continue
		}

		findings = append(findings, types.StorageFinding{
			Kind:       types.FindingStaleSnapshot,
			ResourceID: aws.ToString(snapshot.SnapshotId),
			SizeGiB:    int(aws.ToInt32(snapshot.VolumeSize)),
			CreatedAt:  started,
			Detail:     fmt.Sprintf("snapshot is older than the %d day retention window", a.fleet.Storage.SnapshotRetentionDays),
		})
	}

	return findings, nil
}
