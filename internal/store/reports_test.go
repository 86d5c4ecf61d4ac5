package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsanders-rh/costctl/internal/store"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// Integration tests run against a real PostgreSQL with the reports table
// migrated. Set TEST_DATABASE_URL to enable them.

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	s, err := store.NewStore(url)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func sampleReport(fleet string, generatedAt time.Time) *types.CostReport {
	return &types.CostReport{
		ID:          types.GenerateReportID(),
		GeneratedAt: generatedAt,
		Region:      "us-east-1",
		Fleet:       fleet,
		Recommendations: []types.Recommendation{
			{
				Kind:     types.RecommendationCostAlert,
				Priority: types.PriorityCritical,
				Message:  "monthly costs exceed the critical threshold",
			},
			{
				Kind:     types.RecommendationSpotSavings,
				Priority: types.PriorityMedium,
				Message:  "spot savings opportunity for g4dn.xlarge",
			},
		},
	}
}

func TestReportStore_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s := setupTestStore(t)
	ctx := context.Background()

	report := sampleReport("store-test", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, s.Reports.Create(ctx, report, "reports/2025-06-15/"+report.ID+".json"))

	retrieved, err := s.Reports.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, retrieved.ID)
	assert.Equal(t, report.Fleet, retrieved.Fleet)
	assert.Equal(t, report.Recommendations, retrieved.Recommendations)
}

func TestReportStore_GetByID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s := setupTestStore(t)

	_, err := s.Reports.GetByID(context.Background(), "rpt_doesnotexist")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReportStore_ListAndLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s := setupTestStore(t)
	ctx := context.Background()

	fleet := "store-test-list"
	now := time.Now().UTC().Truncate(time.Microsecond)

	older := sampleReport(fleet, now.Add(-2*time.Hour))
	newer := sampleReport(fleet, now)
	require.NoError(t, s.Reports.Create(ctx, older, ""))
	require.NoError(t, s.Reports.Create(ctx, newer, ""))

	summaries, err := s.Reports.List(ctx, fleet, 0, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(summaries), 2)
	assert.Equal(t, newer.ID, summaries[0].ID)
	assert.Equal(t, 2, summaries[0].RecommendationCount)
	assert.Equal(t, 1, summaries[0].CriticalCount)

	latest, err := s.Reports.Latest(ctx, fleet)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
}

func TestReportStore_PurgeOlderThan(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s := setupTestStore(t)
	ctx := context.Background()

	fleet := "store-test-purge"
	stale := sampleReport(fleet, time.Now().UTC().AddDate(0, 0, -90))
	require.NoError(t, s.Reports.Create(ctx, stale, ""))

	purged, err := s.Reports.PurgeOlderThan(ctx, time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, purged, int64(1))

	_, err = s.Reports.GetByID(ctx, stale.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
