package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// ReportStore handles cost report database operations. The full report is
// persisted as a JSONB document alongside the columns the listing and
// retention queries need.
type ReportStore struct {
	pool *pgxpool.Pool
}

// Create inserts a new report record
func (s *ReportStore) Create(ctx context.Context, report *types.CostReport, archiveKey string) error {
	document, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report document: %w", err)
	}

	query := `
		INSERT INTO reports (
			id, fleet, region, generated_at, recommendation_count,
			critical_count, archive_key, document
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err = s.pool.Exec(ctx, query,
		report.ID,
		report.Fleet,
		report.Region,
		report.GeneratedAt,
		len(report.Recommendations),
		len(report.CriticalRecommendations()),
		archiveKey,
		document,
	)

	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	return nil
}

// GetByID retrieves a report document by ID
func (s *ReportStore) GetByID(ctx context.Context, id string) (*types.CostReport, error) {
	query := `
		SELECT document
		FROM reports
		WHERE id = $1
	`

	var document []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&document)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}

	var report types.CostReport
	if err := json.Unmarshal(document, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report document: %w", err)
	}

	return &report, nil
}

// Latest retrieves the most recently generated report for a fleet
func (s *ReportStore) Latest(ctx context.Context, fleet string) (*types.CostReport, error) {
	query := `
		SELECT document
		FROM reports
		WHERE fleet = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var document []byte
	err := s.pool.QueryRow(ctx, query, fleet).Scan(&document)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest report: %w", err)
	}

	var report types.CostReport
	if err := json.Unmarshal(document, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report document: %w", err)
	}

	return &report, nil
}

// List retrieves report summaries for a fleet, newest first
func (s *ReportStore) List(ctx context.Context, fleet string, offset, limit int) ([]*types.ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, fleet, region, generated_at, recommendation_count,
			critical_count, archive_key
		FROM reports
		WHERE fleet = $1
		ORDER BY generated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, fleet, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	summaries := []*types.ReportSummary{}
	for rows.Next() {
		var summary types.ReportSummary
		err := rows.Scan(
			&summary.ID,
			&summary.Fleet,
			&summary.Region,
			&summary.GeneratedAt,
			&summary.RecommendationCount,
			&summary.CriticalCount,
			&summary.ArchiveKey,
		)
		if err != nil {
			return nil, fmt.Errorf("scan report summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report summaries: %w", err)
	}

	return summaries, nil
}

// Count returns the number of persisted reports for a fleet
func (s *ReportStore) Count(ctx context.Context, fleet string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reports
		WHERE fleet = $1
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, fleet).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}

	return count, nil
}

// PurgeOlderThan deletes reports generated before the cutoff and returns
// the number removed
func (s *ReportStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM reports
		WHERE generated_at < $1
	`

	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reports: %w", err)
	}

	return tag.RowsAffected(), nil
}
