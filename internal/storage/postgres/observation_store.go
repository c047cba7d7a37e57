package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"agridata/internal/domain"
	"agridata/internal/storage"
)

// ObservationStore implements storage.ObservationStore using PostgreSQL.
type ObservationStore struct {
	pool *Pool
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(pool *Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

const observationColumns = `
	item_id, metric_id, region_id, partner_region_id, frequency_id, source_id,
	reporting_date, start_date, end_date, value, unit_id
`

const insertObservationQuery = `
	INSERT INTO observations (` + observationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// InsertBulk adds multiple observations atomically. Fails entire batch on any
// duplicate identity.
func (s *ObservationStore) InsertBulk(ctx context.Context, points []*domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range points {
		if p == nil || p.ItemID == 0 || p.MetricID == 0 {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertObservationQuery,
			p.ItemID,
			p.MetricID,
			p.RegionID,
			p.PartnerRegionID,
			p.FrequencyID,
			p.SourceID,
			p.ReportingDate,
			p.StartDate,
			p.EndDate,
			p.Value,
			p.UnitID,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert observation in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

const seriesPredicate = `
	item_id = $1 AND metric_id = $2 AND region_id = $3
	AND partner_region_id = $4 AND frequency_id = $5 AND source_id = $6
`

// GetBySeries retrieves all observations of a series, ordered by start date ASC.
func (s *ObservationStore) GetBySeries(ctx context.Context, series domain.Series) ([]*domain.Point, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE ` + seriesPredicate + `
		ORDER BY start_date ASC, end_date ASC
	`

	rows, err := s.pool.Query(ctx, query,
		series.ItemID, series.MetricID, series.RegionID,
		series.PartnerRegionID, series.FrequencyID, series.SourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("get observations by series: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByTimeRange retrieves a series' observations with start date within
// [start, end] (inclusive), ordered by start date ASC.
func (s *ObservationStore) GetByTimeRange(ctx context.Context, series domain.Series, start, end time.Time) ([]*domain.Point, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE ` + seriesPredicate + `
		AND start_date >= $7 AND start_date <= $8
		ORDER BY start_date ASC, end_date ASC
	`

	rows, err := s.pool.Query(ctx, query,
		series.ItemID, series.MetricID, series.RegionID,
		series.PartnerRegionID, series.FrequencyID, series.SourceID,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("get observations by time range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// scanObservations scans multiple rows into a slice of Point.
func scanObservations(rows pgx.Rows) ([]*domain.Point, error) {
	var points []*domain.Point

	for rows.Next() {
		var p domain.Point

		err := rows.Scan(
			&p.ItemID,
			&p.MetricID,
			&p.RegionID,
			&p.PartnerRegionID,
			&p.FrequencyID,
			&p.SourceID,
			&p.ReportingDate,
			&p.StartDate,
			&p.EndDate,
			&p.Value,
			&p.UnitID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return points, nil
}
