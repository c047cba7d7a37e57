package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agridata/internal/domain"
	"agridata/internal/storage"
	"agridata/internal/storage/postgres"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func testPoint(series domain.Series, start time.Time, value float64) *domain.Point {
	return &domain.Point{
		ItemID:          series.ItemID,
		MetricID:        series.MetricID,
		RegionID:        series.RegionID,
		PartnerRegionID: series.PartnerRegionID,
		FrequencyID:     series.FrequencyID,
		SourceID:        series.SourceID,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 6),
		Value:           ptr(value),
		UnitID:          14,
	}
}

func TestObservationStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewObservationStore(pool)
	ctx := context.Background()
	series := domain.Series{ItemID: 274, MetricID: 860032, RegionID: 1215, FrequencyID: 9, SourceID: 2}

	points := []*domain.Point{
		testPoint(series, day(2020, 1, 1), 1000),
		testPoint(series, day(2020, 1, 8), 1100),
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetBySeries(ctx, series)
	require.NoError(t, err)
	require.Len(t, got, 2)
	gotVal, _ := got[0].Float()
	assert.Equal(t, 1000.0, gotVal)
	assert.True(t, got[0].StartDate.Equal(day(2020, 1, 1)))
}

func TestObservationStore_DuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewObservationStore(pool)
	ctx := context.Background()
	series := domain.Series{ItemID: 274, MetricID: 860032, RegionID: 1215, FrequencyID: 9, SourceID: 2}

	require.NoError(t, store.InsertBulk(ctx, []*domain.Point{testPoint(series, day(2020, 1, 1), 1000)}))

	// Batch with one new and one duplicate point must insert nothing
	err := store.InsertBulk(ctx, []*domain.Point{
		testPoint(series, day(2020, 1, 8), 1100),
		testPoint(series, day(2020, 1, 1), 9999),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetBySeries(ctx, series)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestObservationStore_NullReportingDatesCollide(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewObservationStore(pool)
	ctx := context.Background()
	series := domain.Series{ItemID: 274, MetricID: 860032, RegionID: 1215, FrequencyID: 9, SourceID: 2}

	// Two points identical except value, both without a reporting date, must
	// still count as duplicates despite SQL NULL semantics.
	require.NoError(t, store.InsertBulk(ctx, []*domain.Point{testPoint(series, day(2020, 1, 1), 1000)}))

	err := store.InsertBulk(ctx, []*domain.Point{testPoint(series, day(2020, 1, 1), 2000)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestObservationStore_RevisionsCoexist(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewObservationStore(pool)
	ctx := context.Background()
	series := domain.Series{ItemID: 274, MetricID: 860032, RegionID: 1215, FrequencyID: 9, SourceID: 2}

	p1 := testPoint(series, day(2020, 1, 1), 1000)
	p1.ReportingDate = ptr(day(2020, 2, 1))
	p2 := testPoint(series, day(2020, 1, 1), 1050)
	p2.ReportingDate = ptr(day(2020, 3, 1))
	require.NoError(t, store.InsertBulk(ctx, []*domain.Point{p1, p2}))

	got, err := store.GetBySeries(ctx, series)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestObservationStore_NilValueRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewObservationStore(pool)
	ctx := context.Background()
	series := domain.Series{ItemID: 274, MetricID: 860032, RegionID: 1215, FrequencyID: 9, SourceID: 2}

	p := testPoint(series, day(2020, 1, 1), 0)
	p.Value = nil
	require.NoError(t, store.InsertBulk(ctx, []*domain.Point{p}))

	got, err := store.GetBySeries(ctx, series)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Value)
}

func TestObservationStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewObservationStore(pool)
	ctx := context.Background()
	series := domain.Series{ItemID: 274, MetricID: 860032, RegionID: 1215, FrequencyID: 9, SourceID: 2}
	other := domain.Series{ItemID: 270, MetricID: 860032, RegionID: 1215, FrequencyID: 9, SourceID: 2}

	require.NoError(t, store.InsertBulk(ctx, []*domain.Point{
		testPoint(series, day(2020, 1, 1), 1000),
		testPoint(series, day(2020, 2, 1), 1100),
		testPoint(series, day(2020, 3, 1), 1200),
		testPoint(other, day(2020, 2, 15), 500),
	}))

	got, err := store.GetByTimeRange(ctx, series, day(2020, 1, 15), day(2020, 2, 15))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].StartDate.Equal(day(2020, 2, 1)))
}
