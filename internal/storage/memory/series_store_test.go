package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"agridata/internal/domain"
	"agridata/internal/storage"
)

func testSeries(item, metric, region, source int) *domain.Series {
	return &domain.Series{
		ItemID:      item,
		MetricID:    metric,
		RegionID:    region,
		FrequencyID: 9,
		SourceID:    source,
		StartDate:   time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSeriesStore_InsertAndGet(t *testing.T) {
	store := NewSeriesStore()
	ctx := context.Background()

	series := testSeries(274, 860032, 1215, 2)
	series.ItemName = "Corn"

	if err := store.Insert(ctx, series); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByKey(ctx, series.Key())
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}

	if result.ItemName != "Corn" {
		t.Errorf("ItemName mismatch: got %q, want %q", result.ItemName, "Corn")
	}
	if !result.StartDate.Equal(series.StartDate) {
		t.Errorf("StartDate mismatch: got %v, want %v", result.StartDate, series.StartDate)
	}
}

func TestSeriesStore_NotFound(t *testing.T) {
	store := NewSeriesStore()

	_, err := store.GetByKey(context.Background(), "1:2:3:0:4:5")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSeriesStore_DuplicateKey(t *testing.T) {
	store := NewSeriesStore()
	ctx := context.Background()

	series := testSeries(274, 860032, 1215, 2)

	if err := store.Insert(ctx, series); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, series)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSeriesStore_InvalidInput(t *testing.T) {
	store := NewSeriesStore()

	err := store.Insert(context.Background(), &domain.Series{})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSeriesStore_GetBySource(t *testing.T) {
	store := NewSeriesStore()
	ctx := context.Background()

	for _, s := range []*domain.Series{
		testSeries(274, 860032, 1215, 2),
		testSeries(274, 860032, 1107, 2),
		testSeries(274, 860032, 1215, 14),
	} {
		if err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetBySource(ctx, 2)
	if err != nil {
		t.Fatalf("GetBySource failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 series for source 2, got %d", len(result))
	}
}

func TestSeriesStore_ListOrdered(t *testing.T) {
	store := NewSeriesStore()
	ctx := context.Background()

	for _, s := range []*domain.Series{
		testSeries(500, 1, 10, 2),
		testSeries(100, 1, 10, 2),
		testSeries(300, 1, 10, 2),
	} {
		if err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 series, got %d", len(result))
	}
	for i := 1; i < len(result); i++ {
		if result[i].Key() < result[i-1].Key() {
			t.Errorf("Results not ordered: %s < %s", result[i].Key(), result[i-1].Key())
		}
	}
}

func TestSeriesStore_InsertCopies(t *testing.T) {
	store := NewSeriesStore()
	ctx := context.Background()

	series := testSeries(274, 860032, 1215, 2)
	if err := store.Insert(ctx, series); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's struct must not affect the stored copy
	series.ItemName = "mutated"

	result, _ := store.GetByKey(ctx, series.Key())
	if result.ItemName != "" {
		t.Errorf("Stored series shares memory with caller: got %q", result.ItemName)
	}
}
