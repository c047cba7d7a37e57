package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"agridata/internal/api/stub"
	"agridata/internal/domain"
)

func intp(v int) *int { return &v }

func TestResolve_SweepsAllCombinations(t *testing.T) {
	api := &stub.Client{
		Series: []domain.Series{
			{ItemID: 274, MetricID: 100, RegionID: 10, FrequencyID: 9, SourceID: 2},
			{ItemID: 274, MetricID: 100, RegionID: 10, FrequencyID: 1, SourceID: 3},
			{ItemID: 500, MetricID: 100, RegionID: 10, FrequencyID: 9, SourceID: 2},
		},
	}
	r := NewResolver(api, nil)

	combinations := []domain.SeriesFilter{
		{ItemID: intp(274), MetricID: intp(100)},
		{ItemID: intp(500), MetricID: intp(100)},
	}
	report := r.Resolve(context.Background(), combinations, time.Time{}, time.Time{})

	if len(report.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(report.Results))
	}
	if report.Failed() != 0 {
		t.Errorf("Expected no failures, got %d", report.Failed())
	}
	all := report.Series()
	if len(all) != 3 {
		t.Fatalf("Expected 3 series across the sweep, got %d", len(all))
	}
}

func TestResolve_PartialFailureContinues(t *testing.T) {
	lookupErr := errors.New("backend timeout")
	api := &stub.Client{
		Series: []domain.Series{
			{ItemID: 274, MetricID: 100, RegionID: 10, FrequencyID: 9, SourceID: 2},
			{ItemID: 500, MetricID: 100, RegionID: 10, FrequencyID: 9, SourceID: 2},
		},
		SeriesErr:       lookupErr,
		SeriesErrFilter: "item_id=274",
	}
	r := NewResolver(api, nil)

	combinations := []domain.SeriesFilter{
		{ItemID: intp(274)},
		{ItemID: intp(500)},
	}
	report := r.Resolve(context.Background(), combinations, time.Time{}, time.Time{})

	if report.Failed() != 1 {
		t.Fatalf("Expected 1 failed combination, got %d", report.Failed())
	}
	if !errors.Is(report.Results[0].Err, lookupErr) {
		t.Errorf("Failed combination must carry its error, got %v", report.Results[0].Err)
	}
	all := report.Series()
	if len(all) != 1 || all[0].ItemID != 500 {
		t.Fatalf("Surviving combination's series missing: %v", all)
	}
}

func TestResolve_StampsQueryDates(t *testing.T) {
	api := &stub.Client{
		Series: []domain.Series{
			{ItemID: 274, MetricID: 100, SourceID: 2,
				StartDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	r := NewResolver(api, nil)

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	report := r.Resolve(context.Background(), []domain.SeriesFilter{{ItemID: intp(274)}}, start, end)

	all := report.Series()
	if len(all) != 1 {
		t.Fatalf("Expected 1 series, got %d", len(all))
	}
	if !all[0].StartDate.Equal(start) || !all[0].EndDate.Equal(end) {
		t.Errorf("Requested range not stamped: got %v..%v", all[0].StartDate, all[0].EndDate)
	}
}

func TestResolve_ZeroDatesLeaveBoundsAlone(t *testing.T) {
	origStart := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &stub.Client{
		Series: []domain.Series{
			{ItemID: 274, MetricID: 100, SourceID: 2, StartDate: origStart},
		},
	}
	r := NewResolver(api, nil)

	report := r.Resolve(context.Background(), []domain.SeriesFilter{{ItemID: intp(274)}}, time.Time{}, time.Time{})

	all := report.Series()
	if !all[0].StartDate.Equal(origStart) {
		t.Errorf("Series bounds must survive an undated query: got %v", all[0].StartDate)
	}
	if !all[0].EndDate.IsZero() {
		t.Errorf("Unset end bound must stay zero: got %v", all[0].EndDate)
	}
}
