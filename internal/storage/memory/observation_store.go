package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"agridata/internal/domain"
	"agridata/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Point // keyed by observation identity
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[string]*domain.Point),
	}
}

// observationKey renders an observation's identity: the six owning-series IDs
// plus the three dates. A nil reporting date keys as empty.
func observationKey(p *domain.Point) string {
	reporting := ""
	if p.ReportingDate != nil {
		reporting = p.ReportingDate.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%d|%d|%d|%d|%d|%d|%s|%s|%s",
		p.ItemID, p.MetricID, p.RegionID, p.PartnerRegionID, p.FrequencyID, p.SourceID,
		reporting,
		p.StartDate.UTC().Format(time.RFC3339),
		p.EndDate.UTC().Format(time.RFC3339),
	)
}

// InsertBulk adds multiple observations atomically. Fails entire batch on any
// duplicate identity.
func (s *ObservationStore) InsertBulk(_ context.Context, points []*domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.ItemID == 0 || p.MetricID == 0 {
			return storage.ErrInvalidInput
		}
		key := observationKey(p)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		copy := clonePoint(p)
		s.data[observationKey(p)] = copy
	}

	return nil
}

// GetBySeries retrieves all observations of a series, ordered by start date ASC.
func (s *ObservationStore) GetBySeries(_ context.Context, series domain.Series) ([]*domain.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Point
	for _, p := range s.data {
		if belongsTo(p, series) {
			result = append(result, clonePoint(p))
		}
	}

	sortByStartDate(result)
	return result, nil
}

// GetByTimeRange retrieves a series' observations with start date within
// [start, end] (inclusive), ordered by start date ASC.
func (s *ObservationStore) GetByTimeRange(_ context.Context, series domain.Series, start, end time.Time) ([]*domain.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Point
	for _, p := range s.data {
		if belongsTo(p, series) && !p.StartDate.Before(start) && !p.StartDate.After(end) {
			result = append(result, clonePoint(p))
		}
	}

	sortByStartDate(result)
	return result, nil
}

// belongsTo reports whether a point carries the series' six identity IDs.
func belongsTo(p *domain.Point, series domain.Series) bool {
	return p.ItemID == series.ItemID &&
		p.MetricID == series.MetricID &&
		p.RegionID == series.RegionID &&
		p.PartnerRegionID == series.PartnerRegionID &&
		p.FrequencyID == series.FrequencyID &&
		p.SourceID == series.SourceID
}

// clonePoint deep-copies a point, including its pointer fields.
func clonePoint(p *domain.Point) *domain.Point {
	copy := *p
	if p.Value != nil {
		v := *p.Value
		copy.Value = &v
	}
	if p.ReportingDate != nil {
		d := *p.ReportingDate
		copy.ReportingDate = &d
	}
	return &copy
}

func sortByStartDate(points []*domain.Point) {
	sort.Slice(points, func(i, j int) bool {
		if !points[i].StartDate.Equal(points[j].StartDate) {
			return points[i].StartDate.Before(points[j].StartDate)
		}
		return points[i].EndDate.Before(points[j].EndDate)
	})
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
