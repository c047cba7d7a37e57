package memory

import (
	"context"
	"sort"
	"sync"

	"agridata/internal/domain"
	"agridata/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Series // keyed by identity key
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{
		data: make(map[string]*domain.Series),
	}
}

// Insert adds a new series. Returns ErrDuplicateKey if its identity key exists.
func (s *SeriesStore) Insert(_ context.Context, series *domain.Series) error {
	if series == nil || series.ItemID == 0 || series.MetricID == 0 {
		return storage.ErrInvalidInput
	}

	key := series.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *series
	s.data[key] = &copy
	return nil
}

// GetByKey retrieves a series by its identity key. Returns ErrNotFound if not exists.
func (s *SeriesStore) GetByKey(_ context.Context, key string) (*domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *series
	return &copy, nil
}

// List retrieves all stored series, ordered by identity key.
func (s *SeriesStore) List(_ context.Context) ([]*domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Series, 0, len(s.data))
	for _, series := range s.data {
		copy := *series
		result = append(result, &copy)
	}

	sortByKey(result)
	return result, nil
}

// GetBySource retrieves all series published by a source, ordered by identity key.
func (s *SeriesStore) GetBySource(_ context.Context, sourceID int) ([]*domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Series
	for _, series := range s.data {
		if series.SourceID == sourceID {
			copy := *series
			result = append(result, &copy)
		}
	}

	sortByKey(result)
	return result, nil
}

func sortByKey(series []*domain.Series) {
	sort.Slice(series, func(i, j int) bool {
		return series[i].Key() < series[j].Key()
	})
}

var _ storage.SeriesStore = (*SeriesStore)(nil)
