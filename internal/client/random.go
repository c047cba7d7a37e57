package client

import (
	"context"
	"fmt"
	"math/rand"

	"agridata/internal/domain"
)

// rng wraps a seeded source so random picks are reproducible in tests.
type rng struct {
	r *rand.Rand
}

func newRNG(seed int64) *rng {
	return &rng{r: rand.New(rand.NewSource(seed))}
}

// intn returns a uniform index in [0, n).
func (g *rng) intn(n int) int {
	return g.r.Intn(n)
}

// PickRandomEntities picks a random item that has data available, then a
// random metric and region recorded for that item, and returns the trio as
// a series filter. Useful for exploring an unfamiliar data catalog.
func (c *Client) PickRandomEntities(ctx context.Context) (domain.SeriesFilter, error) {
	available, err := c.api.ListAvailable(ctx, domain.SeriesFilter{})
	if err != nil {
		return domain.SeriesFilter{}, err
	}
	if len(available) == 0 {
		return domain.SeriesFilter{}, fmt.Errorf("pick random entities: %w", ErrNoResults)
	}

	// Uniform over items first so prolific items do not dominate the pick.
	seen := make(map[int]bool)
	var itemIDs []int
	for _, s := range available {
		if !seen[s.ItemID] {
			seen[s.ItemID] = true
			itemIDs = append(itemIDs, s.ItemID)
		}
	}
	itemID := itemIDs[c.rng.intn(len(itemIDs))]

	var forItem []domain.Series
	for _, s := range available {
		if s.ItemID == itemID {
			forItem = append(forItem, s)
		}
	}
	picked := forItem[c.rng.intn(len(forItem))]

	if c.logger != nil {
		c.logger.Printf("picked random entities: item %d, metric %d, region %d",
			picked.ItemID, picked.MetricID, picked.RegionID)
	}
	return domain.SeriesFilter{
		ItemID:   &picked.ItemID,
		MetricID: &picked.MetricID,
		RegionID: &picked.RegionID,
	}, nil
}

// PickRandomDataSeries picks a uniform random series among those matching
// the filter, or ErrNoResults when nothing matches.
func (c *Client) PickRandomDataSeries(ctx context.Context, filter domain.SeriesFilter) (domain.Series, error) {
	matching, err := c.api.GetDataSeries(ctx, filter)
	if err != nil {
		return domain.Series{}, err
	}
	if len(matching) == 0 {
		return domain.Series{}, fmt.Errorf("pick random series for %s: %w", filter.String(), ErrNoResults)
	}
	return matching[c.rng.intn(len(matching))], nil
}
