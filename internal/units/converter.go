// Package units rewrites observation values between convertible units via
// their shared base unit.
package units

import (
	"context"
	"fmt"
	"sync"

	"agridata/internal/domain"
	"agridata/internal/observability"
)

// FactorLookup resolves a unit's base conversion factor. Units without a
// defined conversion return a zero Factor.
type FactorLookup interface {
	LookupConversionFactor(ctx context.Context, unitID int) (domain.ConversionFactor, error)
}

// NotConvertibleError marks a unit that has no defined base conversion
// factor. It is always surfaced: substituting an unconverted value under a
// relabeled unit would silently corrupt data.
type NotConvertibleError struct {
	UnitID int
}

func (e *NotConvertibleError) Error() string {
	return fmt.Sprintf("unit %d is not convertible", e.UnitID)
}

// Converter converts observations into a target unit. Factors are cached
// per unit in front of the lookup. Convert calls share no mutable
// observation state, so a batch may be converted point by point.
type Converter struct {
	lookup FactorLookup

	mu    sync.RWMutex
	cache map[int]domain.ConversionFactor
}

// NewConverter creates a Converter backed by the given factor lookup.
func NewConverter(lookup FactorLookup) *Converter {
	return &Converter{
		lookup: lookup,
		cache:  make(map[int]domain.ConversionFactor),
	}
}

// Convert returns a copy of the point expressed in the target unit.
//
// The identity cases return the point unchanged: a zero unit ID (unitless
// observation) or a unit already equal to the target. Otherwise both units'
// factors are resolved and the value is routed through the shared base unit:
//
//	base = value*from.Factor + from.Offset
//	out  = (base - to.Offset) / to.Factor
//
// Factors are defined relative to the base, not pairwise, so the two-hop
// arithmetic is exact. A nil value is passed through with only the unit
// relabeled. Either side lacking a factor fails with NotConvertibleError.
func (c *Converter) Convert(ctx context.Context, point domain.Point, targetUnitID int) (domain.Point, error) {
	if point.UnitID == 0 || point.UnitID == targetUnitID {
		return point, nil
	}

	from, err := c.factor(ctx, point.UnitID)
	if err != nil {
		return domain.Point{}, err
	}
	if !from.Convertible() {
		observability.RecordNotConvertible()
		return domain.Point{}, &NotConvertibleError{UnitID: point.UnitID}
	}

	to, err := c.factor(ctx, targetUnitID)
	if err != nil {
		return domain.Point{}, err
	}
	if !to.Convertible() {
		observability.RecordNotConvertible()
		return domain.Point{}, &NotConvertibleError{UnitID: targetUnitID}
	}

	out := point
	if point.Value != nil {
		base := *point.Value*from.Factor + from.Offset
		converted := (base - to.Offset) / to.Factor
		out.Value = &converted
	}
	out.UnitID = targetUnitID
	observability.RecordConversion()
	return out, nil
}

// ConvertAll converts a batch of points into the target unit, failing on the
// first non-convertible point.
func (c *Converter) ConvertAll(ctx context.Context, points []domain.Point, targetUnitID int) ([]domain.Point, error) {
	out := make([]domain.Point, len(points))
	for i, p := range points {
		converted, err := c.Convert(ctx, p, targetUnitID)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

// factor resolves a unit's conversion factor through the cache.
func (c *Converter) factor(ctx context.Context, unitID int) (domain.ConversionFactor, error) {
	c.mu.RLock()
	cached, ok := c.cache[unitID]
	c.mu.RUnlock()
	if ok {
		observability.DefaultMetrics.FactorCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	observability.DefaultMetrics.FactorCacheLookups.WithLabelValues("miss").Inc()

	factor, err := c.lookup.LookupConversionFactor(ctx, unitID)
	if err != nil {
		return domain.ConversionFactor{}, fmt.Errorf("lookup conversion factor for unit %d: %w", unitID, err)
	}

	c.mu.Lock()
	c.cache[unitID] = factor
	c.mu.Unlock()
	return factor, nil
}
