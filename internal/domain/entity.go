package domain

// EntityType identifies a searchable dimension namespace on the remote API.
type EntityType string

const (
	EntityItems       EntityType = "items"
	EntityMetrics     EntityType = "metrics"
	EntityRegions     EntityType = "regions"
	EntitySources     EntityType = "sources"
	EntityUnits       EntityType = "units"
	EntityFrequencies EntityType = "frequencies"
)

// Region levels used by the region hierarchy endpoints.
const (
	RegionLevelWorld     = 1
	RegionLevelContinent = 2
	RegionLevelCountry   = 3
	RegionLevelProvince  = 4
	RegionLevelDistrict  = 5
)

// Entity is a named dimension value returned by free-text search or lookup.
// Entities are immutable once returned; callers own them for the duration
// of a resolution.
type Entity struct {
	ID         int
	Name       string
	Type       EntityType
	Level      int               // region level, 0 for non-regions
	Contains   []int             // child entity IDs, regions only
	Properties map[string]string // remaining lookup attributes
}
