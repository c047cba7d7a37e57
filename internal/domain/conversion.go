package domain

// ConversionFactor relates a unit to the implicit base unit shared by
// convertible units of the same kind. A zero Factor marks the unit as
// non-convertible.
type ConversionFactor struct {
	Factor float64
	Offset float64
}

// Convertible reports whether the factor defines a usable conversion.
func (c ConversionFactor) Convertible() bool {
	return c.Factor != 0
}
