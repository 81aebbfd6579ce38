package adsb

import "math"

// Unit factors relative to the SI base unit (metre, radian, metre per second)
const (
	Meter        = 1.0
	Foot         = 0.3048 * Meter
	NauticalMile = 1852 * Meter
	Knot         = NauticalMile / 3600

	Radian = 1.0
	Turn   = 2 * math.Pi * Radian
	Degree = Turn / 360
	T32    = Turn / (1 << 32)
)

// Convert expresses value, given in fromUnit, in toUnit
func Convert(value, fromUnit, toUnit float64) float64 {
	return value * (fromUnit / toUnit)
}

// ConvertFrom expresses value, given in fromUnit, in the base unit
func ConvertFrom(value, fromUnit float64) float64 {
	return value * fromUnit
}

// ConvertTo expresses value, given in the base unit, in toUnit
func ConvertTo(value, toUnit float64) float64 {
	return value / toUnit
}
