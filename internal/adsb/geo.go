package adsb

import (
	"fmt"
	"math"
)

const maxLatitudeT32 = 1 << 30

// GeoPosition is a point on Earth in T32 units, where a full turn is 2^32.
type GeoPosition struct {
	LongitudeT32 int32
	LatitudeT32  int32
}

// NewGeoPosition panics if the latitude lies outside [-90°, 90°]
func NewGeoPosition(longitudeT32, latitudeT32 int32) GeoPosition {
	if !ValidLatitudeT32(latitudeT32) {
		panic(fmt.Sprintf("adsb: latitude %d outside ±2^30", latitudeT32))
	}
	return GeoPosition{LongitudeT32: longitudeT32, LatitudeT32: latitudeT32}
}

// ValidLatitudeT32 reports whether latitudeT32 lies within [-2^30, 2^30]
func ValidLatitudeT32(latitudeT32 int32) bool {
	return -maxLatitudeT32 <= latitudeT32 && latitudeT32 <= maxLatitudeT32
}

// Longitude returns the longitude in radians
func (p GeoPosition) Longitude() float64 {
	return ConvertFrom(float64(p.LongitudeT32), T32)
}

// Latitude returns the latitude in radians
func (p GeoPosition) Latitude() float64 {
	return ConvertFrom(float64(p.LatitudeT32), T32)
}

// LongitudeDeg returns the longitude in degrees
func (p GeoPosition) LongitudeDeg() float64 {
	return Convert(float64(p.LongitudeT32), T32, Degree)
}

// LatitudeDeg returns the latitude in degrees
func (p GeoPosition) LatitudeDeg() float64 {
	return Convert(float64(p.LatitudeT32), T32, Degree)
}

func (p GeoPosition) String() string {
	return fmt.Sprintf("(%.6f°, %.6f°)", p.LongitudeDeg(), p.LatitudeDeg())
}

// turnsToT32 rounds an angle expressed in turns to T32 units. Values in
// [-0.5, 0.5] turns wrap into the int32 range.
func turnsToT32(turns float64) int32 {
	return int32(int64(math.RoundToEven(Convert(turns, Turn, T32))))
}
