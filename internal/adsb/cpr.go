package adsb

import (
	"fmt"
	"math"
)

// Latitude zone counts
const (
	cprEvenLatZones = 60
	cprOddLatZones  = 59
)

var cprZoneNumerator = 1 - math.Cos(Turn/cprEvenLatZones)

// MergeCPR combines an even (x0, y0) and an odd (x1, y1) normalised CPR
// position into a global position. mostRecent (0 even, 1 odd) selects which
// of the two reconstructed positions is returned. It returns false when the
// aircraft changed longitude zone between the two messages or the resulting
// latitude is out of range.
func MergeCPR(x0, y0, x1, y1 float64, mostRecent uint8) (GeoPosition, bool) {
	if mostRecent > 1 {
		panic(fmt.Sprintf("adsb: invalid most recent parity %d", mostRecent))
	}

	latZone := int(math.RoundToEven(y0*cprOddLatZones - y1*cprEvenLatZones))
	latEven := cprLatitude(y0, latZone, cprEvenLatZones)
	latOdd := cprLatitude(y1, latZone, cprOddLatZones)

	nlEven := cprLongitudeZones(latEven)
	nlOdd := cprLongitudeZones(latOdd)
	if nlEven != nlOdd {
		return GeoPosition{}, false
	}

	lonZonesEven := nlEven
	lonZonesOdd := nlOdd
	if lonZonesOdd > 1 {
		lonZonesOdd--
	}

	lonZone := int(math.RoundToEven(x0*float64(lonZonesOdd) - x1*float64(lonZonesEven)))

	var lat, lon float64
	if mostRecent == 0 {
		lat, lon = latEven, cprLongitude(x0, lonZone, lonZonesEven)
	} else {
		lat, lon = latOdd, cprLongitude(x1, lonZone, lonZonesOdd)
	}

	latT32 := turnsToT32(lat)
	if !ValidLatitudeT32(latT32) {
		return GeoPosition{}, false
	}
	return NewGeoPosition(turnsToT32(lon), latT32), true
}

// cprLatitude returns the latitude in turns, recentred into [-0.5, 0.5)
func cprLatitude(y float64, zone, zones int) float64 {
	return recentre((float64(cprModInt(zone, zones)) + y) / float64(zones))
}

// cprLongitude returns the longitude in turns. With a single zone the
// normalised value already is the longitude.
func cprLongitude(x float64, zone, zones int) float64 {
	if zones == 1 {
		return x
	}
	return recentre((float64(cprModInt(zone, zones)) + x) / float64(zones))
}

// cprLongitudeZones returns the number of even longitude zones at latitude
// (in turns). Near the poles the formula has no solution and one zone is used.
func cprLongitudeZones(latitude float64) int {
	cosLat := math.Cos(ConvertFrom(latitude, Turn))
	a := math.Acos(1 - cprZoneNumerator/(cosLat*cosLat))
	zones := math.Floor(Turn / a)
	if math.IsNaN(zones) {
		return 1
	}
	return int(zones)
}

// cprModInt performs always positive MOD operation (dump1090 style)
func cprModInt(a, b int) int {
	res := a % b
	if res < 0 {
		res += b
	}
	return res
}

func recentre(turns float64) float64 {
	if turns >= 0.5 {
		return turns - 1
	}
	return turns
}
