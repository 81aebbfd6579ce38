package adsb

import (
	"math"
	"strings"

	"adsbtrack/internal/bits"
)

// Decode classifies frame by type code and decodes it. It returns false when
// the type code is not handled or the payload carries an invalid encoding.
func Decode(frame RawFrame) (Message, bool) {
	if frame.DF() != DownlinkFormatES {
		return nil, false
	}

	tc := frame.TypeCode()
	switch {
	case tc == TypeCodeAirborneVelocity:
		return decodeVelocity(frame)
	case tc >= TypeCodePositionBaroMin && tc <= TypeCodePositionBaroMax,
		tc >= TypeCodePositionGNSSMin && tc <= TypeCodePositionGNSSMax:
		return decodePosition(frame)
	case tc >= TypeCodeIdentificationMin && tc <= TypeCodeIdentificationMax:
		return decodeIdentification(frame)
	}
	return nil, false
}

// decodeIdentification reads eight 6-bit characters, most significant first.
// Trailing spaces are dropped; any unmapped character discards the message.
func decodeIdentification(frame RawFrame) (Message, bool) {
	payload := frame.Payload()

	var sb strings.Builder
	for i := callSignLength - 1; i >= 0; i-- {
		code := bits.ExtractUint(payload, i*callSignCharSize, callSignCharSize)
		c := IdentificationCharset[code]
		if c == '?' {
			return nil, false
		}
		sb.WriteByte(c)
	}
	callSign := strings.TrimRight(sb.String(), " ")

	ca := uint8(bits.ExtractUint(payload, emitterCategoryStart, emitterCategorySize))
	category := (14-frame.TypeCode())<<emitterCategorySize | ca

	return NewIdentification(frame.Timestamp(), frame.ICAO(), category, CallSign(callSign)), true
}

func decodePosition(frame RawFrame) (Message, bool) {
	payload := frame.Payload()

	altitude, ok := decodeAltitude(bits.ExtractUint(payload, altitudeStart, altitudeSize))
	if !ok {
		return nil, false
	}

	parity := uint8(bits.ExtractUint(payload, cprParityBit, 1))
	x := math.Ldexp(float64(bits.ExtractUint(payload, cprLonStart, cprFieldSize)), -cprFieldSize)
	y := math.Ldexp(float64(bits.ExtractUint(payload, cprLatStart, cprFieldSize)), -cprFieldSize)

	return NewAirbornePosition(frame.Timestamp(), frame.ICAO(), altitude, parity, x, y), true
}

// decodeAltitude converts the 12-bit altitude field to metres. The Q bit
// selects 25 ft increments; otherwise the field is Gillham (Gray) coded.
func decodeAltitude(field uint32) (float64, bool) {
	if bits.TestBit(uint64(field), altitudeQBit) {
		coded := (field>>(altitudeQBit+1))<<altitudeQBit | field&0xF
		feet := qAltitudeOffset + int(coded)*qAltitudeStep
		if feet <= 0 {
			return 0, true
		}
		return ConvertFrom(float64(feet), Foot), true
	}

	untangled := untangleGillham(field)
	coarse := grayDecode(untangled>>grayFineSize, grayCoarseSize)
	fine := grayDecode(untangled&(1<<grayFineSize-1), grayFineSize)

	switch fine {
	case 0, 5, 6:
		return 0, false
	case 7:
		fine = 5
	}
	if coarse%2 == 1 {
		fine = 6 - fine
	}

	feet := grayAltitudeOffset + int(fine)*grayFineStep + int(coarse)*grayCoarseStep
	return ConvertFrom(float64(feet), Foot), true
}

// gillhamGroups lists, for each 3-bit group of the untangled value (most
// significant first), the lowest field bit feeding it; each group reads every
// other bit downwards from that bit + 4.
var gillhamGroups = [grayGroupCount]int{0, 6, 1, 7}

// untangleGillham reorders the interleaved altitude field into a 9-bit coarse
// value followed by a 3-bit fine value, both still Gray coded.
func untangleGillham(field uint32) uint32 {
	var out uint32
	for _, base := range gillhamGroups {
		for i := 0; i < grayGroupSize; i++ {
			var bit uint32
			if bits.TestBit(uint64(field), 2*(grayGroupSize-1-i)+base) {
				bit = 1
			}
			out = out<<1 | bit
		}
	}
	return out
}

// grayDecode reverses the reflected binary code of a size-bit value
func grayDecode(coded uint32, size int) uint32 {
	var decoded uint32
	for i := 0; i < size; i++ {
		decoded ^= coded >> uint(i)
	}
	return decoded
}

func decodeVelocity(frame RawFrame) (Message, bool) {
	payload := frame.Payload()
	subtype := bits.ExtractUint(payload, velocitySubtypeStart, velocitySubtypeSize)
	field := uint64(bits.ExtractUint(payload, velocityFieldStart, velocityFieldSize))

	var speedKnots, direction float64
	switch subtype {
	case 1, 2:
		ns := int(bits.ExtractUint(field, northSouthStart, componentSize)) - 1
		ew := int(bits.ExtractUint(field, eastWestStart, componentSize)) - 1
		if ns < 0 || ew < 0 {
			return nil, false
		}

		vns, vew := float64(ns), float64(ew)
		if bits.TestBit(field, northSouthSignBit) {
			vns = -vns
		}
		if bits.TestBit(field, eastWestSignBit) {
			vew = -vew
		}

		speedKnots = math.Hypot(vns, vew)
		direction = math.Atan2(vew, vns)
		if direction < 0 {
			direction += Turn
		}

	case 3, 4:
		if !bits.TestBit(field, headingValidBit) {
			return nil, false
		}
		airspeed := int(bits.ExtractUint(field, airspeedStart, componentSize)) - 1
		if airspeed < 0 {
			return nil, false
		}

		speedKnots = float64(airspeed)
		heading := bits.ExtractUint(field, headingStart, componentSize)
		direction = ConvertFrom(math.Ldexp(float64(heading), -componentSize), Turn)

	default:
		return nil, false
	}

	// supersonic subtypes count in units of 4 knots
	if subtype == 2 || subtype == 4 {
		speedKnots *= 4
	}

	return NewAirborneVelocity(frame.Timestamp(), frame.ICAO(), ConvertFrom(speedKnots, Knot), direction), true
}
