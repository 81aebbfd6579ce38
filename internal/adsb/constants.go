package adsb

// Identification character set. Codes that do not map to a letter, a digit
// or a space decode to '?'.
const IdentificationCharset = "?ABCDEFGHIJKLMNOPQRSTUVWXYZ????? ???????????????0123456789??????"

// Frame layout
const (
	FrameLength = 14 // Mode S extended squitter, 112 bits

	DownlinkFormatES = 17 // ADS-B extended squitter

	capabilitySize     = 3
	downlinkFormatSize = 5
	addressStartByte   = 1
	payloadStartByte   = 4
	payloadEndByte     = 11 // exclusive
)

// ME field layout (bit 0 = least significant bit of the 56-bit payload)
const (
	typeCodeStart = 51
	typeCodeSize  = 5

	// identification
	emitterCategoryStart = 48
	emitterCategorySize  = 3
	callSignLength       = 8
	callSignCharSize     = 6

	// airborne position
	cprLonStart    = 0
	cprLatStart    = 17
	cprFieldSize   = 17
	cprParityBit   = 34
	altitudeStart  = 36
	altitudeSize   = 12
	altitudeQBit   = 4
	grayFineSize   = 3
	grayCoarseSize = 9
	grayGroupCount = 4
	grayGroupSize  = 3

	// airborne velocity
	velocitySubtypeStart = 48
	velocitySubtypeSize  = 3
	velocityFieldStart   = 21
	velocityFieldSize    = 22
	componentSize        = 10
	northSouthStart      = 0
	northSouthSignBit    = 10
	eastWestStart        = 11
	eastWestSignBit      = 21
	airspeedStart        = 0
	headingStart         = 11
	headingValidBit      = 21
)

// Type code ranges
const (
	TypeCodeIdentificationMin = 1
	TypeCodeIdentificationMax = 4
	TypeCodeAirborneVelocity  = 19
	TypeCodePositionBaroMin   = 9
	TypeCodePositionBaroMax   = 18
	TypeCodePositionGNSSMin   = 20
	TypeCodePositionGNSSMax   = 22
)

// Altitude encoding constants, in feet
const (
	qAltitudeOffset    = -1000
	qAltitudeStep      = 25
	grayAltitudeOffset = -1300
	grayFineStep       = 100
	grayCoarseStep     = 500
)
