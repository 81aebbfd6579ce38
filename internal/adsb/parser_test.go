package adsb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsbtrack/internal/bits"
)

// buildFrame assembles a DF17 frame around a 56-bit ME payload
func buildFrame(icao IcaoAddress, payload uint64) []byte {
	frame := make([]byte, FrameLength)
	frame[0] = DownlinkFormatES<<3 | 5
	frame[1] = byte(icao >> 16)
	frame[2] = byte(icao >> 8)
	frame[3] = byte(icao)
	for i := 0; i < 7; i++ {
		frame[4+i] = byte(payload >> uint(48-8*i))
	}
	return withCRC(frame)
}

func identificationPayload(tc, ca uint8, callSign string) uint64 {
	payload := uint64(tc)<<51 | uint64(ca)<<48
	for i := 0; i < 8; i++ {
		c := byte(' ')
		if i < len(callSign) {
			c = callSign[i]
		}
		code := uint64(0)
		for j := 0; j < len(IdentificationCharset); j++ {
			if IdentificationCharset[j] == c {
				code = uint64(j)
				break
			}
		}
		payload |= code << uint(42-6*i)
	}
	return payload
}

func positionPayload(tc uint8, altField uint32, parity uint8, latCPR, lonCPR uint32) uint64 {
	return uint64(tc)<<51 | uint64(altField)<<36 | uint64(parity)<<34 | uint64(latCPR)<<17 | uint64(lonCPR)
}

func TestFrameSize(t *testing.T) {
	for b := 0; b < 256; b++ {
		expected := 0
		if b>>3 == 17 {
			expected = FrameLength
		}
		assert.Equal(t, expected, FrameSize(uint8(b)), "byte0=%#02x", b)
	}
}

func TestRawFrame_Accessors(t *testing.T) {
	frame, ok := ParseRawFrame(1000, bits.MustParseHex("8D4840D6202CC371C32CE0576098").Bytes())
	require.True(t, ok)

	assert.Equal(t, int64(1000), frame.Timestamp())
	assert.Equal(t, uint8(17), frame.DF())
	assert.Equal(t, uint8(5), frame.Capability())
	assert.Equal(t, IcaoAddress(0x4840D6), frame.ICAO())
	assert.Equal(t, "4840D6", frame.ICAO().String())
	assert.Equal(t, uint64(0x202CC371C32CE0), frame.Payload())
	assert.Equal(t, uint8(4), frame.TypeCode())
}

func TestRawFrame_Preconditions(t *testing.T) {
	data := bits.MustParseHex("8D4840D6202CC371C32CE0576098").Bytes()

	assert.Panics(t, func() { NewRawFrame(-1, data) })
	assert.Panics(t, func() { NewRawFrame(0, data[:7]) })

	data[5] ^= 0x01
	_, ok := ParseRawFrame(0, data)
	assert.False(t, ok)
}

func TestParseIcaoAddress(t *testing.T) {
	addr, err := ParseIcaoAddress("4840D6")
	require.NoError(t, err)
	assert.Equal(t, IcaoAddress(0x4840D6), addr)

	_, err = ParseIcaoAddress("4840D")
	assert.Error(t, err)
	_, err = ParseIcaoAddress("ZZZZZZ")
	assert.Error(t, err)
}

func TestDecode_Identification(t *testing.T) {
	tests := []struct {
		name     string
		frame    []byte
		category uint8
		callSign CallSign
	}{
		{
			name:     "Captured KLM1023",
			frame:    bits.MustParseHex("8D4840D6202CC371C32CE0576098").Bytes(),
			category: 80,
			callSign: "KLM1023",
		},
		{
			name:     "Padded N12345",
			frame:    buildFrame(0xA1B2C3, identificationPayload(4, 0, "N12345")),
			category: (14-4)<<3 | 0,
			callSign: "N12345",
		},
		{
			name:     "Type code 1 with category bits",
			frame:    buildFrame(0xA1B2C3, identificationPayload(1, 3, "AB CD")),
			category: 13<<3 | 3,
			callSign: "AB CD",
		},
		{
			name:     "Blank call sign",
			frame:    buildFrame(0xA1B2C3, identificationPayload(2, 0, "")),
			category: 12 << 3,
			callSign: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, ok := ParseRawFrame(42, tt.frame)
			require.True(t, ok)

			msg, ok := Decode(frame)
			require.True(t, ok)

			id, isID := msg.(Identification)
			require.True(t, isID)
			assert.Equal(t, tt.category, id.Category)
			assert.Equal(t, tt.callSign, id.CallSign)
			assert.Equal(t, int64(42), id.Time())
			assert.Equal(t, frame.ICAO(), id.Address())
		})
	}
}

func TestDecode_IdentificationInvalidCharacter(t *testing.T) {
	payload := identificationPayload(4, 0, "ABC")
	payload |= 27 << 24 // unmapped code in the fourth character

	_, ok := Decode(NewRawFrame(0, buildFrame(0x123456, payload)))
	assert.False(t, ok)
}

func TestDecode_AirbornePosition(t *testing.T) {
	frame, ok := ParseRawFrame(0, bits.MustParseHex("8D40621D58C382D690C8AC2863A7").Bytes())
	require.True(t, ok)

	msg, ok := Decode(frame)
	require.True(t, ok)

	pos, isPos := msg.(AirbornePosition)
	require.True(t, isPos)
	assert.Equal(t, IcaoAddress(0x40621D), pos.Address())
	assert.InDelta(t, 38000*Foot, pos.Altitude, 1e-6)
	assert.Equal(t, uint8(0), pos.Parity)
	assert.InDelta(t, 51372.0/cprScale, pos.X, 1e-12)
	assert.InDelta(t, 93000.0/cprScale, pos.Y, 1e-12)

	odd, ok := ParseRawFrame(0, bits.MustParseHex("8D40621D58C386435CC412692AD6").Bytes())
	require.True(t, ok)
	msg, ok = Decode(odd)
	require.True(t, ok)
	assert.Equal(t, uint8(1), msg.(AirbornePosition).Parity)
}

// tangleGillham is the inverse of untangleGillham
func tangleGillham(untangled uint32) uint32 {
	var field uint32
	pos := 11
	for _, base := range gillhamGroups {
		for i := 0; i < grayGroupSize; i++ {
			if untangled>>uint(pos)&1 == 1 {
				field |= 1 << uint(2*(grayGroupSize-1-i)+base)
			}
			pos--
		}
	}
	return field
}

func grayEncode(v uint32) uint32 {
	return v ^ v>>1
}

func TestDecodeAltitude(t *testing.T) {
	gillham := func(coarse, fine uint32) uint32 {
		return tangleGillham(grayEncode(coarse)<<3 | grayEncode(fine))
	}

	tests := []struct {
		name  string
		field uint32
		feet  float64
		valid bool
	}{
		{"Q bit, 38000 ft", 0xC38, 38000, true},
		{"Q bit, coded zero clamps to 0", 0x010, 0, true},
		{"Q bit, negative altitude clamps to 0", 0x050, 0, true},
		{"Q bit, exactly 0 ft", 0x058, 0, true},
		{"Q bit, 25 ft", 0x059, 25, true},
		{"Gray, even coarse", gillham(10, 1), 3800, true},
		{"Gray, odd coarse mirrors fine", gillham(11, 2), 4600, true},
		{"Gray, fine 7 maps to 5", gillham(10, 7), 4200, true},
		{"Gray, fine 0 invalid", gillham(10, 0), 0, false},
		{"Gray, fine 5 invalid", gillham(10, 5), 0, false},
		{"Gray, fine 6 invalid", gillham(10, 6), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			altitude, ok := decodeAltitude(tt.field)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.InDelta(t, tt.feet*Foot, altitude, 1e-9)
			}
		})
	}
}

func TestDecode_PositionZeroAltitude(t *testing.T) {
	frame := NewRawFrame(5, buildFrame(0x3C6586, positionPayload(11, 0x010, 1, 1000, 2000)))

	msg, ok := Decode(frame)
	require.True(t, ok)
	assert.Equal(t, 0.0, msg.(AirbornePosition).Altitude)
}

func TestDecode_PositionInvalidGillham(t *testing.T) {
	frame := NewRawFrame(5, buildFrame(0x3C6586, positionPayload(20, tangleGillham(grayEncode(3)<<3), 0, 1, 1)))

	_, ok := Decode(frame)
	assert.False(t, ok)
}

func TestGrayDecode_InvertsEncoding(t *testing.T) {
	for v := uint32(0); v < 1<<3; v++ {
		assert.Equal(t, v, grayDecode(grayEncode(v), 3))
	}
	for v := uint32(0); v < 1<<9; v++ {
		assert.Equal(t, v, grayDecode(grayEncode(v), 9))
	}
}

func TestUntangleGillham_InvertsTangle(t *testing.T) {
	for v := uint32(0); v < 1<<12; v++ {
		assert.Equal(t, v, untangleGillham(tangleGillham(v)))
	}
}

func velocityPayload(subtype uint8, field uint32) uint64 {
	return uint64(19)<<51 | uint64(subtype)<<48 | uint64(field)<<21
}

func groundVelocityField(westward bool, ew uint32, southward bool, ns uint32) uint32 {
	field := ns | ew<<11
	if southward {
		field |= 1 << 10
	}
	if westward {
		field |= 1 << 21
	}
	return field
}

func TestDecode_AirborneVelocity(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		knots   float64
		degrees float64
	}{
		{
			name:    "Captured ground speed",
			frame:   bits.MustParseHex("8D485020994409940838175B284F").Bytes(),
			knots:   math.Hypot(8, 159),
			degrees: 180 + math.Atan(8.0/159)*180/math.Pi,
		},
		{
			name:    "Captured airspeed and heading",
			frame:   bits.MustParseHex("8DA05F219B06B6AF189400CBC33F").Bytes(),
			knots:   375,
			degrees: 694.0 / 1024 * 360,
		},
		{
			name:    "Due east",
			frame:   buildFrame(1, velocityPayload(1, groundVelocityField(false, 101, false, 1))),
			knots:   100,
			degrees: 90,
		},
		{
			name:    "Supersonic due north",
			frame:   buildFrame(1, velocityPayload(2, groundVelocityField(false, 1, false, 401))),
			knots:   1600,
			degrees: 0,
		},
		{
			name:    "Supersonic airspeed",
			frame:   buildFrame(1, velocityPayload(4, 1<<21|512<<11|301)),
			knots:   1200,
			degrees: 180,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := Decode(NewRawFrame(7, tt.frame))
			require.True(t, ok)

			v, isVelocity := msg.(AirborneVelocity)
			require.True(t, isVelocity)
			assert.InDelta(t, tt.knots*Knot, v.Speed, 1e-6)
			assert.InDelta(t, tt.degrees, Convert(v.TrackOrHeading, Radian, Degree), 1e-3)
			assert.GreaterOrEqual(t, v.TrackOrHeading, 0.0)
			assert.Less(t, v.TrackOrHeading, Turn)
		})
	}
}

func TestDecode_VelocityDiscarded(t *testing.T) {
	tests := []struct {
		name    string
		payload uint64
	}{
		{"No east-west data", velocityPayload(1, groundVelocityField(false, 0, false, 10))},
		{"No north-south data", velocityPayload(2, groundVelocityField(true, 10, true, 0))},
		{"Heading not available", velocityPayload(3, 512<<11|301)},
		{"No airspeed data", velocityPayload(3, 1<<21|512<<11)},
		{"Reserved subtype 0", velocityPayload(0, groundVelocityField(false, 5, false, 5))},
		{"Reserved subtype 5", velocityPayload(5, groundVelocityField(false, 5, false, 5))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Decode(NewRawFrame(0, buildFrame(1, tt.payload)))
			assert.False(t, ok)
		})
	}
}

func TestDecode_UnhandledFrames(t *testing.T) {
	// surface position, reserved type code 0 and a non-ES downlink format
	for _, payload := range []uint64{uint64(5) << 51, 0, uint64(28) << 51} {
		_, ok := Decode(NewRawFrame(0, buildFrame(1, payload)))
		assert.False(t, ok)
	}

	df18 := buildFrame(1, identificationPayload(4, 0, "TEST"))
	df18[0] = 18<<3 | 2
	_, ok := Decode(NewRawFrame(0, df18))
	assert.False(t, ok)
}
