package adsb

import (
	"fmt"
	"regexp"
	"strconv"

	"adsbtrack/internal/bits"
)

// IcaoAddress is the 24-bit address identifying a transponder
type IcaoAddress uint32

// ParseIcaoAddress parses six hexadecimal digits
func ParseIcaoAddress(s string) (IcaoAddress, error) {
	if len(s) != 6 {
		return 0, fmt.Errorf("invalid ICAO address %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 24)
	if err != nil {
		return 0, fmt.Errorf("invalid ICAO address %q: %w", s, err)
	}
	return IcaoAddress(v), nil
}

func (a IcaoAddress) String() string {
	return fmt.Sprintf("%06X", uint32(a))
}

// RawFrame is a 112-bit extended squitter together with its reception time
type RawFrame struct {
	timestampNs int64
	data        bits.ByteString
}

// NewRawFrame wraps data without checking its CRC. It panics if the
// timestamp is negative or data is not exactly FrameLength bytes.
func NewRawFrame(timestampNs int64, data []byte) RawFrame {
	if timestampNs < 0 {
		panic(fmt.Sprintf("adsb: negative timestamp %d", timestampNs))
	}
	if len(data) != FrameLength {
		panic(fmt.Sprintf("adsb: frame length %d, want %d", len(data), FrameLength))
	}
	return RawFrame{timestampNs: timestampNs, data: bits.NewByteString(data)}
}

// ParseRawFrame returns a frame only if its CRC checks out
func ParseRawFrame(timestampNs int64, data []byte) (RawFrame, bool) {
	if len(data) != FrameLength || !ValidCRC(data) {
		return RawFrame{}, false
	}
	return NewRawFrame(timestampNs, data), true
}

// FrameSize returns the frame length announced by the first byte: FrameLength
// for an extended squitter, 0 for every other downlink format.
func FrameSize(byte0 uint8) int {
	if byte0>>capabilitySize == DownlinkFormatES {
		return FrameLength
	}
	return 0
}

// Timestamp returns the reception time in nanoseconds
func (f RawFrame) Timestamp() int64 {
	return f.timestampNs
}

// Bytes returns the frame content
func (f RawFrame) Bytes() bits.ByteString {
	return f.data
}

// DF returns the downlink format
func (f RawFrame) DF() uint8 {
	return f.data.ByteAt(0) >> capabilitySize
}

// Capability returns the CA field of byte 0
func (f RawFrame) Capability() uint8 {
	return f.data.ByteAt(0) & (1<<capabilitySize - 1)
}

// ICAO returns the transmitting aircraft's address
func (f RawFrame) ICAO() IcaoAddress {
	return IcaoAddress(f.data.Range(addressStartByte, payloadStartByte))
}

// Payload returns the 56-bit ME field
func (f RawFrame) Payload() uint64 {
	return f.data.Range(payloadStartByte, payloadEndByte)
}

// TypeCode returns the ME type code
func (f RawFrame) TypeCode() uint8 {
	return PayloadTypeCode(f.Payload())
}

// PayloadTypeCode extracts the type code of an ME field
func PayloadTypeCode(payload uint64) uint8 {
	return uint8(bits.ExtractUint(payload, typeCodeStart, typeCodeSize))
}

func (f RawFrame) String() string {
	return fmt.Sprintf("%d:%s", f.timestampNs, f.data)
}

var callSignPattern = regexp.MustCompile(`^[A-Z0-9 ]{0,8}$`)

// CallSign is a flight identification of up to eight characters
type CallSign string

// NewCallSign panics unless s matches [A-Z0-9 ]{0,8}
func NewCallSign(s string) CallSign {
	if !callSignPattern.MatchString(s) {
		panic(fmt.Sprintf("adsb: invalid call sign %q", s))
	}
	return CallSign(s)
}

// Message is one of Identification, AirbornePosition or AirborneVelocity
type Message interface {
	Time() int64
	Address() IcaoAddress
	isMessage()
}

// Header carries the fields common to every decoded message
type Header struct {
	TimestampNs int64
	ICAO        IcaoAddress
}

// Time returns the reception time in nanoseconds
func (h Header) Time() int64 { return h.TimestampNs }

// Address returns the sender's ICAO address
func (h Header) Address() IcaoAddress { return h.ICAO }

func newHeader(timestampNs int64, icao IcaoAddress) Header {
	if timestampNs < 0 {
		panic(fmt.Sprintf("adsb: negative timestamp %d", timestampNs))
	}
	return Header{TimestampNs: timestampNs, ICAO: icao}
}

// Identification carries the emitter category and call sign (type codes 1-4)
type Identification struct {
	Header
	Category uint8
	CallSign CallSign
}

// NewIdentification validates its arguments
func NewIdentification(timestampNs int64, icao IcaoAddress, category uint8, callSign CallSign) Identification {
	return Identification{
		Header:   newHeader(timestampNs, icao),
		Category: category,
		CallSign: NewCallSign(string(callSign)),
	}
}

// AirbornePosition carries altitude and one half of a CPR position pair
type AirbornePosition struct {
	Header
	Altitude float64 // metres
	Parity   uint8   // 0 even, 1 odd
	X        float64 // normalised CPR longitude in [0, 1)
	Y        float64 // normalised CPR latitude in [0, 1)
}

// NewAirbornePosition panics on an invalid parity or coordinates outside [0, 1)
func NewAirbornePosition(timestampNs int64, icao IcaoAddress, altitude float64, parity uint8, x, y float64) AirbornePosition {
	if parity > 1 {
		panic(fmt.Sprintf("adsb: invalid parity %d", parity))
	}
	if x < 0 || x >= 1 || y < 0 || y >= 1 {
		panic(fmt.Sprintf("adsb: CPR coordinates (%f, %f) outside [0, 1)", x, y))
	}
	return AirbornePosition{
		Header:   newHeader(timestampNs, icao),
		Altitude: altitude,
		Parity:   parity,
		X:        x,
		Y:        y,
	}
}

// AirborneVelocity carries speed and direction (type code 19)
type AirborneVelocity struct {
	Header
	Speed          float64 // metres per second
	TrackOrHeading float64 // radians in [0, 2π)
}

// NewAirborneVelocity panics on a negative speed or direction
func NewAirborneVelocity(timestampNs int64, icao IcaoAddress, speed, trackOrHeading float64) AirborneVelocity {
	if speed < 0 || trackOrHeading < 0 {
		panic(fmt.Sprintf("adsb: invalid velocity %f / %f", speed, trackOrHeading))
	}
	return AirborneVelocity{
		Header:         newHeader(timestampNs, icao),
		Speed:          speed,
		TrackOrHeading: trackOrHeading,
	}
}

func (Identification) isMessage()   {}
func (AirbornePosition) isMessage() {}
func (AirborneVelocity) isMessage() {}
