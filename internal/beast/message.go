// Package beast reads the Beast binary framing used by Mode S receivers to
// forward raw frames.
package beast

import "adsbtrack/internal/adsb"

// Frame markers and message types
const (
	SyncByte   = 0x1A
	ModeAC     = 0x31 // Mode A/C reply
	ModeS      = 0x32 // Mode S short frame (56 bits)
	ModeSLong  = 0x33 // Mode S long frame (112 bits)
	ModeStatus = 0x34 // receiver status

	timestampSize = 6
	// ClockRate is the frequency of the receiver's timestamp counter
	ClockRate = 12_000_000
)

// Message is one decoded Beast record
type Message struct {
	Type byte
	// Timestamp counts ClockRate ticks
	Timestamp uint64
	Signal    byte
	Data      []byte
}

// payloadSize returns the number of data bytes carried by a message type,
// or 0 for an unknown type
func payloadSize(messageType byte) int {
	switch messageType {
	case ModeAC, ModeStatus:
		return 2
	case ModeS:
		return 7
	case ModeSLong:
		return adsb.FrameLength
	default:
		return 0
	}
}

// TimestampNs converts the receiver clock to nanoseconds
func (m Message) TimestampNs() int64 {
	return int64(m.Timestamp * 1000 / (ClockRate / 1_000_000))
}

// DF returns the downlink format of a Mode S message
func (m Message) DF() uint8 {
	if m.Type != ModeS && m.Type != ModeSLong || len(m.Data) == 0 {
		return 0
	}
	return m.Data[0] >> 3
}

// ICAO returns the address field of a Mode S message
func (m Message) ICAO() adsb.IcaoAddress {
	if m.Type != ModeS && m.Type != ModeSLong || len(m.Data) < 4 {
		return 0
	}
	return adsb.IcaoAddress(uint32(m.Data[1])<<16 | uint32(m.Data[2])<<8 | uint32(m.Data[3]))
}

// Valid reports whether the data length matches the message type
func (m Message) Valid() bool {
	size := payloadSize(m.Type)
	return size != 0 && len(m.Data) == size
}
