package adsb

// ModeSGeneratorPoly is the Mode S CRC-24 generator (the implicit x^24 term omitted)
const ModeSGeneratorPoly = 0xFFF409

const (
	crcBits  = 24
	crcBytes = crcBits / 8
	crcMask  = 1<<crcBits - 1
)

// modeSCRC is shared read-only by every decoder
var modeSCRC *CRC24

func init() {
	modeSCRC = NewCRC24(ModeSGeneratorPoly)
}

// CRC24 computes 24-bit cyclic redundancy checks with a byte-wise lookup table.
type CRC24 struct {
	table [256]uint32
}

// NewCRC24 builds the lookup table for the given generator polynomial
func NewCRC24(generator uint32) *CRC24 {
	c := &CRC24{}
	for i := range c.table {
		c.table[i] = bitwiseCRC(generator&crcMask, []byte{byte(i)})
	}
	return c
}

// bitwiseCRC reduces data (followed by 24 zero bits) one bit at a time, MSB first
func bitwiseCRC(generator uint32, data []byte) uint32 {
	reduce := [2]uint32{0, generator}
	var crc uint32

	for _, b := range data {
		for j := 7; j >= 0; j-- {
			bit := uint32(b>>uint(j)) & 1
			crc = (crc<<1 | bit) ^ reduce[(crc>>(crcBits-1))&1]
		}
	}
	for i := 0; i < crcBits; i++ {
		crc = (crc << 1) ^ reduce[(crc>>(crcBits-1))&1]
	}

	return crc & crcMask
}

// Checksum returns the CRC of data. A frame that carries its own check value
// in its last three bytes reduces to zero.
func (c *CRC24) Checksum(data []byte) uint32 {
	var crc uint32

	for _, b := range data {
		crc = (crc<<8 | uint32(b)) ^ c.table[(crc>>16)&0xff]
	}
	for i := 0; i < crcBytes; i++ {
		crc = (crc << 8) ^ c.table[(crc>>16)&0xff]
	}

	return crc & crcMask
}

// CalculateCRC computes the Mode S CRC of data
func CalculateCRC(data []byte) uint32 {
	return modeSCRC.Checksum(data)
}

// ValidCRC reports whether a complete frame, check bits included, reduces to zero
func ValidCRC(frame []byte) bool {
	return modeSCRC.Checksum(frame) == 0
}
