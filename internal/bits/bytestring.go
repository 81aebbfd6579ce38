package bits

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ByteString is an immutable sequence of bytes.
type ByteString struct {
	b []byte
}

// NewByteString copies data into a new ByteString.
func NewByteString(data []byte) ByteString {
	b := make([]byte, len(data))
	copy(b, data)
	return ByteString{b: b}
}

// ParseHex builds a ByteString from an even-length hexadecimal string.
func ParseHex(s string) (ByteString, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ByteString{}, fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	return ByteString{b: b}, nil
}

// MustParseHex is like ParseHex but panics on malformed input.
func MustParseHex(s string) ByteString {
	bs, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return bs
}

// Size returns the number of bytes.
func (s ByteString) Size() int {
	return len(s.b)
}

// ByteAt returns the unsigned byte at index.
func (s ByteString) ByteAt(index int) uint8 {
	return s.b[index]
}

// Range returns the big-endian integer formed by bytes [from, to). The range
// must be non-empty, in bounds and at most 8 bytes long.
func (s ByteString) Range(from, to int) uint64 {
	if from < 0 || to > len(s.b) || from >= to {
		panic(fmt.Sprintf("bits: byte range [%d, %d) invalid for length %d", from, to, len(s.b)))
	}
	if to-from > 8 {
		panic(fmt.Sprintf("bits: byte range [%d, %d) exceeds 64 bits", from, to))
	}

	var v uint64
	for _, b := range s.b[from:to] {
		v = v<<8 | uint64(b)
	}
	return v
}

// Bytes returns a copy of the underlying bytes.
func (s ByteString) Bytes() []byte {
	b := make([]byte, len(s.b))
	copy(b, s.b)
	return b
}

// Equal reports whether both strings hold the same bytes.
func (s ByteString) Equal(other ByteString) bool {
	if len(s.b) != len(other.b) {
		return false
	}
	for i := range s.b {
		if s.b[i] != other.b[i] {
			return false
		}
	}
	return true
}

// String renders the bytes as upper-case hexadecimal.
func (s ByteString) String() string {
	return strings.ToUpper(hex.EncodeToString(s.b))
}
