// Package bits holds the bit and byte extraction primitives shared by the
// Mode S decoders.
package bits

import "fmt"

const wordSize = 64

// ExtractUint returns the unsigned integer formed by the size bits of value
// starting at bit start (bit 0 is the least significant). It panics unless
// 0 < size < 32 and [start, start+size) lies within the 64-bit word.
func ExtractUint(value uint64, start, size int) uint32 {
	if size <= 0 || size >= 32 {
		panic(fmt.Sprintf("bits: invalid size %d", size))
	}
	if start < 0 || start+size > wordSize {
		panic(fmt.Sprintf("bits: range [%d, %d) outside 64-bit word", start, start+size))
	}
	return uint32((value >> uint(start)) & (1<<uint(size) - 1))
}

// TestBit reports whether bit index of value is set. It panics unless
// 0 <= index < 64.
func TestBit(value uint64, index int) bool {
	if index < 0 || index >= wordSize {
		panic(fmt.Sprintf("bits: index %d outside 64-bit word", index))
	}
	return (value>>uint(index))&1 == 1
}
