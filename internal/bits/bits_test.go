package bits

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractUint(t *testing.T) {
	tests := []struct {
		name     string
		value    uint64
		start    int
		size     int
		expected uint32
	}{
		{"low nibble", 0xABCD, 0, 4, 0xD},
		{"middle byte", 0xABCD, 4, 8, 0xBC},
		{"top bits of word", 0xF800000000000000, 59, 5, 0x1F},
		{"single bit", 0x10, 4, 1, 1},
		{"31 bits", 0xFFFFFFFFFFFFFFFF, 10, 31, 0x7FFFFFFF},
		{"type code of ME field", 0x58C382D690C8AC, 51, 5, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractUint(tt.value, tt.start, tt.size))
		})
	}
}

func TestExtractUint_IgnoresBitsOutsideRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		size := 1 + rng.Intn(31)
		start := rng.Intn(64 - size + 1)
		field := uint64(rng.Uint32()) & (1<<uint(size) - 1)
		noise := rng.Uint64() &^ ((1<<uint(size) - 1) << uint(start))

		assert.Equal(t, uint32(field), ExtractUint(field<<uint(start)|noise, start, size))
	}
}

func TestExtractUint_Preconditions(t *testing.T) {
	tests := []struct {
		name  string
		start int
		size  int
	}{
		{"zero size", 0, 0},
		{"size 32", 0, 32},
		{"negative start", -1, 4},
		{"past end of word", 60, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { ExtractUint(0, tt.start, tt.size) })
		})
	}
}

func TestTestBit(t *testing.T) {
	assert.True(t, TestBit(1, 0))
	assert.False(t, TestBit(1, 1))
	assert.True(t, TestBit(1<<63, 63))

	assert.Panics(t, func() { TestBit(0, 64) })
	assert.Panics(t, func() { TestBit(0, -1) })
}
