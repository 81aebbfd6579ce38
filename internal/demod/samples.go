// Package demod turns a raw sample stream into CRC-checked Mode S frames.
package demod

import (
	"errors"
	"fmt"
	"io"
)

// sampleBias centres the unsigned 12-bit samples around zero
const sampleBias = 1 << 11

// SampleDecoder reads little-endian unsigned 16-bit samples and centres them.
type SampleDecoder struct {
	r         io.Reader
	buf       []byte
	batchSize int
}

// NewSampleDecoder reads batchSize samples per ReadBatch call. It panics if
// batchSize is not positive.
func NewSampleDecoder(r io.Reader, batchSize int) *SampleDecoder {
	if batchSize <= 0 {
		panic(fmt.Sprintf("demod: invalid sample batch size %d", batchSize))
	}
	return &SampleDecoder{
		r:         r,
		buf:       make([]byte, 2*batchSize),
		batchSize: batchSize,
	}
}

// ReadBatch fills batch with the next samples and returns how many were read.
// Fewer than len(batch) samples means the stream ended; that is not an error.
func (d *SampleDecoder) ReadBatch(batch []int16) (int, error) {
	if len(batch) != d.batchSize {
		panic(fmt.Sprintf("demod: sample batch length %d, want %d", len(batch), d.batchSize))
	}

	n, err := io.ReadFull(d.r, d.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to read samples: %w", err)
	}

	count := n / 2
	for i := 0; i < count; i++ {
		raw := int(d.buf[2*i]) | int(d.buf[2*i+1])<<8
		batch[i] = int16(raw - sampleBias)
	}
	return count, nil
}
