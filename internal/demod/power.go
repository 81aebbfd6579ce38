package demod

import (
	"fmt"
	"io"
)

// PowerComputer derives one power value per pair of samples from the eight
// most recent samples, without explicit I/Q demodulation.
type PowerComputer struct {
	samples   *SampleDecoder
	raw       []int16
	last      [8]int
	batchSize int
}

// NewPowerComputer produces batchSize power values per ReadBatch call. It
// panics unless batchSize is a positive multiple of 8.
func NewPowerComputer(r io.Reader, batchSize int) *PowerComputer {
	if batchSize <= 0 || batchSize%8 != 0 {
		panic(fmt.Sprintf("demod: invalid power batch size %d", batchSize))
	}
	return &PowerComputer{
		samples:   NewSampleDecoder(r, 2*batchSize),
		raw:       make([]int16, 2*batchSize),
		batchSize: batchSize,
	}
}

// ReadBatch fills batch with power values and returns how many were computed.
func (p *PowerComputer) ReadBatch(batch []int) (int, error) {
	if len(batch) != p.batchSize {
		panic(fmt.Sprintf("demod: power batch length %d, want %d", len(batch), p.batchSize))
	}

	n, err := p.samples.ReadBatch(p.raw)
	if err != nil {
		return 0, err
	}

	// the ring is indexed by absolute sample position modulo 8; the batch
	// length is a multiple of 8 so positions stay aligned across batches
	for i := 0; i+1 < n; i += 2 {
		p.last[i%8] = int(p.raw[i])
		p.last[(i+1)%8] = int(p.raw[i+1])

		odd := p.last[1] - p.last[3] + p.last[5] - p.last[7]
		even := p.last[0] - p.last[2] + p.last[4] - p.last[6]
		batch[i/2] = odd*odd + even*even
	}
	return n / 2, nil
}
