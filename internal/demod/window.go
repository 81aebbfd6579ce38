package demod

import (
	"fmt"
	"io"
)

// WindowBatchSize is the capacity of each of the two window buffers
const WindowBatchSize = 1 << 16

type powerSource interface {
	ReadBatch(batch []int) (int, error)
}

// PowerWindow is a fixed-size view sliding over the power stream. It keeps
// two buffers so the view can straddle a batch boundary.
type PowerWindow struct {
	source powerSource
	size   int

	current []int
	next    []int

	// offset of the window's left edge inside current
	offset int
	// valid entries in current and next
	currentLen int
	nextLen    int

	position int64
}

// NewPowerWindow creates a window of size power samples over the sample
// stream r.
func NewPowerWindow(r io.Reader, size int) (*PowerWindow, error) {
	return newPowerWindow(NewPowerComputer(r, WindowBatchSize), size)
}

func newPowerWindow(source powerSource, size int) (*PowerWindow, error) {
	if size <= 0 || size > WindowBatchSize {
		panic(fmt.Sprintf("demod: invalid window size %d", size))
	}

	w := &PowerWindow{
		source:  source,
		size:    size,
		current: make([]int, WindowBatchSize),
		next:    make([]int, WindowBatchSize),
	}

	var err error
	if w.currentLen, err = source.ReadBatch(w.current); err != nil {
		return nil, err
	}
	if w.nextLen, err = w.fill(w.currentLen, w.next); err != nil {
		return nil, err
	}
	return w, nil
}

// fill reads the next batch unless the stream already ended short
func (w *PowerWindow) fill(previous int, batch []int) (int, error) {
	if previous < WindowBatchSize {
		return 0, nil
	}
	return w.source.ReadBatch(batch)
}

// Size returns the window length
func (w *PowerWindow) Size() int {
	return w.size
}

// Position returns the absolute power sample index of the left edge
func (w *PowerWindow) Position() int64 {
	return w.position
}

// IsFull reports whether a whole window of samples is available.
func (w *PowerWindow) IsFull() bool {
	return w.currentLen-w.offset+w.nextLen >= w.size
}

// Get returns the power sample i positions right of the left edge.
func (w *PowerWindow) Get(i int) int {
	if i < 0 || i >= w.size {
		panic(fmt.Sprintf("demod: window index %d out of range [0, %d)", i, w.size))
	}
	j := w.offset + i
	if j < w.currentLen {
		return w.current[j]
	}
	j -= w.currentLen
	if j >= w.nextLen {
		panic(fmt.Sprintf("demod: window index %d past end of stream", i))
	}
	return w.next[j]
}

// Advance slides the window one sample to the right.
func (w *PowerWindow) Advance() error {
	if w.offset >= w.currentLen {
		panic("demod: advance past end of stream")
	}
	w.offset++
	w.position++
	if w.offset < w.currentLen {
		return nil
	}

	// current is exhausted: rotate and refill the spare buffer
	w.current, w.next = w.next, w.current
	w.currentLen = w.nextLen
	w.offset = 0

	var err error
	if w.nextLen, err = w.fill(w.currentLen, w.next); err != nil {
		w.nextLen = 0
		return err
	}
	return nil
}

// AdvanceBy slides the window n samples to the right.
func (w *PowerWindow) AdvanceBy(n int) error {
	for i := 0; i < n; i++ {
		if err := w.Advance(); err != nil {
			return err
		}
	}
	return nil
}
