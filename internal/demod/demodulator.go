package demod

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"adsbtrack/internal/adsb"
)

const (
	// SampleRate is the power sample rate in Hz (one power value per two input samples)
	SampleRate = 10_000_000
	// NanosPerSample is the duration of one power sample
	NanosPerSample = 1_000_000_000 / SampleRate

	// WindowSize covers a preamble and a long frame at 10 power samples per bit
	WindowSize = 1200

	payloadOffset = 80
	bitSpacing    = 10
	halfBit       = 5

	// number of recent preamble levels kept for statistics
	levelHistory = 1024
)

var (
	preambleHigh = [...]int{0, 10, 35, 45}
	preambleLow  = [...]int{5, 15, 20, 25, 30, 40}
)

// Stats holds demodulation counters
type Stats struct {
	Preambles       uint64
	ValidFrames     uint64
	RejectedBad     uint64
	RejectedUnknown uint64
	// mean and standard deviation of recent accepted preamble power
	LevelMean   float64
	LevelStdDev float64
}

// Demodulator scans the power envelope for Mode S preambles and slices the
// following pulses into CRC-checked extended squitter frames.
type Demodulator struct {
	logger *logrus.Logger
	window *PowerWindow

	// preamble score left of the window position
	previous int
	buf      [adsb.FrameLength]byte

	mu              sync.Mutex
	preambleCount   uint64
	validMessages   uint64
	rejectedBad     uint64
	rejectedUnknown uint64
	levels          []float64
	levelIndex      int
}

// NewDemodulator reads a little-endian 16-bit sample stream from r.
func NewDemodulator(r io.Reader, logger *logrus.Logger) (*Demodulator, error) {
	window, err := NewPowerWindow(r, WindowSize)
	if err != nil {
		return nil, err
	}
	return &Demodulator{
		logger: logger,
		window: window,
		levels: make([]float64, 0, levelHistory),
	}, nil
}

// Next returns the next valid frame. ok is false once the stream is exhausted.
func (d *Demodulator) Next() (frame adsb.RawFrame, ok bool, err error) {
	w := d.window
	if !w.IsFull() {
		return adsb.RawFrame{}, false, nil
	}

	score := d.preambleScore(0)
	for w.IsFull() {
		right := d.preambleScore(1)
		if 2*d.lowScore() <= score && score > d.previous && score > right {
			if frame, ok := d.decodeFrame(score); ok {
				d.previous = 0
				if err := w.AdvanceBy(WindowSize); err != nil {
					return adsb.RawFrame{}, false, err
				}
				return frame, true, nil
			}
		}

		if err := w.Advance(); err != nil {
			return adsb.RawFrame{}, false, err
		}
		d.previous = score
		score = right
	}
	return adsb.RawFrame{}, false, nil
}

// preambleScore sums the power at the expected high pulses, shifted by offset
func (d *Demodulator) preambleScore(offset int) int {
	sum := 0
	for _, i := range preambleHigh {
		sum += d.window.Get(i + offset)
	}
	return sum
}

func (d *Demodulator) lowScore() int {
	sum := 0
	for _, i := range preambleLow {
		sum += d.window.Get(i)
	}
	return sum
}

// decodeByte slices byte n of the frame: a bit is 1 when its pulse sits in
// the first half of the bit period
func (d *Demodulator) decodeByte(n int) byte {
	var b byte
	for j := 0; j < 8; j++ {
		at := payloadOffset + bitSpacing*(8*n+j)
		b <<= 1
		if d.window.Get(at) >= d.window.Get(at+halfBit) {
			b |= 1
		}
	}
	return b
}

func (d *Demodulator) decodeFrame(score int) (adsb.RawFrame, bool) {
	d.buf[0] = d.decodeByte(0)
	size := adsb.FrameSize(d.buf[0])
	if size != adsb.FrameLength {
		d.count(&d.rejectedUnknown)
		return adsb.RawFrame{}, false
	}
	for i := 1; i < size; i++ {
		d.buf[i] = d.decodeByte(i)
	}

	timestamp := d.window.Position() * NanosPerSample
	frame, ok := adsb.ParseRawFrame(timestamp, d.buf[:size])
	if !ok {
		d.count(&d.rejectedBad)
		return adsb.RawFrame{}, false
	}

	d.mu.Lock()
	d.preambleCount++
	d.validMessages++
	if len(d.levels) < levelHistory {
		d.levels = append(d.levels, float64(score))
	} else {
		d.levels[d.levelIndex] = float64(score)
		d.levelIndex = (d.levelIndex + 1) % levelHistory
	}
	d.mu.Unlock()

	d.logger.WithFields(logrus.Fields{
		"icao":      frame.ICAO().String(),
		"timestamp": timestamp,
		"level":     score,
	}).Debug("Frame demodulated")
	return frame, true
}

func (d *Demodulator) count(counter *uint64) {
	d.mu.Lock()
	d.preambleCount++
	*counter++
	d.mu.Unlock()
}

// Stats returns a snapshot of the demodulation counters. It is safe to call
// while another goroutine is pulling frames.
func (d *Demodulator) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{
		Preambles:       d.preambleCount,
		ValidFrames:     d.validMessages,
		RejectedBad:     d.rejectedBad,
		RejectedUnknown: d.rejectedUnknown,
	}
	switch len(d.levels) {
	case 0:
	case 1:
		s.LevelMean = d.levels[0]
	default:
		s.LevelMean, s.LevelStdDev = stat.MeanStdDev(d.levels, nil)
	}
	return s
}
