package demod

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsbtrack/internal/bits"
)

const carrierAmplitude = 1000

func encodeSamples(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int(s)+sampleBias))
	}
	return out
}

// signal builds a sample stream whose power envelope peaks exactly at the
// pulse positions passed to pulse
type signal struct {
	on []bool
}

func newSignal(powerSamples int) *signal {
	return &signal{on: make([]bool, powerSamples)}
}

// pulse makes the power at index q reach its maximum. The power at q is
// computed from the samples of power indices q-3..q.
func (s *signal) pulse(q int) {
	for i := q - 3; i <= q; i++ {
		s.on[i] = true
	}
}

func (s *signal) frame(start int, data []byte) {
	for _, offset := range preambleHigh {
		s.pulse(start + offset)
	}
	for i := 0; i < 8*len(data); i++ {
		at := start + payloadOffset + bitSpacing*i
		if data[i/8]&(0x80>>(i%8)) != 0 {
			s.pulse(at)
		} else {
			s.pulse(at + halfBit)
		}
	}
}

func (s *signal) bytes() []byte {
	carrier := [...]int16{carrierAmplitude, carrierAmplitude, -carrierAmplitude, -carrierAmplitude}
	samples := make([]int16, 2*len(s.on))
	for i := range samples {
		if s.on[i/2] {
			samples[i] = carrier[i%4]
		}
	}
	return encodeSamples(samples)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func readAll(t *testing.T, d *Demodulator) [][]byte {
	t.Helper()
	var frames [][]byte
	for {
		frame, ok, err := d.Next()
		require.NoError(t, err)
		if !ok {
			return frames
		}
		frames = append(frames, frame.Bytes().Bytes())
	}
}

func TestDemodulatorSingleFrame(t *testing.T) {
	data := bits.MustParseHex("8D4840D6202CC371C32CE0576098").Bytes()
	s := newSignal(4000)
	s.frame(500, data)

	d, err := NewDemodulator(bytes.NewReader(s.bytes()), quietLogger())
	require.NoError(t, err)

	frame, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, data, frame.Bytes().Bytes())
	assert.Equal(t, int64(500*NanosPerSample), frame.Timestamp())
	assert.Equal(t, "4840D6", frame.ICAO().String())

	_, ok, err = d.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.ValidFrames)
	assert.GreaterOrEqual(t, stats.Preambles, uint64(1))
	assert.Equal(t, float64(4*32*carrierAmplitude*carrierAmplitude), stats.LevelMean)
	assert.Zero(t, stats.LevelStdDev)
}

func TestDemodulatorMultipleFrames(t *testing.T) {
	first := bits.MustParseHex("8D40621D58C382D690C8AC2863A7").Bytes()
	second := bits.MustParseHex("8D40621D58C386435CC412692AD6").Bytes()
	s := newSignal(6000)
	s.frame(100, first)
	s.frame(1800, second)

	d, err := NewDemodulator(bytes.NewReader(s.bytes()), quietLogger())
	require.NoError(t, err)

	frames := readAll(t, d)
	require.Len(t, frames, 2)
	assert.Equal(t, first, frames[0])
	assert.Equal(t, second, frames[1])
	assert.Equal(t, uint64(2), d.Stats().ValidFrames)
}

func TestDemodulatorRejectsCorruptFrame(t *testing.T) {
	data := bits.MustParseHex("8D4840D6202CC371C32CE0576098").Bytes()
	data[6] ^= 0x10
	s := newSignal(4000)
	s.frame(500, data)

	d, err := NewDemodulator(bytes.NewReader(s.bytes()), quietLogger())
	require.NoError(t, err)

	assert.Empty(t, readAll(t, d))
	assert.GreaterOrEqual(t, d.Stats().RejectedBad, uint64(1))
}

func TestDemodulatorRejectsOtherFormats(t *testing.T) {
	// DF11 all-call reply padded to a long frame
	data := bits.MustParseHex("5D4840D600000000000000000000").Bytes()
	s := newSignal(4000)
	s.frame(500, data)

	d, err := NewDemodulator(bytes.NewReader(s.bytes()), quietLogger())
	require.NoError(t, err)

	assert.Empty(t, readAll(t, d))
	assert.GreaterOrEqual(t, d.Stats().RejectedUnknown, uint64(1))
}

func TestDemodulatorFrameAtEndOfStream(t *testing.T) {
	data := bits.MustParseHex("8D485020994409940838175B284F").Bytes()
	s := newSignal(10 + WindowSize)
	s.frame(10, data)

	d, err := NewDemodulator(bytes.NewReader(s.bytes()), quietLogger())
	require.NoError(t, err)

	frames := readAll(t, d)
	require.Len(t, frames, 1)
	assert.Equal(t, data, frames[0])
}

func TestDemodulatorSilence(t *testing.T) {
	d, err := NewDemodulator(bytes.NewReader(newSignal(5000).bytes()), quietLogger())
	require.NoError(t, err)

	assert.Empty(t, readAll(t, d))
	stats := d.Stats()
	assert.Zero(t, stats.Preambles)
	assert.Zero(t, stats.LevelMean)
}

func TestDemodulatorEmptyStream(t *testing.T) {
	d, err := NewDemodulator(bytes.NewReader(nil), quietLogger())
	require.NoError(t, err)

	_, ok, err := d.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDemodulatorReadError(t *testing.T) {
	_, err := NewDemodulator(failingReader{}, quietLogger())
	assert.Error(t, err)
}
