package recording

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsbtrack/internal/adsb"
	"adsbtrack/internal/bits"
)

var testFrames = []string{
	"8D4840D6202CC371C32CE0576098",
	"8D40621D58C382D690C8AC2863A7",
	"8D40621D58C386435CC412692AD6",
	"8D485020994409940838175B284F",
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func frame(t *testing.T, ts int64, hex string) adsb.RawFrame {
	t.Helper()
	f, ok := adsb.ParseRawFrame(ts, bits.MustParseHex(hex).Bytes())
	require.True(t, ok)
	return f
}

func sampleFrames(t *testing.T) []adsb.RawFrame {
	frames := make([]adsb.RawFrame, len(testFrames))
	for i, hex := range testFrames {
		frames[i] = frame(t, int64(i)*int64(time.Millisecond)+7, hex)
	}
	return frames
}

func readAll(t *testing.T, r *Reader) []adsb.RawFrame {
	t.Helper()
	var frames []adsb.RawFrame
	for {
		f, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			return frames
		}
		frames = append(frames, f)
	}
}

func TestWriterRecordLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(frame(t, 0x0102030405060708, testFrames[0])))
	require.NoError(t, w.Close())

	want := append([]byte{1, 2, 3, 4, 5, 6, 7, 8}, bits.MustParseHex(testFrames[0]).Bytes()...)
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, uint64(1), w.Count())
}

func TestRoundTripFiles(t *testing.T) {
	for _, name := range []string{"session.bin", "session.bin.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			frames := sampleFrames(t)

			w, err := Create(path)
			require.NoError(t, err)
			for _, f := range frames {
				require.NoError(t, w.Write(f))
			}
			require.NoError(t, w.Close())

			r, err := Open(path, quietLogger())
			require.NoError(t, err)
			defer r.Close()

			got := readAll(t, r)
			require.Len(t, got, len(frames))
			for i := range frames {
				assert.Equal(t, frames[i].Timestamp(), got[i].Timestamp())
				assert.True(t, frames[i].Bytes().Equal(got[i].Bytes()))
			}
			assert.Zero(t, r.Skipped())
		})
	}
}

func TestReaderSkipsInvalidRecords(t *testing.T) {
	var buf bytes.Buffer
	record := func(ts uint64, data []byte) {
		var head [8]byte
		binary.BigEndian.PutUint64(head[:], ts)
		buf.Write(head[:])
		buf.Write(data)
	}

	corrupt := bits.MustParseHex(testFrames[0]).Bytes()
	corrupt[5] ^= 0x01
	record(10, corrupt)
	record(1<<63, bits.MustParseHex(testFrames[1]).Bytes())
	record(30, bits.MustParseHex(testFrames[2]).Bytes())
	// truncated trailing record
	buf.Write([]byte{0, 0, 0})

	r, err := NewReader(&buf, quietLogger())
	require.NoError(t, err)

	got := readAll(t, r)
	require.Len(t, got, 1)
	assert.Equal(t, int64(30), got[0].Timestamp())
	assert.Equal(t, uint64(2), r.Skipped())
}

func TestReaderEmpty(t *testing.T) {
	r, err := NewReader(bytes.NewReader(nil), quietLogger())
	require.NoError(t, err)
	assert.Empty(t, readAll(t, r))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bin"), quietLogger())
	assert.Error(t, err)
}

type sliceSource struct {
	frames []adsb.RawFrame
	err    error
}

func (s *sliceSource) Next() (adsb.RawFrame, bool, error) {
	if len(s.frames) == 0 {
		return adsb.RawFrame{}, false, s.err
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, true, nil
}

func TestReplayUnpaced(t *testing.T) {
	frames := sampleFrames(t)
	var got []adsb.RawFrame
	err := Replay(context.Background(), &sliceSource{frames: frames}, 0, func(f adsb.RawFrame) error {
		got = append(got, f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, frames, got)
}

func TestReplayPaced(t *testing.T) {
	frames := []adsb.RawFrame{
		frame(t, int64(time.Second), testFrames[0]),
		frame(t, int64(time.Second)+int64(40*time.Millisecond), testFrames[1]),
	}

	var times []time.Time
	err := Replay(context.Background(), &sliceSource{frames: frames}, 1, func(adsb.RawFrame) error {
		times = append(times, time.Now())
		return nil
	})
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 30*time.Millisecond)
}

func TestReplayCancelled(t *testing.T) {
	frames := []adsb.RawFrame{
		frame(t, 0, testFrames[0]),
		frame(t, int64(time.Hour), testFrames[1]),
	}
	ctx, cancel := context.WithCancel(context.Background())

	emitted := 0
	err := Replay(ctx, &sliceSource{frames: frames}, 1, func(adsb.RawFrame) error {
		emitted++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, emitted)
}

func TestReplayPropagatesErrors(t *testing.T) {
	boom := errors.New("disk gone")
	err := Replay(context.Background(), &sliceSource{err: boom}, 0, func(adsb.RawFrame) error { return nil })
	assert.ErrorIs(t, err, boom)

	stop := errors.New("queue closed")
	err = Replay(context.Background(), &sliceSource{frames: sampleFrames(t)}, 0, func(adsb.RawFrame) error { return stop })
	assert.ErrorIs(t, err, stop)
}
