// Package recording reads and writes files of timestamped raw frames, the
// format used to replay a reception session offline.
package recording

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"adsbtrack/internal/adsb"
)

// RecordSize is the length of one record: a big-endian nanosecond
// timestamp followed by the frame bytes
const RecordSize = 8 + adsb.FrameLength

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Reader yields the frames of a recording. Records with a bad CRC or a
// negative timestamp are skipped.
type Reader struct {
	r       io.Reader
	closers []func() error
	logger  *logrus.Logger
	buf     [RecordSize]byte

	records uint64
	skipped uint64
}

// NewReader reads records from r, decompressing it when it starts with a
// zstd frame header.
func NewReader(r io.Reader, logger *logrus.Logger) (*Reader, error) {
	br := bufio.NewReader(r)
	reader := &Reader{r: br, logger: logger}

	magic, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read recording header: %w", err)
	}
	if bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		reader.r = zr
		reader.closers = append(reader.closers, func() error {
			zr.Close()
			return nil
		})
	}
	return reader, nil
}

// Open opens the recording at path; "-" reads standard input.
func Open(path string, logger *logrus.Logger) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin, logger)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	r, err := NewReader(f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closers = append(r.closers, f.Close)
	return r, nil
}

// Next returns the next valid frame, or false at the end of the recording.
// A truncated final record ends the recording.
func (r *Reader) Next() (adsb.RawFrame, bool, error) {
	for {
		_, err := io.ReadFull(r.r, r.buf[:])
		if errors.Is(err, io.EOF) {
			return adsb.RawFrame{}, false, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			r.logger.WithField("records", r.records).Warn("Recording ends with a truncated record")
			return adsb.RawFrame{}, false, nil
		}
		if err != nil {
			return adsb.RawFrame{}, false, fmt.Errorf("failed to read recording: %w", err)
		}
		r.records++

		timestamp := int64(binary.BigEndian.Uint64(r.buf[:8]))
		if timestamp >= 0 {
			if frame, ok := adsb.ParseRawFrame(timestamp, r.buf[8:]); ok {
				return frame, true, nil
			}
		}

		r.skipped++
		r.logger.WithFields(logrus.Fields{
			"record":    r.records,
			"timestamp": timestamp,
		}).Warn("Skipping invalid recorded frame")
	}
}

// Skipped returns the number of records dropped so far
func (r *Reader) Skipped() uint64 {
	return r.skipped
}

// Close releases the underlying file
func (r *Reader) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Writer appends frames in the recording format.
type Writer struct {
	bw      *bufio.Writer
	closers []func() error
	buf     [RecordSize]byte
	count   uint64
}

// NewWriter writes uncompressed records to w
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Create creates the recording at path. A ".zst" suffix selects zstd
// compression.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}
	if !strings.HasSuffix(path, ".zst") {
		w := NewWriter(f)
		w.closers = append(w.closers, f.Close)
		return w, nil
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd stream: %w", err)
	}
	w := NewWriter(zw)
	w.closers = append(w.closers, zw.Close, f.Close)
	return w, nil
}

// Write appends one record
func (w *Writer) Write(frame adsb.RawFrame) error {
	binary.BigEndian.PutUint64(w.buf[:8], uint64(frame.Timestamp()))
	copy(w.buf[8:], frame.Bytes().Bytes())
	if _, err := w.bw.Write(w.buf[:]); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() uint64 {
	return w.count
}

// Flush writes buffered records to the underlying writer
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Close flushes and closes the recording
func (w *Writer) Close() error {
	errs := []error{w.bw.Flush()}
	for _, c := range w.closers {
		errs = append(errs, c())
	}
	w.closers = nil
	return errors.Join(errs...)
}
