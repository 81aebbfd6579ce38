package beast

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"adsbtrack/internal/adsb"
)

const readChunk = 4096

// Reader yields the CRC-checked extended squitters of a Beast stream.
// Short frames, Mode A/C replies and status messages are ignored.
type Reader struct {
	r       io.Reader
	decoder *Decoder
	logger  *logrus.Logger
	chunk   []byte
	pending []Message
	done    bool

	messages uint64
	rejected uint64
}

// NewReader reads a Beast stream from r
func NewReader(r io.Reader, logger *logrus.Logger) *Reader {
	return &Reader{
		r:       r,
		decoder: NewDecoder(logger),
		logger:  logger,
		chunk:   make([]byte, readChunk),
	}
}

// Next returns the next valid long frame, or false at the end of the stream.
func (r *Reader) Next() (adsb.RawFrame, bool, error) {
	for {
		for len(r.pending) > 0 {
			msg := r.pending[0]
			r.pending = r.pending[1:]
			r.messages++

			if frame, ok := r.frame(msg); ok {
				return frame, true, nil
			}
		}
		if r.done {
			return adsb.RawFrame{}, false, nil
		}

		n, err := r.r.Read(r.chunk)
		if n > 0 {
			r.pending = r.decoder.Decode(r.chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			r.done = true
		} else if err != nil {
			return adsb.RawFrame{}, false, fmt.Errorf("failed to read beast stream: %w", err)
		}
	}
}

func (r *Reader) frame(msg Message) (adsb.RawFrame, bool) {
	if msg.Type != ModeSLong || !msg.Valid() || msg.DF() != adsb.DownlinkFormatES {
		return adsb.RawFrame{}, false
	}
	frame, ok := adsb.ParseRawFrame(msg.TimestampNs(), msg.Data)
	if !ok {
		r.rejected++
		r.logger.WithFields(logrus.Fields{
			"icao":   msg.ICAO().String(),
			"signal": msg.Signal,
		}).Debug("Dropping beast frame with bad CRC")
		return adsb.RawFrame{}, false
	}
	return frame, true
}

// Stats returns the number of Beast messages seen and long frames rejected
func (r *Reader) Stats() (messages, rejected uint64) {
	return r.messages, r.rejected
}
