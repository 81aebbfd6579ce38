package beast

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// maxBuffer bounds the bytes kept while waiting for the rest of a message
const maxBuffer = 4096

// Decoder splits a Beast byte stream into messages. Input may be fed in
// arbitrary chunks; partial messages are kept until the next call.
type Decoder struct {
	logger *logrus.Logger
	buffer []byte
}

// NewDecoder creates a Beast decoder
func NewDecoder(logger *logrus.Logger) *Decoder {
	return &Decoder{
		logger: logger,
		buffer: make([]byte, 0, maxBuffer),
	}
}

// Decode appends data to the pending input and returns every complete
// message found.
func (d *Decoder) Decode(data []byte) []Message {
	d.buffer = append(d.buffer, data...)

	var messages []Message
	for {
		start := indexSync(d.buffer)
		if start < 0 {
			d.buffer = d.buffer[:0]
			break
		}
		d.buffer = d.buffer[start:]
		if len(d.buffer) < 2 {
			break
		}

		messageType := d.buffer[1]
		size := payloadSize(messageType)
		if size == 0 {
			// an escaped data byte or an unknown type: resync after it
			if messageType != SyncByte {
				d.logger.WithField("message_type", fmt.Sprintf("0x%02x", messageType)).Debug("Unknown Beast message type")
			}
			d.buffer = d.buffer[2:]
			continue
		}

		body, consumed, state := unescape(d.buffer[2:], timestampSize+1+size)
		if state == needMore {
			break
		}
		if state == broken {
			d.logger.WithField("message_type", fmt.Sprintf("0x%02x", messageType)).Debug("Truncated Beast message")
			d.buffer = d.buffer[2+consumed:]
			continue
		}

		var timestamp uint64
		for _, b := range body[:timestampSize] {
			timestamp = timestamp<<8 | uint64(b)
		}
		messages = append(messages, Message{
			Type:      messageType,
			Timestamp: timestamp,
			Signal:    body[timestampSize],
			Data:      body[timestampSize+1:],
		})
		d.buffer = d.buffer[2+consumed:]
	}

	if len(d.buffer) > maxBuffer {
		d.logger.WithField("buffer_size", len(d.buffer)).Debug("Beast buffer overflow, discarding")
		d.buffer = d.buffer[:0]
	}
	return messages
}

func indexSync(b []byte) int {
	for i, c := range b {
		if c == SyncByte {
			return i
		}
	}
	return -1
}

type unescapeState int

const (
	complete unescapeState = iota
	needMore
	broken
)

// unescape reads n logical bytes from b, where a literal 0x1A is sent
// twice. It returns the bytes, how much of b they used and whether the run
// was complete. A lone 0x1A starts a new message, so the run is broken
// and consumed stops just before it.
func unescape(b []byte, n int) ([]byte, int, unescapeState) {
	out := make([]byte, 0, n)
	i := 0
	for len(out) < n {
		if i >= len(b) {
			return nil, i, needMore
		}
		if b[i] != SyncByte {
			out = append(out, b[i])
			i++
			continue
		}
		if i+1 >= len(b) {
			return nil, i, needMore
		}
		if b[i+1] != SyncByte {
			return nil, i, broken
		}
		out = append(out, SyncByte)
		i += 2
	}
	return out, i, complete
}
