// Package basestation formats tracked aircraft updates as BaseStation (SBS)
// transmission lines.
package basestation

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"adsbtrack/internal/adsb"
	"adsbtrack/internal/tracker"
)

// MessageType is the first field of an SBS line
const MessageType = "MSG"

// Transmission types used for extended squitters
const (
	TransmissionIdentification = 1 // aircraft identification and category
	TransmissionSurface        = 2 // surface position
	TransmissionAirborne       = 3 // airborne position
	TransmissionVelocity       = 4 // airborne velocity
)

// Message is one SBS line. Empty fields are left blank.
type Message struct {
	TransmissionType int
	SessionID        int
	AircraftID       int
	HexIdent         string
	FlightID         int
	Generated        time.Time
	Logged           time.Time
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// String formats m as a comma separated SBS line without the newline
func (m Message) String() string {
	fields := []string{
		MessageType,
		strconv.Itoa(m.TransmissionType),
		strconv.Itoa(m.SessionID),
		strconv.Itoa(m.AircraftID),
		m.HexIdent,
		strconv.Itoa(m.FlightID),
		m.Generated.Format("2006/01/02"),
		m.Generated.Format("15:04:05.000"),
		m.Logged.Format("2006/01/02"),
		m.Logged.Format("15:04:05.000"),
		m.Callsign,
		m.Altitude,
		m.GroundSpeed,
		m.Track,
		m.Latitude,
		m.Longitude,
		m.VerticalRate,
		m.Squawk,
		m.Alert,
		m.Emergency,
		m.SPI,
		m.IsOnGround,
	}
	return strings.Join(fields, ",")
}

// Writer turns tracker events into SBS lines. Frame timestamps are offsets
// from the start of the session, which is anchored at base.
type Writer struct {
	out    io.Writer
	logger *logrus.Logger
	base   time.Time
	now    func() time.Time

	mu         sync.Mutex
	sessionID  int
	aircraftID map[adsb.IcaoAddress]int
	nextID     int
	written    uint64
}

// NewWriter writes lines to out
func NewWriter(out io.Writer, base time.Time, logger *logrus.Logger) *Writer {
	return &Writer{
		out:        out,
		logger:     logger,
		base:       base,
		now:        time.Now,
		sessionID:  1,
		aircraftID: make(map[adsb.IcaoAddress]int),
		nextID:     1,
	}
}

// Handle is a tracker.Handler writing one line per update and forgetting
// aircraft when they are removed.
func (w *Writer) Handle(e tracker.Event) {
	if e.Kind == tracker.Removed {
		w.mu.Lock()
		delete(w.aircraftID, e.Address)
		w.mu.Unlock()
		return
	}
	if err := w.Write(e.Message, e.State, e.PositionChanged); err != nil {
		w.logger.WithError(err).WithField("icao", e.Address.String()).Warn("Failed to write SBS message")
	}
}

// Write formats msg with the current state of its sender. The position is
// only included when msg completed a new position fix.
func (w *Writer) Write(msg adsb.Message, state tracker.State, positionChanged bool) error {
	line, ok := w.Convert(msg, state, positionChanged)
	if !ok {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.out, line.String()+"\n"); err != nil {
		return fmt.Errorf("failed to write SBS line: %w", err)
	}
	w.written++
	return nil
}

// Convert builds the SBS line for msg
func (w *Writer) Convert(msg adsb.Message, state tracker.State, positionChanged bool) (Message, bool) {
	if msg == nil {
		return Message{}, false
	}

	id := w.idFor(msg.Address())
	line := Message{
		SessionID:  w.sessionID,
		AircraftID: id,
		FlightID:   id,
		HexIdent:   msg.Address().String(),
		Generated:  w.base.Add(time.Duration(msg.Time())),
		Logged:     w.now(),
	}

	switch m := msg.(type) {
	case adsb.Identification:
		line.TransmissionType = TransmissionIdentification
		line.Callsign = string(m.CallSign)

	case adsb.AirbornePosition:
		line.TransmissionType = TransmissionAirborne
		line.Altitude = strconv.Itoa(int(math.Round(adsb.ConvertTo(m.Altitude, adsb.Foot))))
		if positionChanged && state.HasPosition() {
			line.Latitude = strconv.FormatFloat(state.Position.LatitudeDeg(), 'f', 5, 64)
			line.Longitude = strconv.FormatFloat(state.Position.LongitudeDeg(), 'f', 5, 64)
		}
		line.IsOnGround = "0"

	case adsb.AirborneVelocity:
		line.TransmissionType = TransmissionVelocity
		line.GroundSpeed = strconv.Itoa(int(math.Round(adsb.ConvertTo(m.Speed, adsb.Knot))))
		line.Track = strconv.FormatFloat(adsb.ConvertTo(m.TrackOrHeading, adsb.Degree), 'f', 1, 64)

	default:
		return Message{}, false
	}
	return line, true
}

func (w *Writer) idFor(addr adsb.IcaoAddress) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	id, ok := w.aircraftID[addr]
	if !ok {
		id = w.nextID
		w.nextID++
		w.aircraftID[addr] = id
	}
	return id
}

// Written returns the number of lines written
func (w *Writer) Written() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}
