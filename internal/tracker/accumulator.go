package tracker

import (
	"fmt"
	"math"
	"time"

	"adsbtrack/internal/adsb"
	"adsbtrack/internal/registry"
)

// PairingWindow is the largest gap between an even and an odd position
// message that may still be merged
const PairingWindow = 10 * time.Second

// Accumulator folds the messages of a single aircraft into its State.
type Accumulator struct {
	state State
	// most recent position message of each parity
	positions [2]*adsb.AirbornePosition
	// timestamp of the message that last touched the trajectory
	trajectoryNs int64
}

// NewAccumulator starts an empty state for addr
func NewAccumulator(addr adsb.IcaoAddress, aircraft registry.Aircraft) *Accumulator {
	return &Accumulator{
		state:        newState(addr, aircraft),
		trajectoryNs: -1,
	}
}

// State returns a snapshot of the accumulated state
func (a *Accumulator) State() State {
	return a.state.clone()
}

// LastMessageNs returns the timestamp of the last message folded in
func (a *Accumulator) LastMessageNs() int64 {
	return a.state.LastMessageNs
}

// Update folds msg into the state. It reports whether the position changed.
func (a *Accumulator) Update(msg adsb.Message) bool {
	if msg.Address() != a.state.Address {
		panic(fmt.Sprintf("tracker: message from %s passed to accumulator of %s", msg.Address(), a.state.Address))
	}
	a.state.LastMessageNs = msg.Time()

	switch m := msg.(type) {
	case adsb.Identification:
		a.state.Category = m.Category
		a.state.CallSign = m.CallSign

	case adsb.AirborneVelocity:
		a.state.Velocity = m.Speed
		a.state.TrackOrHeading = m.TrackOrHeading

	case adsb.AirbornePosition:
		a.setAltitude(m.Altitude)
		a.positions[m.Parity] = &m

		other := a.positions[1-m.Parity]
		if other == nil || m.TimestampNs-other.TimestampNs > PairingWindow.Nanoseconds() {
			return false
		}
		even, odd := a.positions[0], a.positions[1]
		pos, ok := adsb.MergeCPR(even.X, even.Y, odd.X, odd.Y, m.Parity)
		if !ok {
			return false
		}
		a.setPosition(pos)
		return true
	}
	return false
}

func (a *Accumulator) setAltitude(altitude float64) {
	a.state.Altitude = altitude
	a.updateTrajectory()
}

func (a *Accumulator) setPosition(pos adsb.GeoPosition) {
	a.state.Position = &pos
	a.updateTrajectory()
}

// updateTrajectory appends a point when the position moved and otherwise
// refreshes the last point if the same message already touched it
func (a *Accumulator) updateTrajectory() {
	s := &a.state
	if s.Position == nil || math.IsNaN(s.Altitude) {
		return
	}

	point := TrajectoryPoint{Position: *s.Position, Altitude: s.Altitude}
	last := len(s.Trajectory) - 1
	switch {
	case last < 0 || s.Trajectory[last].Position != *s.Position:
		s.Trajectory = append(s.Trajectory, point)
	case s.LastMessageNs == a.trajectoryNs:
		s.Trajectory[last] = point
	}
	a.trajectoryNs = s.LastMessageNs
}
