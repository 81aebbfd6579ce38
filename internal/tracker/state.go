// Package tracker folds decoded messages into per-aircraft state.
package tracker

import (
	"math"

	"adsbtrack/internal/adsb"
	"adsbtrack/internal/registry"
)

// TrajectoryPoint is one past position of an aircraft
type TrajectoryPoint struct {
	Position adsb.GeoPosition
	Altitude float64 // metres
}

// State is what is currently known about one aircraft. Unknown floating
// point values are NaN.
type State struct {
	Address  adsb.IcaoAddress
	Aircraft registry.Aircraft

	LastMessageNs  int64
	Category       uint8
	CallSign       adsb.CallSign
	Position       *adsb.GeoPosition
	Altitude       float64 // metres
	Velocity       float64 // metres per second
	TrackOrHeading float64 // radians

	Trajectory []TrajectoryPoint
}

func newState(addr adsb.IcaoAddress, aircraft registry.Aircraft) State {
	return State{
		Address:        addr,
		Aircraft:       aircraft,
		Altitude:       math.NaN(),
		Velocity:       math.NaN(),
		TrackOrHeading: math.NaN(),
	}
}

// HasPosition reports whether a global position has been decoded
func (s State) HasPosition() bool {
	return s.Position != nil
}

// clone returns a copy sharing no memory with s
func (s State) clone() State {
	c := s
	if s.Position != nil {
		p := *s.Position
		c.Position = &p
	}
	if s.Trajectory != nil {
		c.Trajectory = make([]TrajectoryPoint, len(s.Trajectory))
		copy(c.Trajectory, s.Trajectory)
	}
	return c
}
