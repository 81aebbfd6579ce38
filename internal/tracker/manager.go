package tracker

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"adsbtrack/internal/adsb"
	"adsbtrack/internal/registry"
)

// PurgeWindow is how long an aircraft survives without sending a message
const PurgeWindow = time.Minute

// Directory provides static aircraft data
type Directory interface {
	Lookup(addr adsb.IcaoAddress) (registry.Aircraft, bool, error)
}

// EventKind says what happened to an aircraft
type EventKind int

const (
	Added EventKind = iota
	Updated
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event reports a change to the tracked set
type Event struct {
	Kind    EventKind
	Address adsb.IcaoAddress
	State   State
	// Message is the update that caused an Added or Updated event
	Message         adsb.Message
	PositionChanged bool
}

// Handler receives events synchronously from Update and Purge
type Handler func(Event)

// Manager keeps one accumulator per aircraft and ages out silent ones.
// It is meant to be driven by a single goroutine.
type Manager struct {
	logger       *logrus.Logger
	directory    Directory
	accumulators map[adsb.IcaoAddress]*Accumulator
	handlers     []Handler

	// timestamp of the most recently processed message
	lastMessageNs int64
}

// NewManager creates an empty manager. directory may be nil, in which case
// every aircraft is registry.Unknown.
func NewManager(directory Directory, logger *logrus.Logger) *Manager {
	return &Manager{
		logger:       logger,
		directory:    directory,
		accumulators: make(map[adsb.IcaoAddress]*Accumulator),
	}
}

// OnEvent registers a handler
func (m *Manager) OnEvent(h Handler) {
	m.handlers = append(m.handlers, h)
}

func (m *Manager) emit(e Event) {
	for _, h := range m.handlers {
		h(e)
	}
}

// Update folds msg into the state of its sender, creating it if needed.
func (m *Manager) Update(msg adsb.Message) {
	addr := msg.Address()
	acc, ok := m.accumulators[addr]
	kind := Updated
	if !ok {
		acc = NewAccumulator(addr, m.lookup(addr))
		m.accumulators[addr] = acc
		kind = Added

		m.logger.WithField("icao", addr.String()).Debug("Tracking new aircraft")
	}

	moved := acc.Update(msg)
	m.lastMessageNs = msg.Time()

	if len(m.handlers) > 0 {
		m.emit(Event{Kind: kind, Address: addr, State: acc.State(), Message: msg, PositionChanged: moved})
	}
}

func (m *Manager) lookup(addr adsb.IcaoAddress) registry.Aircraft {
	if m.directory == nil {
		return registry.Unknown
	}
	aircraft, _, err := m.directory.Lookup(addr)
	if err != nil {
		m.logger.WithError(err).WithField("icao", addr.String()).Warn("Aircraft registry lookup failed")
		return registry.Unknown
	}
	return aircraft
}

// Purge removes aircraft silent for longer than PurgeWindow before the most
// recently processed message. It returns the number removed.
func (m *Manager) Purge() int {
	return m.PurgeAt(m.lastMessageNs)
}

// PurgeAt is Purge measured against nowNs instead of the last message time.
func (m *Manager) PurgeAt(nowNs int64) int {
	limit := nowNs - PurgeWindow.Nanoseconds()
	removed := 0
	for addr, acc := range m.accumulators {
		if acc.LastMessageNs() >= limit {
			continue
		}
		delete(m.accumulators, addr)
		removed++
		m.emit(Event{Kind: Removed, Address: addr, State: acc.State()})
	}

	if removed > 0 {
		m.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(m.accumulators),
		}).Debug("Purged silent aircraft")
	}
	return removed
}

// LastMessageNs returns the timestamp of the most recently processed message
func (m *Manager) LastMessageNs() int64 {
	return m.lastMessageNs
}

// Len returns the number of tracked aircraft
func (m *Manager) Len() int {
	return len(m.accumulators)
}

// Get returns the state of addr
func (m *Manager) Get(addr adsb.IcaoAddress) (State, bool) {
	acc, ok := m.accumulators[addr]
	if !ok {
		return State{}, false
	}
	return acc.State(), true
}

// States returns every tracked aircraft ordered by address
func (m *Manager) States() []State {
	states := make([]State, 0, len(m.accumulators))
	for _, acc := range m.accumulators {
		states = append(states, acc.State())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Address < states[j].Address })
	return states
}

// Visible returns the aircraft with a known position ordered by address
func (m *Manager) Visible() []State {
	var visible []State
	for _, s := range m.States() {
		if s.HasPosition() {
			visible = append(visible, s)
		}
	}
	return visible
}
