// Package ifmonitor observes link state for the network interfaces that
// host configured local addresses, per spec §4.11. On Down, every
// endpoint bound to that interface must close; on Up, endpoints resume.
// It notifies observers and lets late subscribers query current state,
// since the monitor is queried on registration rather than only pushing
// edge-triggered events.
package ifmonitor

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/marmos91/someipd/internal/logger"
)

// LinkState is an interface's observed state.
type LinkState int

const (
	LinkUnknown LinkState = iota
	LinkUp
	LinkDown
)

func (s LinkState) String() string {
	switch s {
	case LinkUp:
		return "up"
	case LinkDown:
		return "down"
	default:
		return "unknown"
	}
}

// Observer is notified of link transitions for one interface.
type Observer func(iface string, state LinkState)

// Monitor polls interface flags on a ticker (the teacher's BaseAdapter
// uses the same ticker-driven background-loop shape for its own periodic
// metrics logging) and fans out transitions to registered observers.
// Go exposes no link-change netlink subscription in the standard library,
// so polling net.Interfaces() is the portable approach; a
// platform-specific netlink listener could replace pollOnce without
// changing the public API.
type Monitor struct {
	interval time.Duration

	mu        sync.Mutex
	states    map[string]LinkState
	observers map[string][]Observer
}

// New constructs a Monitor that polls every interval.
func New(interval time.Duration) *Monitor {
	return &Monitor{
		interval:  interval,
		states:    make(map[string]LinkState),
		observers: make(map[string][]Observer),
	}
}

// Observe registers fn for transitions on iface and immediately invokes it
// with the current state, per §4.11 "queried on observer registration so
// late subscribers see the current state."
func (m *Monitor) Observe(iface string, fn Observer) {
	m.mu.Lock()
	state := m.states[iface]
	m.observers[iface] = append(m.observers[iface], fn)
	m.mu.Unlock()

	fn(iface, state)
}

// State returns the last-observed state for iface.
func (m *Monitor) State(iface string) LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[iface]
}

// Run polls interface state every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.pollOnce()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce()
		}
	}
}

func (m *Monitor) pollOnce() {
	ifaces, err := net.Interfaces()
	if err != nil {
		logger.Debug("ifmonitor: failed to list interfaces", logger.Err(err))
		return
	}

	for _, iface := range ifaces {
		state := LinkDown
		if iface.Flags&net.FlagUp != 0 {
			state = LinkUp
		}
		m.transition(iface.Name, state)
	}
}

func (m *Monitor) transition(iface string, state LinkState) {
	m.mu.Lock()
	prev, known := m.states[iface]
	if known && prev == state {
		m.mu.Unlock()
		return
	}
	m.states[iface] = state
	observers := append([]Observer(nil), m.observers[iface]...)
	m.mu.Unlock()

	for _, obs := range observers {
		obs(iface, state)
	}
}
