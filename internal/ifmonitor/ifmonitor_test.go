package ifmonitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserveFiresImmediatelyWithCurrentState(t *testing.T) {
	m := New(0)
	m.transition("eth0", LinkUp)

	var got LinkState
	calls := 0
	m.Observe("eth0", func(iface string, state LinkState) {
		calls++
		got = state
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, LinkUp, got)
}

func TestObserveDefaultsToUnknownBeforeAnyTransition(t *testing.T) {
	m := New(0)
	var got LinkState
	m.Observe("eth1", func(iface string, state LinkState) { got = state })
	assert.Equal(t, LinkUnknown, got)
}

func TestTransitionNotifiesObserversOnChangeOnly(t *testing.T) {
	m := New(0)
	var transitions []LinkState
	m.Observe("eth0", func(iface string, state LinkState) { transitions = append(transitions, state) })

	m.transition("eth0", LinkUp)
	m.transition("eth0", LinkUp) // no-op, same state
	m.transition("eth0", LinkDown)

	assert.Equal(t, []LinkState{LinkUnknown, LinkUp, LinkDown}, transitions)
}

func TestStateReflectsLastTransition(t *testing.T) {
	m := New(0)
	m.transition("eth0", LinkDown)
	assert.Equal(t, LinkDown, m.State("eth0"))
}
