package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecorderReturnsNilWhenDisabled(t *testing.T) {
	enabled = false
	registry = nil
	assert.Nil(t, NewRecorder())
}

func TestNewRecorderRegistersWhenEnabled(t *testing.T) {
	reg := InitRegistry()
	require.NotNil(t, reg)
	defer func() { enabled = false; registry = nil }()

	r := NewRecorder()
	require.NotNil(t, r)

	r.RecordMessage(0x1234, "tcp", "inbound", "routed")
	r.RecordRoutingError(0x02)
	r.SetActiveConnections(3)
	r.RecordConnectionStateChange("connected")
	r.RecordReassemblyOutcome("completed")
	r.RecordBytesTransferred("udp", "outbound", 128)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestReturnCodeLabelKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "unknown_service", returnCodeLabel(0x02))
	assert.Equal(t, "unknown", returnCodeLabel(0xFE))
}
