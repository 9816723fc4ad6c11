package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		ServiceID:        0x1234,
		MethodOrEventID:  0x0010,
		Length:           16,
		ClientID:         0x0001,
		SessionID:        0x0001,
		ProtocolVersion:  ProtocolVersion,
		InterfaceVersion: 1,
		MessageType:      MessageTypeRequest,
		ReturnCode:       ReturnCodeOK,
	}

	buf := make([]byte, HeaderSize)
	h.Encode(buf)

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestDecodeHeaderRejectsShortLength(t *testing.T) {
	h := Header{Length: LengthMin - 1}
	buf := make([]byte, HeaderSize)
	h.Encode(buf)

	_, err := DecodeHeader(buf)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestDecodeHeaderRejectsOversizeLength(t *testing.T) {
	buf := make([]byte, HeaderSize)
	h := Header{Length: LengthMin}
	h.Encode(buf)
	// corrupt the length field directly to something beyond LengthMax
	buf[4], buf[5], buf[6], buf[7] = 0xFF, 0xFF, 0xFF, 0xFF

	_, err := DecodeHeader(buf)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestDecodeHeaderRejectsWrongSize(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderSize-1))
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestTPHeaderRoundTrip(t *testing.T) {
	cases := []TPHeader{
		{Offset: 0, More: true},
		{Offset: 16, More: true},
		{Offset: 0xFFFFFFF0, More: false},
	}
	for _, tp := range cases {
		buf := make([]byte, TPHeaderSize)
		tp.Encode(buf)
		got, err := DecodeTPHeader(buf)
		require.NoError(t, err)
		assert.Equal(t, tp, got)
	}
}

func TestDecodeTPHeaderRejectsReservedBits(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0b0000_0010} // reserved bit set, not the more-flag
	_, err := DecodeTPHeader(buf)
	assert.ErrorIs(t, err, ErrMalformedTPHeader)
}

func TestPDUHeaderRoundTrip(t *testing.T) {
	p := PDUHeader{PduID: 0xDEADBEEF, Length: 42}
	buf := make([]byte, PDUHeaderSize)
	p.Encode(buf)

	got, err := DecodePDUHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestIsTP(t *testing.T) {
	assert.True(t, Header{MessageType: MessageTypeNotification | MessageTypeTPFlag}.IsTP())
	assert.False(t, Header{MessageType: MessageTypeNotification}.IsTP())
}
