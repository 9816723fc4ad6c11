package mac

import (
	"testing"

	"github.com/marmos91/someipd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateThenVerifyRoundTrips(t *testing.T) {
	f := New([]byte("a 32 byte signing key, exactly!"))
	h := wire.Header{ServiceID: 1, MethodOrEventID: 2, ClientID: 3, SessionID: 4}

	var signed []byte
	require.NoError(t, f.Generate(1, 1, h, []byte("payload"), func(_ wire.Header, p []byte) { signed = p }))
	assert.Len(t, signed, len("payload")+SignatureSize)

	var forwarded []byte
	require.NoError(t, f.Verify(1, 1, h, signed, func(_ wire.Header, p []byte) { forwarded = p }))
	assert.Equal(t, []byte("payload"), forwarded)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	f := New([]byte("key"))
	h := wire.Header{ServiceID: 1}

	var signed []byte
	require.NoError(t, f.Generate(1, 1, h, []byte("payload"), func(_ wire.Header, p []byte) { signed = p }))
	signed[0] ^= 0xFF

	err := f.Verify(1, 1, h, signed, func(wire.Header, []byte) {
		t.Fatal("forward must not be called on a tampered message")
	})
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyRejectsTooShortPayload(t *testing.T) {
	f := New([]byte("key"))
	err := f.Verify(1, 1, wire.Header{}, []byte("short"), func(wire.Header, []byte) {
		t.Fatal("forward must not be called")
	})
	assert.ErrorIs(t, err, ErrSignatureMissing)
}
