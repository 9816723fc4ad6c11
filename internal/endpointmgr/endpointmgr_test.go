package endpointmgr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInternsSingleEndpointPerKey(t *testing.T) {
	m := New()
	key := Key{Address: "192.168.1.1", Port: 30509, Protocol: ProtocolUDP}

	opens := 0
	open := func() (any, error) {
		opens++
		return "handle", nil
	}

	ep1, err := m.Create(key, VariantActiveUnicast, open)
	require.NoError(t, err)
	ep2, err := m.Create(key, VariantActiveUnicast, open)
	require.NoError(t, err)

	assert.Same(t, ep1, ep2)
	assert.Equal(t, 1, opens)
	assert.Equal(t, 2, ep1.refs)
}

func TestCreatePropagatesOpenError(t *testing.T) {
	m := New()
	key := Key{Address: "0.0.0.0", Port: 1, Protocol: ProtocolTCP}
	wantErr := errors.New("bind failed")

	_, err := m.Create(key, VariantPassiveUnicast, func() (any, error) { return nil, wantErr })
	assert.ErrorIs(t, err, wantErr)

	_, ok := m.Lookup(key)
	assert.False(t, ok)
}

func TestReleaseClosesOnLastReference(t *testing.T) {
	m := New()
	key := Key{Address: "127.0.0.1", Port: 5000, Protocol: ProtocolTCP}

	_, err := m.Create(key, VariantActiveUnicast, func() (any, error) { return "handle", nil })
	require.NoError(t, err)
	_, err = m.Create(key, VariantActiveUnicast, func() (any, error) { return "handle", nil })
	require.NoError(t, err)

	closed := 0
	closeFn := func(any) error { closed++; return nil }

	require.NoError(t, m.Release(key, closeFn))
	_, ok := m.Lookup(key)
	assert.True(t, ok, "endpoint should still be interned after one of two releases")
	assert.Equal(t, 0, closed)

	require.NoError(t, m.Release(key, closeFn))
	_, ok = m.Lookup(key)
	assert.False(t, ok)
	assert.Equal(t, 1, closed)
}

func TestCreateRejectsMismatchedVariant(t *testing.T) {
	m := New()
	key := Key{Address: "127.0.0.1", Port: 30509, Protocol: ProtocolUDP}

	_, err := m.Create(key, VariantActiveUnicast, func() (any, error) { return "handle", nil })
	require.NoError(t, err)

	_, err = m.Create(key, VariantMulticast, func() (any, error) { return "handle", nil })
	var alreadyExists *ErrAlreadyExists
	require.ErrorAs(t, err, &alreadyExists)
	assert.Equal(t, key, alreadyExists.Key)
}

func TestKeyStringIncludesSecured(t *testing.T) {
	k := Key{Address: "10.0.0.1", Port: 30501, Protocol: ProtocolTCP, Secured: true}
	assert.Contains(t, k.String(), "+tls")
}
