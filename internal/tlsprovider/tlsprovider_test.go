package tlsprovider

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "someipd-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

// TestHandshakeConnectsClientAndServer wires a client and server Provider
// back to back through their EmitCiphertextVia/SubmitCiphertext callbacks,
// exercising a full TLS handshake over the bridge with no real socket.
func TestHandshakeConnectsClientAndServer(t *testing.T) {
	cert := selfSignedCert(t)

	server := NewServer(&tls.Config{Certificates: []tls.Certificate{cert}})
	client := NewClient(&tls.Config{InsecureSkipVerify: true})

	server.EmitCiphertextVia(func(b []byte) { client.SubmitCiphertext(b) })
	client.EmitCiphertextVia(func(b []byte) { server.SubmitCiphertext(b) })
	defer server.Close()
	defer client.Close()

	serverConnected := make(chan struct{})
	clientConnected := make(chan struct{})
	server.OnConnected(func() { close(serverConnected) })
	client.OnConnected(func() { close(clientConnected) })

	client.start()

	select {
	case <-clientConnected:
	case <-time.After(3 * time.Second):
		t.Fatal("client never completed handshake")
	}
	select {
	case <-serverConnected:
	case <-time.After(3 * time.Second):
		t.Fatal("server never completed handshake")
	}
}

func TestPlaintextRoundTripsAfterHandshake(t *testing.T) {
	cert := selfSignedCert(t)

	server := NewServer(&tls.Config{Certificates: []tls.Certificate{cert}})
	client := NewClient(&tls.Config{InsecureSkipVerify: true})

	server.EmitCiphertextVia(func(b []byte) { client.SubmitCiphertext(b) })
	client.EmitCiphertextVia(func(b []byte) { server.SubmitCiphertext(b) })
	defer server.Close()
	defer client.Close()

	received := make(chan []byte, 1)
	server.EmitPlaintextVia(func(b []byte) { received <- b })

	clientConnected := make(chan struct{})
	client.OnConnected(func() { close(clientConnected) })
	client.start()

	select {
	case <-clientConnected:
	case <-time.After(3 * time.Second):
		t.Fatal("handshake never completed")
	}

	client.SubmitPlaintext([]byte("hello over tls"))

	select {
	case got := <-received:
		require.Equal(t, "hello over tls", string(got))
	case <-time.After(3 * time.Second):
		t.Fatal("server never received plaintext")
	}
}
