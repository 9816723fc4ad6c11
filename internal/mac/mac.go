// Package mac implements a MessageAuthenticationFilter that signs and
// verifies SOME/IP payloads with HMAC-SHA256, grounded on the teacher's
// SMB2 message-signing key (internal/protocol/smb/signing.SigningKey):
// same "zero the signature field, HMAC over the rest, compare bytes"
// shape, generalized from a fixed 64-byte SMB2 header to an
// arbitrary-length SOME/IP payload with a trailing signature.
package mac

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"github.com/marmos91/someipd/internal/collab"
	"github.com/marmos91/someipd/internal/wire"
)

// SignatureSize is the trailing HMAC-SHA256 signature length appended to
// a signed message's payload.
const SignatureSize = 32

// KeySize is the required signing key length.
const KeySize = 32

// Filter implements collab.MessageAuthenticationFilter using HMAC-SHA256
// over (header identity fields || unsigned payload). An all-zero key is
// used like any other key: signatures produced with it verify.
type Filter struct {
	key [KeySize]byte
}

// New constructs a Filter from key, truncating or zero-padding to KeySize
// the same way the teacher's SigningKey normalizes an SMB session key.
func New(key []byte) *Filter {
	f := &Filter{}
	copy(f.key[:], key)
	return f
}

func (f *Filter) sign(header wire.Header, payload []byte) [SignatureSize]byte {
	var sig [SignatureSize]byte
	mac := hmac.New(sha256.New, f.key[:])
	var idBuf [8]byte
	binary.BigEndian.PutUint16(idBuf[0:2], header.ServiceID)
	binary.BigEndian.PutUint16(idBuf[2:4], header.MethodOrEventID)
	binary.BigEndian.PutUint16(idBuf[4:6], header.ClientID)
	binary.BigEndian.PutUint16(idBuf[6:8], header.SessionID)
	mac.Write(idBuf[:])
	mac.Write(payload)
	copy(sig[:], mac.Sum(nil))
	return sig
}

// Verify checks the trailing SignatureSize bytes of payload against the
// computed HMAC and, on success, forwards the unsigned portion.
func (f *Filter) Verify(_, _ uint16, header wire.Header, payload []byte, forward collab.ForwardFunc) error {
	if len(payload) < SignatureSize {
		return ErrSignatureMissing
	}
	body := payload[:len(payload)-SignatureSize]
	provided := payload[len(payload)-SignatureSize:]

	expected := f.sign(header, body)
	if !hmac.Equal(provided, expected[:]) {
		return ErrSignatureInvalid
	}
	forward(header, body)
	return nil
}

// Generate appends an HMAC-SHA256 signature to payload and sends it.
func (f *Filter) Generate(_, _ uint16, header wire.Header, payload []byte, send collab.ForwardFunc) error {
	sig := f.sign(header, payload)
	signed := make([]byte, 0, len(payload)+SignatureSize)
	signed = append(signed, payload...)
	signed = append(signed, sig[:]...)
	send(header, signed)
	return nil
}

// ErrSignatureMissing indicates a payload shorter than one signature.
var ErrSignatureMissing = macError("mac: payload too short for signature")

// ErrSignatureInvalid indicates the HMAC did not match.
var ErrSignatureInvalid = macError("mac: signature verification failed")

type macError string

func (e macError) Error() string { return string(e) }
