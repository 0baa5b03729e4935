package srp

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSRPAgreement(t *testing.T) {
	password := []byte("123-45-678")

	server, err := NewServer(password)
	require.NoError(t, err)

	client := newTestClient(password)
	client.generate(server.Salt, server.B)

	require.NoError(t, server.SetClientPublicKey(client.A.Bytes()))
	assert.True(t, bytes.Equal(server.SharedKey(), client.k), "server and client K must agree")

	m2, err := server.VerifyClientProof(client.m1)
	require.NoError(t, err)
	assert.NotEmpty(t, m2)
}

func TestSRPWrongPasswordFailsM1(t *testing.T) {
	server, err := NewServer([]byte("123-45-678"))
	require.NoError(t, err)

	client := newTestClient([]byte("000-00-000"))
	client.generate(server.Salt, server.B)

	require.NoError(t, server.SetClientPublicKey(client.A.Bytes()))

	_, err = server.VerifyClientProof(client.m1)
	assert.ErrorIs(t, err, ErrProofMismatch)
}

func TestSRPDegenerateClientPublicKeyRejected(t *testing.T) {
	server, err := NewServer([]byte("123-45-678"))
	require.NoError(t, err)

	err = server.SetClientPublicKey(modN.Bytes()) // A mod N == 0
	assert.ErrorIs(t, err, ErrBadClientPublicKey)
}

// TestSRPVerifyClientProofPadsShortClientPublicKey is a known-answer test
// for a client public key A whose big-endian encoding is shorter than the
// 384-byte group modulus (big.Int.Bytes() strips the leading zero bytes a
// real HAP controller would still transmit/hash as fixed-width). M1/M2
// must be computed from A padded out to modN_len, not from the short
// encoding, matching RFC 5054 and the Apple SRP variant's fixed-width
// hashing of A and B. A pair-setup attempt with such an A is well within
// the ~1/256 chance per handshake, so a real controller must still agree
// with the accessory's M1/M2 in that case.
func TestSRPVerifyClientProofPadsShortClientPublicKey(t *testing.T) {
	shortA := big.NewInt(12345) // encodes in 2 bytes, far short of modN_len
	salt := bytes.Repeat([]byte{0x42}, 16)
	k := bytes.Repeat([]byte{0x99}, 64)

	server := &Server{
		Salt: salt,
		B:    pad(big.NewInt(67890), modN_len),
		a:    shortA,
		k:    k,
	}

	hn := hashBytes(pad(modN, modN_len))
	hg := hashBytes(pad(modG, modN_len))
	hxor := make([]byte, len(hn))
	for i := range hn {
		hxor[i] = hn[i] ^ hg[i]
	}
	hi := hashBytes([]byte(Identity))

	correctM1 := hashBytes(hxor, hi, salt, pad(shortA, modN_len), server.B, k)
	m2, err := server.VerifyClientProof(correctM1)
	require.NoError(t, err, "M1 built from the fixed-width padded A must verify")
	assert.Equal(t, hashBytes(pad(shortA, modN_len), correctM1, k), m2)

	unpaddedM1 := hashBytes(hxor, hi, salt, shortA.Bytes(), server.B, k)
	_, err = server.VerifyClientProof(unpaddedM1)
	assert.ErrorIs(t, err, ErrProofMismatch, "M1 built from the short, unpadded A must not verify")
}

func TestSRPFreshSaltPerServer(t *testing.T) {
	s1, err := NewServer([]byte("123-45-678"))
	require.NoError(t, err)
	s2, err := NewServer([]byte("123-45-678"))
	require.NoError(t, err)

	assert.False(t, bytes.Equal(s1.Salt, s2.Salt), "each server must draw a fresh salt")
	assert.False(t, bytes.Equal(s1.B, s2.B), "each server must draw a fresh ephemeral b")
}
