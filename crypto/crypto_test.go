package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestX25519SharedSecretAgreement(t *testing.T) {
	aSec, aPub, err := GenerateX25519KeyPair()
	require.NoError(t, err)
	bSec, bPub, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	sharedA, err := X25519(aSec, bPub)
	require.NoError(t, err)
	sharedB, err := X25519(bSec, aPub)
	require.NoError(t, err)

	assert.Equal(t, sharedA, sharedB)
}

func TestX25519RejectsAllZeroOutput(t *testing.T) {
	var zeroScalar, zeroPoint [KeySize]byte
	_, err := X25519(zeroScalar, zeroPoint)
	assert.ErrorIs(t, err, ErrBadPoint)
}

func TestEd25519SignVerifyRoundTrip(t *testing.T) {
	sk, pk, err := GenerateEd25519KeyPair()
	require.NoError(t, err)

	msg := []byte("accPub || accessory_id || devicePub")
	sig := Sign(sk, msg)
	assert.NoError(t, Verify(pk, msg, sig))

	sig[0] ^= 0xFF
	assert.ErrorIs(t, Verify(pk, msg, sig), ErrBadSignature)
}

func TestAEADRoundTrip(t *testing.T) {
	var key [KeySize]byte
	copy(key[:], bytes.Repeat([]byte{0x42}, KeySize))
	nonce := CounterNonce(7)
	plaintext := []byte("hello HAP")

	sealed, err := Seal(key, nonce, plaintext, []byte{0x01, 0x02})
	require.NoError(t, err)

	opened, err := Open(key, nonce, sealed, []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestAEADBitFlipFailsAuth(t *testing.T) {
	var key [KeySize]byte
	nonce := CounterNonce(0)
	sealed, err := Seal(key, nonce, []byte("payload"), nil)
	require.NoError(t, err)

	sealed[0] ^= 0x01
	_, err = Open(key, nonce, sealed, nil)
	assert.ErrorIs(t, err, ErrMacMismatch)
}

func TestHKDFSHA512Deterministic(t *testing.T) {
	ikm := []byte("shared-secret")
	out1, err := HKDFSHA512(ikm, []byte("salt"), []byte("info"), 32)
	require.NoError(t, err)
	out2, err := HKDFSHA512(ikm, []byte("salt"), []byte("info"), 32)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
	assert.Len(t, out1, 32)
}
