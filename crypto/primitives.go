package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the length in bytes of a Curve25519 key, a ChaCha20-Poly1305
// key, and half of an HKDF-SHA-512 derived key pair.
const KeySize = 32

// GenerateX25519KeyPair returns a fresh random Curve25519 scalar and the
// corresponding public point, suitable for one pair-verify exchange.
func GenerateX25519KeyPair() (secret, public [KeySize]byte, err error) {
	if _, err = rand.Read(secret[:]); err != nil {
		return secret, public, err
	}
	pub, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return secret, public, err
	}
	copy(public[:], pub)
	return secret, public, nil
}

// X25519 computes the shared secret for scalar*point, returning ErrBadPoint
// if the result is the all-zero sentinel the curve uses to flag a
// degenerate input.
func X25519(scalar, point [KeySize]byte) ([KeySize]byte, error) {
	var shared [KeySize]byte
	out, err := curve25519.X25519(scalar[:], point[:])
	if err != nil {
		return shared, ErrBadPoint
	}
	copy(shared[:], out)
	if isAllZero(shared[:]) {
		return shared, ErrBadPoint
	}
	return shared, nil
}

func isAllZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}

// GenerateEd25519KeyPair returns a fresh Ed25519 long-term key pair, used
// once on first boot to create the accessory's persistent identity.
func GenerateEd25519KeyPair() (sk ed25519.PrivateKey, pk ed25519.PublicKey, err error) {
	pk, sk, err = ed25519.GenerateKey(rand.Reader)
	return sk, pk, err
}

// Sign signs message with an Ed25519 long-term secret key.
func Sign(sk ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(sk, message)
}

// Verify checks an Ed25519 signature, returning ErrBadSignature on mismatch.
func Verify(pk ed25519.PublicKey, message, signature []byte) error {
	if len(pk) != ed25519.PublicKeySize {
		return ErrBadSignature
	}
	if !ed25519.Verify(pk, message, signature) {
		return ErrBadSignature
	}
	return nil
}

// SHA512 hashes the concatenation of every part.
func SHA512(parts ...[]byte) [64]byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Zero overwrites a secret-holding buffer with zero bytes, used on every
// error and success path once a secret is no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
