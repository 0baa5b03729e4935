// Package crypto wraps the fixed, non-negotiable algorithm set HAP requires:
// Curve25519, Ed25519, SHA-512, HKDF-SHA-512 and ChaCha20-Poly1305.
package crypto

import "errors"

// CryptoError is the sentinel error type every primitive in this package
// returns on failure.
type CryptoError struct {
	msg string
}

func (e *CryptoError) Error() string { return e.msg }

var (
	// ErrMacMismatch is returned when an AEAD tag fails to verify.
	ErrMacMismatch = &CryptoError{"crypto: mac mismatch"}
	// ErrBadPoint is returned when a Curve25519 scalar multiplication
	// yields the all-zero output.
	ErrBadPoint = &CryptoError{"crypto: bad curve point"}
	// ErrBadSignature is returned when an Ed25519 signature fails to verify.
	ErrBadSignature = &CryptoError{"crypto: bad signature"}
)

// Is allows errors.Is(err, crypto.ErrMacMismatch) style checks even though
// the sentinels above are package-level singletons, not wrapped errors.
func (e *CryptoError) Is(target error) bool {
	var ce *CryptoError
	if errors.As(target, &ce) {
		return ce.msg == e.msg
	}
	return false
}
