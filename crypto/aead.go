package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the fixed ChaCha20-Poly1305 nonce length HAP uses everywhere:
// handshake messages and record-layer frames alike.
const NonceSize = chacha20poly1305.NonceSize

// TagSize is the Poly1305 authentication tag length appended to every
// sealed message.
const TagSize = chacha20poly1305.Overhead

// FixedNonce builds the 12-byte nonce HAP's handshake messages use: four
// zero bytes followed by the left-padded ASCII label (e.g. "PS-Msg05").
func FixedNonce(label string) [NonceSize]byte {
	var n [NonceSize]byte
	copy(n[NonceSize-len(label):], label)
	return n
}

// CounterNonce builds the record-layer nonce for a frame: four zero bytes
// followed by an 8-byte little-endian counter.
func CounterNonce(counter uint64) [NonceSize]byte {
	var n [NonceSize]byte
	binary.LittleEndian.PutUint64(n[4:], counter)
	return n
}

// Seal encrypts and authenticates plaintext under key/nonce with optional
// associated data, returning ciphertext||tag.
func Seal(key [KeySize]byte, nonce [NonceSize]byte, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, aad), nil
}

// Open authenticates and decrypts ciphertext||tag under key/nonce with
// optional associated data, returning ErrMacMismatch on tag failure.
func Open(key [KeySize]byte, nonce [NonceSize]byte, ciphertextAndTag, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	out, err := aead.Open(nil, nonce[:], ciphertextAndTag, aad)
	if err != nil {
		return nil, ErrMacMismatch
	}
	return out, nil
}
