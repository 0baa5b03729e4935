package netio

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/hapcore/hap/crypto"
)

// MaxFrameLen is the largest plaintext payload a single record-layer
// frame may carry.
const MaxFrameLen = 1024

// RecordError is returned by the record layer; the session must be
// dropped on an auth failure without a reply.
type RecordError struct{ msg string }

func (e *RecordError) Error() string { return e.msg }

// ErrAuthFailed is returned when a frame's AEAD tag fails to verify.
var ErrAuthFailed = &RecordError{"record: auth failed"}

// EncodeFrame seals one plaintext frame (<=1024 bytes) using key and the
// given per-direction counter, returning the wire bytes: 2-byte
// little-endian length, ciphertext, 16-byte tag. AAD is the length
// prefix itself.
func EncodeFrame(key [32]byte, counter uint64, plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxFrameLen {
		return nil, errors.New("netio: frame payload exceeds 1024 bytes")
	}
	var lenPrefix [2]byte
	binary.LittleEndian.PutUint16(lenPrefix[:], uint16(len(plaintext)))

	nonce := crypto.CounterNonce(counter)
	sealed, err := crypto.Seal(key, nonce, plaintext, lenPrefix[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 2+len(sealed))
	out = append(out, lenPrefix[:]...)
	out = append(out, sealed...)
	return out, nil
}

// EncodeFrames chunks plaintext into <=1024-byte pieces, each framed and
// encrypted independently with a freshly incremented counter, per
// ("Encryption: chunk outbound plaintext ... each framed
// independently").
func EncodeFrames(key [32]byte, nextCounter func() uint64, plaintext []byte) ([]byte, error) {
	var out []byte
	for len(plaintext) > 0 {
		n := len(plaintext)
		if n > MaxFrameLen {
			n = MaxFrameLen
		}
		frame, err := EncodeFrame(key, nextCounter(), plaintext[:n])
		if err != nil {
			return nil, err
		}
		out = append(out, frame...)
		plaintext = plaintext[n:]
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// ReadFrame reads and decrypts exactly one frame from r: a 2-byte length
// prefix L (1..=1024), then L+16 bytes of ciphertext and tag. Returns
// ErrAuthFailed if the tag does not verify.
func ReadFrame(r io.Reader, key [32]byte, counter uint64) ([]byte, error) {
	var lenPrefix [2]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, err
	}
	l := int(binary.LittleEndian.Uint16(lenPrefix[:]))
	if l == 0 || l > MaxFrameLen {
		return nil, &RecordError{"record: invalid frame length"}
	}

	body := make([]byte, l+crypto.TagSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	nonce := crypto.CounterNonce(counter)
	plaintext, err := crypto.Open(key, nonce, body, lenPrefix[:])
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
