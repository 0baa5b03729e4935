package crypto

import (
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFSHA512 derives L bytes of key material via RFC 5869 HKDF-SHA-512,
// the sole KDF HAP uses (pair-setup session key, controller/accessory
// signing salts, pair-verify session key, and the record-layer read/write
// keys all go through this one function with different salt/info pairs).
func HKDFSHA512(ikm, salt, info []byte, l int) ([]byte, error) {
	r := hkdf.New(sha512.New, ikm, salt, info)
	out := make([]byte, l)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
