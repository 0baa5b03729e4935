package db

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	hapcrypto "github.com/hapcore/hap/crypto"
)

// KeyStore is the accessory identity contract. AccessoryID and
// AccessoryKeyPair are generated once, lazily, on first call, and
// persisted thereafter.
type KeyStore interface {
	AccessoryID() (string, error)
	AccessoryKeyPair() (ed25519.PrivateKey, ed25519.PublicKey, error)
}

// MemKeyStore is an in-memory KeyStore, generating identity on first use
// and holding it for the process lifetime.
type MemKeyStore struct {
	mu sync.Mutex
	id string
	sk ed25519.PrivateKey
	pk ed25519.PublicKey
}

// NewMemKeyStore returns a KeyStore with no identity yet generated.
func NewMemKeyStore() *MemKeyStore {
	return &MemKeyStore{}
}

// AccessoryID returns the persistent 17-byte colon-separated device id
// "XX:XX:XX:XX:XX:XX", generating a random one on first call.
func (s *MemKeyStore) AccessoryID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != "" {
		return s.id, nil
	}
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	s.id = fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
	return s.id, nil
}

// AccessoryKeyPair returns the persistent Ed25519 long-term key pair,
// generating one on first call.
func (s *MemKeyStore) AccessoryKeyPair() (ed25519.PrivateKey, ed25519.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sk != nil {
		return s.sk, s.pk, nil
	}
	sk, pk, err := hapcrypto.GenerateEd25519KeyPair()
	if err != nil {
		return nil, nil, err
	}
	s.sk, s.pk = sk, pk
	return s.sk, s.pk, nil
}

var _ KeyStore = (*MemKeyStore)(nil)
