package db

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a durable PairingStore + KeyStore backed by a single JSON
// file, rewritten atomically (temp file + rename) on every mutation so a
// crash mid-write never leaves a torn file — the "atomic
// per-record updates" requirement, translated from HKStorage.cpp's
// EEPROM.commit() into the idiom a non-embedded Go binary actually has
// available.
type FileStore struct {
	mu   sync.Mutex
	path string

	mem *MemStore
	key *MemKeyStore
}

type fileStoreRecord struct {
	AccessoryID string             `json:"accessory_id,omitempty"`
	AccessorySK ed25519.PrivateKey `json:"accessory_sk,omitempty"`
	AccessoryPK ed25519.PublicKey  `json:"accessory_pk,omitempty"`
	Pairings    []Pairing          `json:"pairings,omitempty"`
}

// NewFileStore opens (or creates) the JSON file at path.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, mem: NewMemStore(), key: NewMemKeyStore()}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var rec fileStoreRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	fs.key.id = rec.AccessoryID
	fs.key.sk = rec.AccessorySK
	fs.key.pk = rec.AccessoryPK
	for _, p := range rec.Pairings {
		if p.ID >= 0 && p.ID < MaxPairings {
			cp := p
			fs.mem.slots[p.ID] = &cp
		}
	}
	return nil
}

// persist must be called with fs.mu held; it snapshots current in-memory
// state and rewrites the backing file atomically.
func (fs *FileStore) persist() error {
	rec := fileStoreRecord{
		AccessoryID: fs.key.id,
		AccessorySK: fs.key.sk,
		AccessoryPK: fs.key.pk,
		Pairings:    fs.mem.List(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".hapdb-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, fs.path)
}

func (fs *FileStore) Add(deviceID string, pk ed25519.PublicKey, perms byte) (Pairing, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p, err := fs.mem.Add(deviceID, pk, perms)
	if err != nil {
		return p, err
	}
	return p, fs.persist()
}

func (fs *FileStore) Update(deviceID string, perms byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mem.Update(deviceID, perms); err != nil {
		return err
	}
	return fs.persist()
}

func (fs *FileStore) Remove(deviceID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mem.Remove(deviceID); err != nil {
		return err
	}
	return fs.persist()
}

func (fs *FileStore) Find(deviceID string) (Pairing, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mem.Find(deviceID)
}

func (fs *FileStore) ByID(id int) (Pairing, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mem.ByID(id)
}

func (fs *FileStore) List() []Pairing {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mem.List()
}

func (fs *FileStore) HasAdmin() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mem.HasAdmin()
}

func (fs *FileStore) IsPaired() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mem.IsPaired()
}

func (fs *FileStore) AccessoryID() (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.key.id != "" {
		return fs.key.id, nil
	}
	id, err := fs.key.AccessoryID()
	if err != nil {
		return "", err
	}
	return id, fs.persist()
}

func (fs *FileStore) AccessoryKeyPair() (ed25519.PrivateKey, ed25519.PublicKey, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.key.sk != nil {
		return fs.key.sk, fs.key.pk, nil
	}
	sk, pk, err := fs.key.AccessoryKeyPair()
	if err != nil {
		return nil, nil, err
	}
	return sk, pk, fs.persist()
}

var (
	_ PairingStore = (*FileStore)(nil)
	_ KeyStore     = (*FileStore)(nil)
)
