package db

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T) ed25519.PublicKey {
	t.Helper()
	pk, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pk
}

func TestAddThenFindThenRemove(t *testing.T) {
	s := NewMemStore()
	pk := genKey(t)

	p, err := s.Add("controller-1", pk, PermissionAdmin)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
	assert.True(t, s.HasAdmin())
	assert.True(t, s.IsPaired())

	found, ok := s.Find("controller-1")
	require.True(t, ok)
	assert.Equal(t, p.ID, found.ID)

	require.NoError(t, s.Remove("controller-1"))
	_, ok = s.Find("controller-1")
	assert.False(t, ok)
	assert.False(t, s.HasAdmin())
}

func TestRemoveKeepsOtherSlotIDsStable(t *testing.T) {
	s := NewMemStore()
	pk := genKey(t)

	first, err := s.Add("a", pk, PermissionAdmin)
	require.NoError(t, err)
	second, err := s.Add("b", pk, 0)
	require.NoError(t, err)

	require.NoError(t, s.Remove("a"))

	still, ok := s.ByID(second.ID)
	require.True(t, ok)
	assert.Equal(t, second.ID, still.ID)
	assert.NotEqual(t, first.ID, second.ID)

	_, ok = s.ByID(first.ID)
	assert.False(t, ok, "removed slot must read back empty, not shifted")
}

func TestAddDuplicateIdentifierWithDifferentKeyRejected(t *testing.T) {
	s := NewMemStore()
	pk1 := genKey(t)
	pk2 := genKey(t)

	_, err := s.Add("controller-1", pk1, PermissionAdmin)
	require.NoError(t, err)

	_, err = s.Add("controller-1", pk2, PermissionAdmin)
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestAddFullStoreReturnsMaxPeers(t *testing.T) {
	s := NewMemStore()
	pk := genKey(t)
	for i := 0; i < MaxPairings; i++ {
		_, err := s.Add(string(rune('a'+i)), pk, 0)
		require.NoError(t, err)
	}
	_, err := s.Add("overflow", pk, 0)
	assert.ErrorIs(t, err, ErrMaxPeers)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hap.json")

	fs1, err := NewFileStore(path)
	require.NoError(t, err)

	id, err := fs1.AccessoryID()
	require.NoError(t, err)
	sk, pk, err := fs1.AccessoryKeyPair()
	require.NoError(t, err)

	devicePK := genKey(t)
	_, err = fs1.Add("controller-1", devicePK, PermissionAdmin)
	require.NoError(t, err)

	fs2, err := NewFileStore(path)
	require.NoError(t, err)

	reopenedID, err := fs2.AccessoryID()
	require.NoError(t, err)
	assert.Equal(t, id, reopenedID)

	reopenedSK, reopenedPK, err := fs2.AccessoryKeyPair()
	require.NoError(t, err)
	assert.Equal(t, sk, reopenedSK)
	assert.Equal(t, pk, reopenedPK)

	p, ok := fs2.Find("controller-1")
	require.True(t, ok)
	assert.True(t, p.IsAdmin())
}
