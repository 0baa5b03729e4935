// Package netio implements the per-connection session state, the
// ChaCha20-Poly1305 record layer that frames every byte after pair-verify,
// and the net.Listener/net.Conn wiring that lets a stock net/http.Server
// sit on top of it transparently.
package netio

import (
	"sync"

	"github.com/google/uuid"
	"github.com/hapcore/hap/crypto"
	"github.com/hapcore/hap/crypto/srp"
)

// Mode is a session's place in the pair-verify/record-layer lifecycle.
type Mode int

const (
	ModePlain Mode = iota
	ModeVerifying
	ModeEncrypted
)

// PairSetupState holds the SRP context live only during one pair-setup
// attempt.
type PairSetupState struct {
	Server *srp.Server
	// SessionKey is the HKDF-derived key used to decrypt M5 and encrypt
	// M6, distinct from the SRP shared key K.
	SessionKey [32]byte
}

// PairVerifyState holds the Curve25519 context live only during one
// pair-verify attempt.
type PairVerifyState struct {
	AccessorySecret [32]byte
	AccessoryPublic [32]byte
	DevicePublic    [32]byte
	Shared          [32]byte
	SessionKey      [32]byte
}

// Session is the per-connection state machine for one accepted TCP
// connection. One Session is created per accepted connection and
// confined to that connection's goroutine except where noted (the
// pairing store, accessory tree, and the pairing-in-progress query are
// the only cross-session shared surfaces, guarded externally).
type Session struct {
	ID uuid.UUID

	mu   sync.Mutex
	mode Mode

	readKey  [32]byte
	writeKey [32]byte
	readCtr  uint64
	writeCtr uint64

	pairSetup  *PairSetupState
	pairVerify *PairVerifyState

	// pairingInProgress marks this session as the one currently running
	// pair-setup, so the "is any session pairing" query can scan the session set instead of trusting a
	// standalone flag that could go stale on an aborted handshake.
	pairingInProgress bool

	peerPairingID   int
	peerPermissions byte
	authenticated   bool

	subscriptions map[uint64]struct{} // iid set
	pendingEvents map[uint64]interface{}
}

// NewSession creates a fresh plaintext session for a newly accepted
// connection.
func NewSession() *Session {
	return &Session{
		ID:            uuid.New(),
		mode:          ModePlain,
		subscriptions: make(map[uint64]struct{}),
		pendingEvents: make(map[uint64]interface{}),
	}
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) IsEncrypted() bool { return s.Mode() == ModeEncrypted }

// BeginPairSetup marks this session as running pair-setup and stores its
// SRP state, replacing any earlier state on this session (the
// cross-session lockout is enforced by the caller via AnySessionPairing
// over the whole session set).
func (s *Session) BeginPairSetup(st *PairSetupState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairingInProgress = true
	s.pairSetup = st
}

func (s *Session) PairSetupState() *PairSetupState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairSetup
}

// AbortPairSetup clears this session's in-progress pair-setup state and
// zeroes any secrets, so a retry can proceed on the next request.
func (s *Session) AbortPairSetup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pairSetup != nil {
		crypto.Zero(s.pairSetup.SessionKey[:])
	}
	s.pairSetup = nil
	s.pairingInProgress = false
}

// FinishPairSetup clears in-progress state on success without requiring
// the caller to have a PairSetupState to zero a second time.
func (s *Session) FinishPairSetup() {
	s.AbortPairSetup()
}

func (s *Session) IsPairing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairingInProgress
}

func (s *Session) BeginPairVerify(st *PairVerifyState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeVerifying
	s.pairVerify = st
}

func (s *Session) PairVerifyState() *PairVerifyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairVerify
}

// FinishVerify atomically flips the session to Encrypted, installs the
// record-layer keys and zeroes the read/write counters in one critical
// section: there must be no window where keys are derived but the
// Encrypted flag is unset.
func (s *Session) FinishVerify(readKey, writeKey [32]byte, peerPairingID int, peerPermissions byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readKey = readKey
	s.writeKey = writeKey
	s.readCtr = 0
	s.writeCtr = 0
	s.peerPairingID = peerPairingID
	s.peerPermissions = peerPermissions
	s.authenticated = true
	s.mode = ModeEncrypted
	if s.pairVerify != nil {
		crypto.Zero(s.pairVerify.Shared[:])
		crypto.Zero(s.pairVerify.SessionKey[:])
		crypto.Zero(s.pairVerify.AccessorySecret[:])
	}
	s.pairVerify = nil
}

// AbortPairVerify resets the session to plaintext on handshake failure;
// the connection stays open for retry.
func (s *Session) AbortPairVerify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pairVerify != nil {
		crypto.Zero(s.pairVerify.Shared[:])
		crypto.Zero(s.pairVerify.SessionKey[:])
		crypto.Zero(s.pairVerify.AccessorySecret[:])
	}
	s.pairVerify = nil
	s.mode = ModePlain
}

func (s *Session) ReadKey() [32]byte  { s.mu.Lock(); defer s.mu.Unlock(); return s.readKey }
func (s *Session) WriteKey() [32]byte { s.mu.Lock(); defer s.mu.Unlock(); return s.writeKey }

// NextReadCounter returns the current read counter and increments it;
// counters start at 0 and increment once per frame.
func (s *Session) NextReadCounter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.readCtr
	s.readCtr++
	return c
}

func (s *Session) NextWriteCounter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.writeCtr
	s.writeCtr++
	return c
}

func (s *Session) ReadCounter() uint64  { s.mu.Lock(); defer s.mu.Unlock(); return s.readCtr }
func (s *Session) WriteCounter() uint64 { s.mu.Lock(); defer s.mu.Unlock(); return s.writeCtr }

func (s *Session) PeerPairingID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerPairingID
}

func (s *Session) PeerPermissions() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerPermissions
}

func (s *Session) IsAdmin() bool { return s.PeerPermissions()&0x01 == 1 }

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Subscribe adds iid to this session's event subscriptions. Idempotent,
func (s *Session) Subscribe(iid uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[iid] = struct{}{}
}

// Unsubscribe removes iid from this session's event subscriptions.
// Idempotent: removing an absent subscription is a no-op, not an error.
func (s *Session) Unsubscribe(iid uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, iid)
}

func (s *Session) IsSubscribed(iid uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscriptions[iid]
	return ok
}

// SubscribedIIDs returns a snapshot of this session's subscription set.
func (s *Session) SubscribedIIDs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, 0, len(s.subscriptions))
	for iid := range s.subscriptions {
		out = append(out, iid)
	}
	return out
}

// ClearSubscriptions drops every subscription, used when a session
// disconnects or fails to send.
func (s *Session) ClearSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = make(map[uint64]struct{})
}
