package pair

import (
	"crypto/ed25519"
	"errors"

	"github.com/hapcore/hap/db"
	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/netio"
	"github.com/hapcore/hap/tlv8"
)

type pairingsPayload struct {
	Method      byte   `tlv8:"0"`
	Identifier  string `tlv8:"1"`
	PublicKey   []byte `tlv8:"3"`
	State       byte   `tlv8:"6"`
	Permissions byte   `tlv8:"11"`
}

// PairingsConfig bundles the collaborators the /pairings endpoint needs.
type PairingsConfig struct {
	Pairings db.PairingStore

	// CloseSessionsWithPairingID force-closes every live session
	// authenticated as the given pairing slot.
	CloseSessionsWithPairingID func(id int)
	// Restart is invoked when the last admin pairing is removed: the
	// accessory restarts unpaired.
	Restart func()
	// OnPairingChange flips mDNS's sf flag on any pairing-state change.
	OnPairingChange func()
}

// HandlePairings dispatches one /pairings request. sess must already be
// Encrypted and authenticated as admin; callers enforce that before
// calling this.
func HandlePairings(cfg PairingsConfig, sess *netio.Session, body []byte) []byte {
	var req pairingsPayload
	if err := tlv8.Unmarshal(body, &req); err != nil {
		log.Info.Printf("pairings: malformed tlv8: %v", err)
		return errorReply(2, ErrUnknown)
	}

	switch Method(req.Method) {
	case MethodAddPairing:
		return handleAddPairing(cfg, req)
	case MethodRemovePairing:
		return handleRemovePairing(cfg, req)
	case MethodListPairings:
		return handleListPairings(cfg)
	default:
		log.Info.Printf("pairings: unknown method %d", req.Method)
		return errorReply(2, ErrUnknown)
	}
}

func handleAddPairing(cfg PairingsConfig, req pairingsPayload) []byte {
	if existing, ok := cfg.Pairings.Find(req.Identifier); ok {
		if !existing.PublicKey.Equal(ed25519.PublicKey(req.PublicKey)) {
			log.Info.Printf("pairings: add-pairing key mismatch for %q", req.Identifier)
			return errorReply(2, ErrUnknown)
		}
		if err := cfg.Pairings.Update(req.Identifier, req.Permissions); err != nil {
			return errorReply(2, ErrUnknown)
		}
	} else {
		if _, err := cfg.Pairings.Add(req.Identifier, req.PublicKey, req.Permissions); err != nil {
			if errors.Is(err, db.ErrMaxPeers) {
				return errorReply(2, ErrMaxPeers)
			}
			log.Info.Printf("pairings: add-pairing: %v", err)
			return errorReply(2, ErrUnknown)
		}
	}

	if cfg.OnPairingChange != nil {
		cfg.OnPairingChange()
	}

	resp, _ := tlv8.Marshal(struct {
		State byte `tlv8:"6"`
	}{State: 2})
	return resp
}

func handleRemovePairing(cfg PairingsConfig, req pairingsPayload) []byte {
	pairing, ok := cfg.Pairings.Find(req.Identifier)
	if !ok {
		// Removing an absent pairing is not an error per HAP; reply success.
		resp, _ := tlv8.Marshal(struct {
			State byte `tlv8:"6"`
		}{State: 2})
		return resp
	}

	wasLastAdmin := pairing.IsAdmin() && countAdmins(cfg.Pairings) == 1

	if err := cfg.Pairings.Remove(req.Identifier); err != nil {
		log.Info.Printf("pairings: remove-pairing: %v", err)
		return errorReply(2, ErrUnknown)
	}

	if cfg.CloseSessionsWithPairingID != nil {
		cfg.CloseSessionsWithPairingID(pairing.ID)
	}
	if cfg.OnPairingChange != nil {
		cfg.OnPairingChange()
	}

	resp, _ := tlv8.Marshal(struct {
		State byte `tlv8:"6"`
	}{State: 2})

	if wasLastAdmin && cfg.Restart != nil {
		cfg.Restart()
	}
	return resp
}

func countAdmins(store db.PairingStore) int {
	n := 0
	for _, p := range store.List() {
		if p.IsAdmin() {
			n++
		}
	}
	return n
}

func handleListPairings(cfg PairingsConfig) []byte {
	var out []tlv8.Record
	for i, p := range cfg.Pairings.List() {
		if i > 0 {
			out = append(out, tlv8.Record{Type: tlv8.Separator})
		}
		entry, err := tlv8.Marshal(struct {
			Identifier  string `tlv8:"1"`
			PublicKey   []byte `tlv8:"3"`
			Permissions byte   `tlv8:"11"`
		}{Identifier: p.DeviceID, PublicKey: p.PublicKey, Permissions: p.Permissions})
		if err != nil {
			continue
		}
		decoded, err := tlv8.DecodeList(entry)
		if err != nil {
			continue
		}
		out = append(out, decoded...)
	}

	stateRecord, _ := tlv8.Marshal(struct {
		State byte `tlv8:"6"`
	}{State: 2})
	stateRecords, _ := tlv8.DecodeList(stateRecord)

	return tlv8.EncodeList(append(stateRecords, out...))
}
