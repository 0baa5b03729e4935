package pair

import (
	"crypto/ed25519"
	"errors"

	hapcrypto "github.com/hapcore/hap/crypto"
	"github.com/hapcore/hap/crypto/srp"
	"github.com/hapcore/hap/db"
	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/netio"
	"github.com/hapcore/hap/tlv8"
)

type setupPayload struct {
	Method        byte   `tlv8:"0"`
	Identifier    string `tlv8:"1"`
	Salt          []byte `tlv8:"2"`
	PublicKey     []byte `tlv8:"3"`
	Proof         []byte `tlv8:"4"`
	EncryptedData []byte `tlv8:"5"`
	State         byte   `tlv8:"6"`
}

type setupInnerPayload struct {
	Identifier string `tlv8:"1"`
	PublicKey  []byte `tlv8:"3"`
	Signature  []byte `tlv8:"10"`
}

// SetupConfig bundles the collaborators pair-setup needs: the accessory's
// configured setup code, its pairing and key stores, and a hook invoked
// after a pairing-state transition so the caller can flip mDNS's `sf`
// flag.
type SetupConfig struct {
	SetupCode       string
	Pairings        db.PairingStore
	Keys            db.KeyStore
	OnPairingChange func()
}

// HandleSetup dispatches one /pair-setup request body against sess.
// anyOtherPairing reports whether some other live session is currently
// mid handshake, enforcing the rule that only one pair-setup attempt
// may run at a time across all connections.
func HandleSetup(cfg SetupConfig, sess *netio.Session, body []byte, anyOtherPairing bool) []byte {
	var req setupPayload
	if err := tlv8.Unmarshal(body, &req); err != nil {
		log.Info.Printf("pair-setup: malformed tlv8: %v", err)
		return errorReply(2, ErrUnknown)
	}

	switch req.State {
	case 1:
		return handleM1(cfg, sess, anyOtherPairing)
	case 3:
		return handleM3(sess, req)
	case 5:
		return handleM5(cfg, sess, req)
	default:
		log.Info.Printf("pair-setup: unexpected state %d", req.State)
		return errorReply(req.State+1, ErrUnknown)
	}
}

func handleM1(cfg SetupConfig, sess *netio.Session, anyOtherPairing bool) []byte {
	if cfg.Pairings.IsPaired() {
		log.Info.Println("pair-setup: accessory is already paired")
		return errorReply(2, ErrUnavailable)
	}
	if anyOtherPairing {
		log.Info.Println("pair-setup: another session is already pairing")
		return errorReply(2, ErrBusy)
	}

	server, err := srp.NewServer([]byte(cfg.SetupCode))
	if err != nil {
		log.Info.Printf("pair-setup: srp.NewServer: %v", err)
		return errorReply(2, ErrUnknown)
	}
	sess.BeginPairSetup(&netio.PairSetupState{Server: server})

	resp, err := tlv8.Marshal(struct {
		State     byte   `tlv8:"6"`
		PublicKey []byte `tlv8:"3"`
		Salt      []byte `tlv8:"2"`
	}{State: 2, PublicKey: server.B, Salt: server.Salt})
	if err != nil {
		return errorReply(2, ErrUnknown)
	}
	return resp
}

func handleM3(sess *netio.Session, req setupPayload) []byte {
	st := sess.PairSetupState()
	if st == nil || st.Server == nil {
		log.Info.Println("pair-setup: M3 with no session in progress")
		return errorReply(4, ErrUnknown)
	}

	if err := st.Server.SetClientPublicKey(req.PublicKey); err != nil {
		log.Info.Printf("pair-setup: %v", err)
		sess.AbortPairSetup()
		return errorReply(4, ErrAuthentication)
	}

	m2, err := st.Server.VerifyClientProof(req.Proof)
	if err != nil {
		log.Info.Printf("pair-setup: client proof mismatch: %v", err)
		sess.AbortPairSetup()
		return errorReply(4, ErrAuthentication)
	}

	sessionKey, err := hapcrypto.HKDFSHA512(st.Server.SharedKey(), []byte("Pair-Setup-Encrypt-Salt"), infoWithCounter("Pair-Setup-Encrypt-Info"), hapcrypto.KeySize)
	if err != nil {
		log.Info.Printf("pair-setup: derive session key: %v", err)
		sess.AbortPairSetup()
		return errorReply(4, ErrUnknown)
	}
	copy(st.SessionKey[:], sessionKey)

	resp, err := tlv8.Marshal(struct {
		State byte   `tlv8:"6"`
		Proof []byte `tlv8:"4"`
	}{State: 4, Proof: m2})
	if err != nil {
		sess.AbortPairSetup()
		return errorReply(4, ErrUnknown)
	}
	return resp
}

func handleM5(cfg SetupConfig, sess *netio.Session, req setupPayload) []byte {
	st := sess.PairSetupState()
	if st == nil || st.Server == nil {
		log.Info.Println("pair-setup: M5 with no session in progress")
		return errorReply(6, ErrUnknown)
	}

	nonce := hapcrypto.FixedNonce("PS-Msg05")
	plaintext, err := hapcrypto.Open(st.SessionKey, nonce, req.EncryptedData, nil)
	if err != nil {
		log.Info.Printf("pair-setup: decrypt M5: %v", err)
		sess.AbortPairSetup()
		return errorReply(6, ErrAuthentication)
	}

	var inner setupInnerPayload
	if err := tlv8.Unmarshal(plaintext, &inner); err != nil {
		log.Info.Printf("pair-setup: M5 inner tlv8: %v", err)
		sess.AbortPairSetup()
		return errorReply(6, ErrUnknown)
	}

	deviceX, err := hapcrypto.HKDFSHA512(st.Server.SharedKey(), []byte("Pair-Setup-Controller-Sign-Salt"), infoWithCounter("Pair-Setup-Controller-Sign-Info"), hapcrypto.KeySize)
	if err != nil {
		sess.AbortPairSetup()
		return errorReply(6, ErrUnknown)
	}

	signed := make([]byte, 0, len(deviceX)+len(inner.Identifier)+len(inner.PublicKey))
	signed = append(signed, deviceX...)
	signed = append(signed, []byte(inner.Identifier)...)
	signed = append(signed, inner.PublicKey...)

	if err := hapcrypto.Verify(ed25519.PublicKey(inner.PublicKey), signed, inner.Signature); err != nil {
		log.Info.Printf("pair-setup: controller signature invalid: %v", err)
		sess.AbortPairSetup()
		return errorReply(6, ErrAuthentication)
	}

	if _, err := cfg.Pairings.Add(inner.Identifier, inner.PublicKey, db.PermissionAdmin); err != nil {
		log.Info.Printf("pair-setup: store pairing: %v", err)
		sess.AbortPairSetup()
		if errors.Is(err, db.ErrMaxPeers) {
			return errorReply(6, ErrMaxPeers)
		}
		return errorReply(6, ErrUnknown)
	}

	accessoryID, err := cfg.Keys.AccessoryID()
	if err != nil {
		sess.AbortPairSetup()
		return errorReply(6, ErrUnknown)
	}
	accessorySK, accessoryPK, err := cfg.Keys.AccessoryKeyPair()
	if err != nil {
		sess.AbortPairSetup()
		return errorReply(6, ErrUnknown)
	}

	accessoryX, err := hapcrypto.HKDFSHA512(st.Server.SharedKey(), []byte("Pair-Setup-Accessory-Sign-Salt"), infoWithCounter("Pair-Setup-Accessory-Sign-Info"), hapcrypto.KeySize)
	if err != nil {
		sess.AbortPairSetup()
		return errorReply(6, ErrUnknown)
	}

	toSign := make([]byte, 0, len(accessoryX)+len(accessoryID)+len(accessoryPK))
	toSign = append(toSign, accessoryX...)
	toSign = append(toSign, []byte(accessoryID)...)
	toSign = append(toSign, accessoryPK...)
	signature := hapcrypto.Sign(accessorySK, toSign)

	innerResp, err := tlv8.Marshal(setupInnerPayload{
		Identifier: accessoryID,
		PublicKey:  accessoryPK,
		Signature:  signature,
	})
	if err != nil {
		sess.AbortPairSetup()
		return errorReply(6, ErrUnknown)
	}

	sealed, err := hapcrypto.Seal(st.SessionKey, hapcrypto.FixedNonce("PS-Msg06"), innerResp, nil)
	if err != nil {
		sess.AbortPairSetup()
		return errorReply(6, ErrUnknown)
	}

	sess.FinishPairSetup()
	if cfg.OnPairingChange != nil {
		cfg.OnPairingChange()
	}

	resp, err := tlv8.Marshal(struct {
		State         byte   `tlv8:"6"`
		EncryptedData []byte `tlv8:"5"`
	}{State: 6, EncryptedData: sealed})
	if err != nil {
		return errorReply(6, ErrUnknown)
	}
	return resp
}
