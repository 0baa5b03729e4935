package pair

import (
	"crypto/ed25519"

	hapcrypto "github.com/hapcore/hap/crypto"
	"github.com/hapcore/hap/db"
	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/netio"
	"github.com/hapcore/hap/tlv8"
)

type verifyPayload struct {
	PublicKey     []byte `tlv8:"3"`
	EncryptedData []byte `tlv8:"5"`
	State         byte   `tlv8:"6"`
}

type verifyInnerPayload struct {
	Identifier string `tlv8:"1"`
	Signature  []byte `tlv8:"10"`
}

// VerifyConfig bundles the collaborators pair-verify needs.
type VerifyConfig struct {
	AccessoryID string
	AccessoryKeys
	Pairings db.PairingStore
}

// AccessoryKeys is the accessory's long-term Ed25519 identity, split out
// so VerifyConfig can be built directly from a db.KeyStore.AccessoryKeyPair
// call at the router layer.
type AccessoryKeys struct {
	Secret ed25519.PrivateKey
	Public ed25519.PublicKey
}

// HandleVerify dispatches one /pair-verify request body against sess.
func HandleVerify(cfg VerifyConfig, sess *netio.Session, body []byte) []byte {
	var req verifyPayload
	if err := tlv8.Unmarshal(body, &req); err != nil {
		log.Info.Printf("pair-verify: malformed tlv8: %v", err)
		return errorReply(2, ErrUnknown)
	}

	switch req.State {
	case 1:
		return handleV1(cfg, sess, req)
	case 3:
		return handleV3(cfg, sess, req)
	default:
		log.Info.Printf("pair-verify: unexpected state %d", req.State)
		return errorReply(req.State+1, ErrUnknown)
	}
}

func handleV1(cfg VerifyConfig, sess *netio.Session, req verifyPayload) []byte {
	accSecret, accPublic, err := hapcrypto.GenerateX25519KeyPair()
	if err != nil {
		log.Info.Printf("pair-verify: generate ephemeral key: %v", err)
		return errorReply(2, ErrUnknown)
	}

	var devicePublic [32]byte
	copy(devicePublic[:], req.PublicKey)

	shared, err := hapcrypto.X25519(accSecret, devicePublic)
	if err != nil {
		log.Info.Printf("pair-verify: %v", err)
		return errorReply(2, ErrAuthentication)
	}

	signed := make([]byte, 0, 32+len(cfg.AccessoryID)+32)
	signed = append(signed, accPublic[:]...)
	signed = append(signed, []byte(cfg.AccessoryID)...)
	signed = append(signed, req.PublicKey...)
	signature := hapcrypto.Sign(cfg.Secret, signed)

	innerResp, err := tlv8.Marshal(verifyInnerPayload{Identifier: cfg.AccessoryID, Signature: signature})
	if err != nil {
		return errorReply(2, ErrUnknown)
	}

	sessionKey, err := hapcrypto.HKDFSHA512(shared[:], []byte("Pair-Verify-Encrypt-Salt"), infoWithCounter("Pair-Verify-Encrypt-Info"), hapcrypto.KeySize)
	if err != nil {
		return errorReply(2, ErrUnknown)
	}
	var sessionKeyArr [32]byte
	copy(sessionKeyArr[:], sessionKey)

	sealed, err := hapcrypto.Seal(sessionKeyArr, hapcrypto.FixedNonce("PV-Msg02"), innerResp, nil)
	if err != nil {
		return errorReply(2, ErrUnknown)
	}

	sess.BeginPairVerify(&netio.PairVerifyState{
		AccessorySecret: accSecret,
		AccessoryPublic: accPublic,
		DevicePublic:    devicePublic,
		Shared:          shared,
		SessionKey:      sessionKeyArr,
	})

	resp, err := tlv8.Marshal(struct {
		State         byte   `tlv8:"6"`
		PublicKey     []byte `tlv8:"3"`
		EncryptedData []byte `tlv8:"5"`
	}{State: 2, PublicKey: accPublic[:], EncryptedData: sealed})
	if err != nil {
		return errorReply(2, ErrUnknown)
	}
	return resp
}

func handleV3(cfg VerifyConfig, sess *netio.Session, req verifyPayload) []byte {
	st := sess.PairVerifyState()
	if st == nil {
		log.Info.Println("pair-verify: V3 with no verify in progress")
		return errorReply(4, ErrUnknown)
	}

	plaintext, err := hapcrypto.Open(st.SessionKey, hapcrypto.FixedNonce("PV-Msg03"), req.EncryptedData, nil)
	if err != nil {
		log.Info.Printf("pair-verify: decrypt V3: %v", err)
		sess.AbortPairVerify()
		return errorReply(4, ErrAuthentication)
	}

	var inner verifyInnerPayload
	if err := tlv8.Unmarshal(plaintext, &inner); err != nil {
		log.Info.Printf("pair-verify: V3 inner tlv8: %v", err)
		sess.AbortPairVerify()
		return errorReply(4, ErrUnknown)
	}

	pairing, ok := cfg.Pairings.Find(inner.Identifier)
	if !ok {
		log.Info.Printf("pair-verify: unknown controller identifier %q", inner.Identifier)
		sess.AbortPairVerify()
		return errorReply(4, ErrAuthentication)
	}

	signed := make([]byte, 0, 32+len(inner.Identifier)+32)
	signed = append(signed, st.DevicePublic[:]...)
	signed = append(signed, []byte(inner.Identifier)...)
	signed = append(signed, st.AccessoryPublic[:]...)

	if err := hapcrypto.Verify(pairing.PublicKey, signed, inner.Signature); err != nil {
		log.Info.Printf("pair-verify: controller signature invalid: %v", err)
		sess.AbortPairVerify()
		return errorReply(4, ErrAuthentication)
	}

	// HAP's "read key" names the accessory-to-controller direction and
	// "write key" the controller-to-accessory direction. Session.ReadKey
	// decrypts inbound (controller-to-accessory) bytes and Session.WriteKey
	// encrypts outbound (accessory-to-controller) bytes, so the two are
	// cross-assigned here relative to HAP's own naming.
	accessoryToControllerKey, err := hapcrypto.HKDFSHA512(st.Shared[:], []byte("Control-Salt"), infoWithCounter("Control-Read-Encryption-Key"), hapcrypto.KeySize)
	if err != nil {
		sess.AbortPairVerify()
		return errorReply(4, ErrUnknown)
	}
	controllerToAccessoryKey, err := hapcrypto.HKDFSHA512(st.Shared[:], []byte("Control-Salt"), infoWithCounter("Control-Write-Encryption-Key"), hapcrypto.KeySize)
	if err != nil {
		sess.AbortPairVerify()
		return errorReply(4, ErrUnknown)
	}

	var sessionReadKey, sessionWriteKey [32]byte
	copy(sessionReadKey[:], controllerToAccessoryKey)
	copy(sessionWriteKey[:], accessoryToControllerKey)

	sess.FinishVerify(sessionReadKey, sessionWriteKey, pairing.ID, pairing.Permissions)

	resp, err := tlv8.Marshal(struct {
		State byte `tlv8:"6"`
	}{State: 4})
	if err != nil {
		return errorReply(4, ErrUnknown)
	}
	return resp
}
