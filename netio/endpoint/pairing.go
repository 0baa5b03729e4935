package endpoint

import (
	"net/http"

	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/netio"
	"github.com/hapcore/hap/netio/pair"
)

// PairSetupEndpoint serves POST /pair-setup, permitted before pair-verify.
type PairSetupEndpoint struct {
	Config          pair.SetupConfig
	AnyOtherPairing func(except *netio.Session) bool
}

func NewPairSetup(cfg pair.SetupConfig, anyOtherPairing func(except *netio.Session) bool) *PairSetupEndpoint {
	return &PairSetupEndpoint{Config: cfg, AnyOtherPairing: anyOtherPairing}
}

func (e *PairSetupEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOf(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		log.Info.Printf("pair-setup: read body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	resp := pair.HandleSetup(e.Config, sess, body, e.AnyOtherPairing(sess))
	writeTLV8(w, resp)
}

// PairVerifyEndpoint serves POST /pair-verify, permitted before
// pair-verify (it IS the handshake).
type PairVerifyEndpoint struct {
	Config pair.VerifyConfig
}

func NewPairVerify(cfg pair.VerifyConfig) *PairVerifyEndpoint {
	return &PairVerifyEndpoint{Config: cfg}
}

func (e *PairVerifyEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOf(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		log.Info.Printf("pair-verify: read body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	resp := pair.HandleVerify(e.Config, sess, body)
	writeTLV8(w, resp)
}

// PairingEndpoint serves POST /pairings, encrypted and admin only.
type PairingEndpoint struct {
	Config pair.PairingsConfig
}

func NewPairing(cfg pair.PairingsConfig) *PairingEndpoint {
	return &PairingEndpoint{Config: cfg}
}

func (e *PairingEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOf(w, r)
	if !ok {
		return
	}
	if !requireEncrypted(w, sess) {
		return
	}
	if !requireAdmin(w, sess) {
		return
	}
	body, err := readBody(r)
	if err != nil {
		log.Info.Printf("pairings: read body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	resp := pair.HandlePairings(e.Config, sess, body)
	writeTLV8(w, resp)
}
