// Package pair implements the pair-setup (SRP-6a) and pair-verify
// (Curve25519/Ed25519) state machines, plus the /pairings
// add/remove/list dispatch, built on this module's
// crypto/srp/tlv8/db/netio packages.
package pair

import "github.com/hapcore/hap/tlv8"

// TLV type tags shared by every pairing endpoint payload.
const (
	tagMethod        = 0
	tagIdentifier    = 1
	tagSalt          = 2
	tagPublicKey     = 3
	tagProof         = 4
	tagEncryptedData = 5
	tagState         = 6
	tagError         = 7
	tagPermissions   = 11
)

// TLVError is the error tag value carried in a failed pairing reply.
type TLVError byte

const (
	ErrUnknown        TLVError = 0x01
	ErrAuthentication TLVError = 0x02
	ErrBackoff        TLVError = 0x03
	ErrMaxPeers       TLVError = 0x04
	ErrMaxTries       TLVError = 0x05
	ErrUnavailable    TLVError = 0x06
	ErrBusy           TLVError = 0x07
)

// Method is the /pairings TLV Method tag.
type Method byte

const (
	MethodAddPairing    Method = 3
	MethodRemovePairing Method = 4
	MethodListPairings  Method = 5
)

type statePayload struct {
	State byte `tlv8:"6"`
	Error byte `tlv8:"7"`
}

// errorReply builds the TLV bytes for a State+Error failure reply,
// the common shape every pairing handler returns on failure.
func errorReply(state byte, code TLVError) []byte {
	b, _ := tlv8.Marshal(statePayload{State: state, Error: byte(code)})
	return b
}

// infoWithCounter appends HAP's mandatory trailing 0x01 byte to an HKDF
// info label ("...-Info\x01").
func infoWithCounter(label string) []byte {
	return append([]byte(label), 0x01)
}
