// Package srp implements the accessory (server) side of SRP-6a as HAP
// pair-setup requires it: the RFC 5054 3072-bit group (group 15), generator
// g = 5, hash SHA-512, username fixed to "Pair-Setup".
//
// The Server type and the hashInt/hashBytes/pad helpers below
// follow the shape of Tomsons/go-srp, re-parameterized because that
// package's own 3072-bit table entry hardcodes g = 2 and defaults to
// BLAKE2b-256 — neither matches what HAP's M1/M2 proof construction
// requires (see DESIGN.md).
package srp

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"math/big"
)

// Identity is the fixed SRP username HAP pair-setup always uses.
const Identity = "Pair-Setup"

var (
	// ErrBadClientPublicKey is returned when A mod N == 0.
	ErrBadClientPublicKey = errors.New("srp: client public key is degenerate")
	// ErrBadScramblingParam is returned when u == 0.
	ErrBadScramblingParam = errors.New("srp: scrambling parameter is zero")
	// ErrProofMismatch is returned when the client's M1 proof does not
	// match the server's independently computed expectation.
	ErrProofMismatch = errors.New("srp: proof mismatch")
)

// group15N is the RFC 5054 3072-bit MODP group (group 15) modulus.
const group15N = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E208E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF"

var (
	modN = mustBigFromHex(group15N)
	modG = big.NewInt(5)
	modN_len = (modN.BitLen() + 7) / 8 // 384 bytes
)

func mustBigFromHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("srp: malformed group modulus")
	}
	return n
}

// pad left-pads x's big-endian bytes to n bytes, per RFC 5054's padding
// convention for k and u.
func pad(x *big.Int, n int) []byte {
	b := x.Bytes()
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

func hashBytes(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func hashInt(parts ...[]byte) *big.Int {
	return new(big.Int).SetBytes(hashBytes(parts...))
}

func randomBigInt(bytes int) *big.Int {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return new(big.Int).SetBytes(b)
}

// Server holds the accessory side of one SRP-6a exchange for the lifetime
// of a single pair-setup attempt.
type Server struct {
	Salt []byte // 16 random bytes
	B    []byte // public ephemeral, 384 bytes

	v *big.Int
	b *big.Int

	a *big.Int // client public key A, set by SetClientPublicKey
	k []byte   // derived session key K = H(S), set after SetClientPublicKey
}

// NewServer creates a fresh SRP-6a server context for the given pair-setup
// password (the accessory's setup code, e.g. "123-45-678"): a 16-byte
// random salt, 32-byte random b, and v = g^x mod N where
// x = H(salt || H("Pair-Setup:" || password)).
func NewServer(password []byte) (*Server, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	innerHash := hashBytes(append([]byte(Identity+":"), password...))
	x := hashInt(salt, innerHash)
	v := new(big.Int).Exp(modG, x, modN)

	b := randomBigInt(32)
	k := hashInt(pad(modN, modN_len), pad(modG, modN_len))

	// B = (k*v + g^b) mod N
	B := new(big.Int).Mul(k, v)
	B.Add(B, new(big.Int).Exp(modG, b, modN))
	B.Mod(B, modN)

	return &Server{
		Salt: salt,
		B:    pad(B, modN_len),
		v:    v,
		b:    b,
	}, nil
}

// SetClientPublicKey records the client's ephemeral public key A (M3) and
// derives the shared secret K, without yet verifying the client's proof.
func (s *Server) SetClientPublicKey(aBytes []byte) error {
	A := new(big.Int).SetBytes(aBytes)
	if new(big.Int).Mod(A, modN).Sign() == 0 {
		return ErrBadClientPublicKey
	}

	u := hashInt(pad(A, modN_len), s.B)
	if u.Sign() == 0 {
		return ErrBadScramblingParam
	}

	// S = (A * v^u)^b mod N
	t := new(big.Int).Exp(s.v, u, modN)
	t.Mul(t, A)
	t.Mod(t, modN)
	S := new(big.Int).Exp(t, s.b, modN)

	s.a = A
	s.k = hashBytes(pad(S, modN_len))
	return nil
}

// SharedKey returns K = H(S), valid only after SetClientPublicKey.
func (s *Server) SharedKey() []byte {
	return s.k
}

// VerifyClientProof checks the client's M1 proof against the HAP SRP-6a
// construction and, on success, returns the accessory's own M2 proof to
// send back in M4:
//
//	M1 = H(H(N) xor H(g) || H(I) || salt || A || B || K)
//	M2 = H(A || M1 || K)
func (s *Server) VerifyClientProof(clientM1 []byte) (m2 []byte, err error) {
	hn := hashBytes(pad(modN, modN_len))
	hg := hashBytes(pad(modG, modN_len))
	hxor := make([]byte, len(hn))
	for i := range hn {
		hxor[i] = hn[i] ^ hg[i]
	}
	hi := hashBytes([]byte(Identity))

	expected := hashBytes(hxor, hi, s.Salt, pad(s.a, modN_len), s.B, s.k)

	if subtle.ConstantTimeCompare(expected, clientM1) != 1 {
		return nil, ErrProofMismatch
	}

	m2 = hashBytes(pad(s.a, modN_len), expected, s.k)
	return m2, nil
}
