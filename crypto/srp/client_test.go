package srp

import "math/big"

// testClient is a minimal SRP-6a client used only by this package's tests
// to exercise the server against a known-correct counterpart, mirroring
// the client half of Tomsons/go-srp's protocol (see DESIGN.md).
type testClient struct {
	a  *big.Int
	A  *big.Int
	i  []byte
	p  []byte
	k  []byte
	m1 []byte
}

func newTestClient(password []byte) *testClient {
	a := randomBigInt(32)
	A := new(big.Int).Exp(modG, a, modN)
	return &testClient{a: a, A: A, i: []byte(Identity), p: password}
}

// generate computes the client's shared key and M1 proof given the
// server's salt and B, following the same SRP-6a math as Server.
func (c *testClient) generate(salt, bBytes []byte) {
	B := new(big.Int).SetBytes(bBytes)

	innerHash := hashBytes(append([]byte(Identity+":"), c.p...))
	x := hashInt(salt, innerHash)

	k := hashInt(pad(modN, modN_len), pad(modG, modN_len))
	u := hashInt(pad(c.A, modN_len), pad(B, modN_len))

	// S = (B - k*g^x) ^ (a + u*x) mod N
	gx := new(big.Int).Exp(modG, x, modN)
	t0 := new(big.Int).Mul(k, gx)
	t1 := new(big.Int).Sub(B, t0)
	t1.Mod(t1, modN)
	exp := new(big.Int).Add(c.a, new(big.Int).Mul(u, x))
	S := new(big.Int).Exp(t1, exp, modN)

	c.k = hashBytes(pad(S, modN_len))

	hn := hashBytes(pad(modN, modN_len))
	hg := hashBytes(pad(modG, modN_len))
	hxor := make([]byte, len(hn))
	for i := range hn {
		hxor[i] = hn[i] ^ hg[i]
	}
	hi := hashBytes([]byte(Identity))
	c.m1 = hashBytes(hxor, hi, salt, pad(c.A, modN_len), bBytes, c.k)
}
