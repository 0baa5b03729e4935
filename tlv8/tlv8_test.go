package tlv8

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentationRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(6) + 1
		var records []Record
		for i := 0; i < n; i++ {
			l := rng.Intn(600)
			v := make([]byte, l)
			rng.Read(v)
			records = append(records, Record{Type: byte(i + 1), Value: v})
		}

		encoded := EncodeList(records)
		decoded, err := DecodeList(encoded)
		require.NoError(t, err)
		require.Len(t, decoded, len(records))
		for i := range records {
			assert.Equal(t, records[i].Type, decoded[i].Type)
			assert.True(t, bytes.Equal(records[i].Value, decoded[i].Value))
		}
	}
}

func TestZeroLengthRecordRoundTrip(t *testing.T) {
	records := []Record{{Type: 6, Value: nil}}
	encoded := EncodeList(records)
	assert.Equal(t, []byte{6, 0}, encoded)

	decoded, err := DecodeList(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Empty(t, decoded[0].Value)
}

func TestNonAdjacentSameTypeDoesNotCoalesce(t *testing.T) {
	// type 1 (len 1), type 2 (len 1), type 1 (len 1) again: must decode
	// as three distinct logical records, not one type-1 record of length 2.
	data := []byte{1, 1, 0xAA, 2, 1, 0xBB, 1, 1, 0xCC}
	decoded, err := DecodeList(data)
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	assert.Equal(t, []byte{0xAA}, decoded[0].Value)
	assert.Equal(t, []byte{0xBB}, decoded[1].Value)
	assert.Equal(t, []byte{0xCC}, decoded[2].Value)
}

func TestFragmentReassemblyExactly255Boundary(t *testing.T) {
	value := bytes.Repeat([]byte{0x7}, 255)
	encoded := EncodeList([]Record{{Type: 5, Value: value}})
	// exactly 255 bytes: one chunk, then loop ends because remaining == 0,
	// matching the C reference's "while remainingSize > 0" termination.
	assert.Equal(t, 2+255, len(encoded))

	decoded, err := DecodeList(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, value, decoded[0].Value)
}

func TestMarshalUnmarshalStruct(t *testing.T) {
	type payload struct {
		State byte   `tlv8:"6"`
		Proof []byte `tlv8:"4"`
	}

	in := payload{State: 4, Proof: []byte{1, 2, 3, 4}}
	b, err := Marshal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalReader(t *testing.T) {
	type payload struct {
		State byte `tlv8:"6"`
	}
	b := EncodeList([]Record{{Type: 6, Value: []byte{2}}})
	var out payload
	require.NoError(t, UnmarshalReader(bytes.NewReader(b), &out))
	assert.Equal(t, byte(2), out.State)
}

func TestDecodeMalformedTruncated(t *testing.T) {
	_, err := DecodeList([]byte{1, 5, 0xAA})
	assert.ErrorIs(t, err, ErrMalformed)
}
