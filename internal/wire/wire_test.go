package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fresco-mpc/fresco-go/internal/wire"
)

func TestBatchMarshalRoundTrip(t *testing.T) {
	b := wire.Batch{
		Round: 3,
		Envelopes: []wire.Envelope{
			{Len: 3, Data: []byte("abc")},
			{Len: 0, Data: nil},
		},
	}
	raw, err := b.Marshal()
	require.NoError(t, err)

	back, err := wire.UnmarshalBatch(raw)
	require.NoError(t, err)
	assert.Equal(t, b.Round, back.Round)
	require.Len(t, back.Envelopes, 2)
	assert.Equal(t, []byte("abc"), back.Envelopes[0].Data)
	assert.Equal(t, 3, back.Envelopes[0].Len)
}

func TestEncodeDecodeArbitraryPayload(t *testing.T) {
	type pair struct {
		Eps   []byte
		Delta []byte
	}
	in := pair{Eps: []byte{1, 2, 3}, Delta: []byte{4, 5, 6}}

	raw, err := wire.Encode(in)
	require.NoError(t, err)

	var out pair
	require.NoError(t, wire.Decode(raw, &out))
	assert.Equal(t, in, out)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	var out wire.Batch
	err := wire.Decode([]byte{0xff, 0xff, 0xff}, &out)
	assert.Error(t, err)
}
