package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/protocol"
)

func TestBroadcastValidatorAgreesWhenEveryoneRecordsTheSameThing(t *testing.T) {
	broadcasters := party.NewIDSlice([]party.ID{"alice"})
	peers := party.NewIDSlice([]party.ID{"bob", "charlie"})

	mine := protocol.NewBroadcastValidator(broadcasters)
	mine.Record("alice", []byte("masked-value"))

	other := protocol.NewBroadcastValidator(broadcasters)
	other.Record("alice", []byte("masked-value"))
	otherHash := other.OwnHash()

	peerHashes := map[party.ID][]byte{"bob": otherHash, "charlie": otherHash}
	assert.NoError(t, mine.Verify(peerHashes, peers))
}

func TestBroadcastValidatorCatchesEquivocation(t *testing.T) {
	broadcasters := party.NewIDSlice([]party.ID{"alice"})
	peers := party.NewIDSlice([]party.ID{"bob", "charlie"})

	mine := protocol.NewBroadcastValidator(broadcasters)
	mine.Record("alice", []byte("masked-value-for-me"))

	lying := protocol.NewBroadcastValidator(broadcasters)
	lying.Record("alice", []byte("masked-value-for-bob"))

	peerHashes := map[party.ID][]byte{
		"bob":     lying.OwnHash(),
		"charlie": mine.OwnHash(),
	}

	err := mine.Verify(peerHashes, peers)
	require.Error(t, err)
	var protoErr *protocol.Error
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, protocol.KindMalicious, protoErr.Kind)
	assert.Equal(t, []party.ID{"bob"}, protoErr.Culprits)
}

func TestBroadcastValidatorReportsMissingHashAsTransportError(t *testing.T) {
	broadcasters := party.NewIDSlice([]party.ID{"alice"})
	peers := party.NewIDSlice([]party.ID{"bob"})

	v := protocol.NewBroadcastValidator(broadcasters)
	v.Record("alice", []byte("masked-value"))

	err := v.Verify(map[party.ID][]byte{}, peers)
	require.Error(t, err)
	var protoErr *protocol.Error
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, protocol.KindTransport, protoErr.Kind)
	assert.Equal(t, []party.ID{"bob"}, protoErr.Culprits)
}
