package network_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fresco-mpc/fresco-go/pkg/network"
	"github.com/fresco-mpc/fresco-go/pkg/party"
)

func TestLocalNetworkSendReceive(t *testing.T) {
	ids := []party.ID{"p0", "p1", "p2"}
	nets := network.NewLocalNetwork(ids)

	ctx := context.Background()
	require.NoError(t, nets["p0"].Send(ctx, "p1", []byte("hello")))
	got, err := nets["p1"].Receive(ctx, "p0")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestLocalNetworkBroadcast(t *testing.T) {
	ids := []party.ID{"p0", "p1", "p2"}
	nets := network.NewLocalNetwork(ids)

	ctx := context.Background()
	require.NoError(t, nets["p0"].Broadcast(ctx, []byte("round1")))
	for _, id := range []party.ID{"p1", "p2"} {
		got, err := nets[id].Receive(ctx, "p0")
		require.NoError(t, err)
		assert.Equal(t, []byte("round1"), got)
	}
}

// TestLocalNetworkReceiveDemultiplexesByPeer confirms that messages sent
// by different peers land on independent links, so Receive(from=X) never
// observes a message actually sent by some other peer.
func TestLocalNetworkReceiveDemultiplexesByPeer(t *testing.T) {
	ids := []party.ID{"p0", "p1", "p2"}
	nets := network.NewLocalNetwork(ids)

	ctx := context.Background()
	require.NoError(t, nets["p1"].Send(ctx, "p0", []byte("from-p1")))
	require.NoError(t, nets["p2"].Send(ctx, "p0", []byte("from-p2")))

	got, err := nets["p0"].Receive(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, []byte("from-p2"), got)

	got, err = nets["p0"].Receive(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []byte("from-p1"), got)
}

// TestConcurrentReceivesFromDifferentPeersDoNotBlockEachOther pins down a
// regression where a single shared inbox per receiver, drained through a
// private per-call requeue, let two concurrent Receive(from=X) calls each
// dequeue the other's wanted message and strand it in an unflushed
// requeue, deadlocking both callers. With one channel per (sender,
// receiver) pair, two goroutines racing to receive from p1 and p2 must
// each complete without waiting on the other.
func TestConcurrentReceivesFromDifferentPeersDoNotBlockEachOther(t *testing.T) {
	ids := []party.ID{"p0", "p1", "p2"}
	nets := network.NewLocalNetwork(ids)
	ctx := context.Background()

	done := make(chan struct{}, 2)
	go func() {
		got, err := nets["p0"].Receive(ctx, "p1")
		assert.NoError(t, err)
		assert.Equal(t, []byte("from-p1"), got)
		done <- struct{}{}
	}()
	go func() {
		got, err := nets["p0"].Receive(ctx, "p2")
		assert.NoError(t, err)
		assert.Equal(t, []byte("from-p2"), got)
		done <- struct{}{}
	}()

	// Give both Receive goroutines time to block before anything is sent.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, nets["p2"].Send(ctx, "p0", []byte("from-p2")))
	require.NoError(t, nets["p1"].Send(ctx, "p0", []byte("from-p1")))

	timeout := time.After(time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-timeout:
			t.Fatal("concurrent receives from distinct peers deadlocked")
		}
	}
}

func TestReceiveTimesOut(t *testing.T) {
	ids := []party.ID{"p0", "p1"}
	nets := network.NewLocalNetwork(ids)

	ctx, cancel := network.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := nets["p0"].Receive(ctx, "p1")
	assert.ErrorIs(t, err, network.ErrTimeout)
}
