package evaluator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fresco-mpc/fresco-go/pkg/builder"
	"github.com/fresco-mpc/fresco-go/pkg/evaluator"
	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/network"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/protocol"
	"github.com/fresco-mpc/fresco-go/pkg/sint"
)

func twoIDs() party.IDSlice {
	return party.NewIDSlice([]party.ID{"p0", "p1"})
}

// splitShare builds an (un-authenticated, MAC zero) additive split of v
// across p0/p1: evaluator tests only exercise round-batching and Open's
// reconstruction, not the MAC-check, so a real Dealer is unnecessary here.
func splitShare(fld *field.Field, v field.Element) (p0, p1 sint.Share) {
	r := fld.FromUint64(123456)
	return sint.New(r, fld.Zero()), sint.New(v.Sub(r), fld.Zero())
}

func TestEvaluatorRunsIndependentOpensInOneRound(t *testing.T) {
	fld := field.Mersenne61()
	ids := twoIDs()
	nets := network.NewLocalNetwork([]party.ID(ids))

	x := fld.FromUint64(11)
	y := fld.FromUint64(22)
	xShares := map[party.ID]sint.Share{}
	yShares := map[party.ID]sint.Share{}
	xShares["p0"], xShares["p1"] = splitShare(fld, x)
	yShares["p0"], yShares["p1"] = splitShare(fld, y)

	results := make(map[party.ID][2]field.Element)
	done := make(chan party.ID, len(ids))
	for _, id := range ids {
		id := id
		go func() {
			others := ids.Other(id)
			root := builder.NewRoot()
			var outX, outY builder.DRes[field.Element]
			builder.Par(root, func(pb *builder.Builder) builder.DRes[struct{}] {
				outX = builder.AttachLeaf(pb, func() (protocol.Native, func() field.Element, error) {
					p := protocol.NewOpen(id, others, xShares[id], fld)
					return p, p.Output, nil
				})
				outY = builder.AttachLeaf(pb, func() (protocol.Native, func() field.Element, error) {
					p := protocol.NewOpen(id, others, yShares[id], fld)
					return p, p.Output, nil
				})
				return builder.Eager(struct{}{})
			})

			ev := evaluator.New(nets[id], others)
			require.NoError(t, ev.Run(context.Background(), root))
			results[id] = [2]field.Element{outX.Value(), outY.Value()}
			done <- id
		}()
	}
	for range ids {
		<-done
	}

	for id, got := range results {
		assert.Truef(t, got[0].Equal(x), "party %s: x", id)
		assert.Truef(t, got[1].Equal(y), "party %s: y", id)
	}
}

// stuckProtocol is a malformed protocol.Native: it reports HasMoreRounds
// forever from a fixed round number, and is never IsDone, regardless of
// what it is handed to Consume.
type stuckProtocol struct{}

func (stuckProtocol) IsDone() bool { return false }
func (stuckProtocol) Round() int   { return 1 }
func (stuckProtocol) Outgoing() (map[party.ID][]byte, error) {
	return map[party.ID][]byte{}, nil
}
func (stuckProtocol) Consume(map[party.ID][]byte) (protocol.Status, error) {
	return protocol.HasMoreRounds, nil
}

var _ protocol.Native = stuckProtocol{}

// TestEvaluatorAbortsOnNoProgress locks in that a protocol which is
// collected every sweep but never advances its round or completes makes
// Run abort with a diagnosed error, rather than spin forever: the only
// other stall check ("zero leaves collected") never fires here, since
// stuckProtocol is collected on every single sweep.
func TestEvaluatorAbortsOnNoProgress(t *testing.T) {
	nets := network.NewLocalNetwork([]party.ID{"solo"})

	root := builder.NewRoot()
	builder.AttachLeaf(root, func() (protocol.Native, func() struct{}, error) {
		return stuckProtocol{}, func() struct{} { return struct{}{} }, nil
	})

	ev := evaluator.New(nets["solo"], party.IDSlice{})
	errCh := make(chan error, 1)
	go func() { errCh <- ev.Run(context.Background(), root) }()

	select {
	case err := <-errCh:
		require.Error(t, err)
		var protoErr *protocol.Error
		require.ErrorAs(t, err, &protoErr, "no-progress abort must surface as a typed protocol.Error")
		assert.Equal(t, protocol.KindProgrammer, protoErr.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("evaluator spun forever on a protocol that never advances or completes")
	}
}

func TestEvaluatorReturnsCollectError(t *testing.T) {
	ids := twoIDs()
	nets := network.NewLocalNetwork([]party.ID(ids))

	root := builder.NewRoot()
	builder.AttachLeaf(root, func() (protocol.Native, func() struct{}, error) {
		return nil, nil, assert.AnError
	})

	ev := evaluator.New(nets["p0"], ids.Other("p0"))
	err := ev.Run(context.Background(), root)
	assert.ErrorIs(t, err, assert.AnError)
}
