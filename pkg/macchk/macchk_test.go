package macchk_test

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fresco-mpc/fresco-go/pkg/builder"
	"github.com/fresco-mpc/fresco-go/pkg/evaluator"
	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/macchk"
	"github.com/fresco-mpc/fresco-go/pkg/network"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/preprocessing"
	"github.com/fresco-mpc/fresco-go/pkg/protocol"
	"github.com/fresco-mpc/fresco-go/pkg/sint"
)

// authenticatedValue splits v into per-party shares whose MACs are
// consistent with the given α-shares, mirroring what preprocessing.Dealer
// does internally for a real opening.
func authenticatedValue(fld *field.Field, ids party.IDSlice, alphaShares map[party.ID]field.Element, v field.Element) map[party.ID]sint.Share {
	alpha := fld.Zero()
	for _, a := range alphaShares {
		alpha = alpha.Add(a)
	}
	mac := alpha.Mul(v)

	valShares := make(map[party.ID]field.Element, len(ids))
	macShares := make(map[party.ID]field.Element, len(ids))
	vSum, mSum := fld.Zero(), fld.Zero()
	for _, id := range ids[:len(ids)-1] {
		vShare := fld.MustSample()
		mShare := fld.MustSample()
		valShares[id] = vShare
		macShares[id] = mShare
		vSum = vSum.Add(vShare)
		mSum = mSum.Add(mShare)
	}
	last := ids[len(ids)-1]
	valShares[last] = v.Sub(vSum)
	macShares[last] = mac.Sub(mSum)

	out := make(map[party.ID]sint.Share, len(ids))
	for _, id := range ids {
		out[id] = sint.New(valShares[id], macShares[id])
	}
	return out
}

// runChecks drives one macchk.Checker per party to completion over a shared
// in-memory network via the real round-based evaluator — the same path
// pkg/spdz.Run takes once a computation's native protocols all finish.
func runChecks(t *testing.T, fld *field.Field, ids party.IDSlice, alphaShares map[party.ID]field.Element, stores map[party.ID]*macchk.Store) map[party.ID]error {
	t.Helper()
	nets := network.NewLocalNetwork([]party.ID(ids))
	var seed [32]byte
	_, err := rand.Read(seed[:])
	require.NoError(t, err)

	results := make(map[party.ID]error, len(ids))
	done := make(chan party.ID, len(ids))
	errs := make(chan error, len(ids))
	for _, id := range ids {
		id := id
		go func() {
			others := ids.Other(id)
			checker := macchk.NewChecker(id, others, fld, alphaShares[id], stores[id], seed, 1)
			root := builder.NewRoot()
			builder.AttachLeaf(root, func() (protocol.Native, func() struct{}, error) {
				return checker, func() struct{} { return struct{}{} }, nil
			})
			ev := evaluator.New(nets[id], others)
			err := ev.Run(context.Background(), root)
			done <- id
			errs <- err
		}()
	}
	for range ids {
		id := <-done
		results[id] = <-errs
	}
	return results
}

func TestMacCheckPassesOnHonestOpenings(t *testing.T) {
	fld := field.Mersenne61()
	ids := party.NewIDSlice([]party.ID{"alice", "bob", "charlie"})
	_, alphaShares, err := preprocessing.NewDealer(fld, ids)
	require.NoError(t, err)

	v := fld.FromUint64(42)
	shares := authenticatedValue(fld, ids, alphaShares, v)

	stores := make(map[party.ID]*macchk.Store, len(ids))
	for _, id := range ids {
		s := macchk.NewStore()
		s.Record(macchk.Opening{Share: shares[id], Opened: v})
		stores[id] = s
	}

	errs := runChecks(t, fld, ids, alphaShares, stores)
	for id, err := range errs {
		assert.NoErrorf(t, err, "party %s", id)
	}
}

// TestMacCheckFailsOnTamperedOpening checks that when one party reports
// an opened value inconsistent with its MAC share, the batched check
// catches it rather than let the bad value through.
func TestMacCheckFailsOnTamperedOpening(t *testing.T) {
	fld := field.Mersenne61()
	ids := party.NewIDSlice([]party.ID{"alice", "bob", "charlie"})
	_, alphaShares, err := preprocessing.NewDealer(fld, ids)
	require.NoError(t, err)

	v := fld.FromUint64(42)
	shares := authenticatedValue(fld, ids, alphaShares, v)

	stores := make(map[party.ID]*macchk.Store, len(ids))
	for _, id := range ids {
		s := macchk.NewStore()
		opened := v
		if id == "bob" {
			// bob lies about the opened value without adjusting his MAC
			// share to match: the batched check must catch this.
			opened = v.Add(fld.FromUint64(1))
		}
		s.Record(macchk.Opening{Share: shares[id], Opened: opened})
		stores[id] = s
	}

	errs := runChecks(t, fld, ids, alphaShares, stores)
	var sawFailure bool
	for _, err := range errs {
		if err == nil {
			continue
		}
		sawFailure = true
		var protoErr *protocol.Error
		require.ErrorAs(t, err, &protoErr, "tampered opening must surface as a typed protocol.Error")
		assert.Equal(t, protocol.KindMalicious, protoErr.Kind)
		assert.Equal(t, 1, protoErr.Batch)
		assert.NotEmpty(t, protoErr.Culprits)
	}
	assert.True(t, sawFailure, "at least one party must detect the tampered opening")
}
