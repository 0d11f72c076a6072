// Package evaluator implements a round-based batched evaluator: it drives
// every native protocol currently ready to run forward in lockstep,
// batching all of a round's outgoing messages to each peer into one
// network send rather than one message per protocol.
//
// It walks an entire builder.Scope tree each sweep, so many
// independently-paced native protocols (one per builder.AttachLeaf call)
// share one global round counter and one batched wire message per peer
// per sweep.
package evaluator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fresco-mpc/fresco-go/internal/wire"
	"github.com/fresco-mpc/fresco-go/pkg/builder"
	"github.com/fresco-mpc/fresco-go/pkg/network"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/protocol"
)

// Evaluator drives one builder.Builder's computation graph to completion
// over net, batching every round's messages.
type Evaluator struct {
	net   network.Network
	self  party.ID
	peers party.IDSlice
}

// New builds an Evaluator bound to a network; peers excludes self.
func New(net network.Network, peers party.IDSlice) *Evaluator {
	return &Evaluator{net: net, self: net.SelfID(), peers: peers}
}

// Run sweeps root to completion, one batched round at a time. Every sweep
// either finishes a protocol, moves at least one protocol to a later
// round, or returns an error; it never spins without any protocol moving.
func (e *Evaluator) Run(ctx context.Context, root *builder.Builder) error {
	round := 0
	for {
		leaves, done, err := builder.Collect(root)
		if err != nil {
			return fmt.Errorf("evaluator: round %d: collect: %w", round, err)
		}
		if done {
			return nil
		}
		if len(leaves) == 0 {
			return fmt.Errorf("evaluator: no protocol ready to run but graph is not done (round %d)", round)
		}
		before := snapshotRounds(leaves)
		round++
		if err := e.step(ctx, leaves); err != nil {
			return fmt.Errorf("evaluator: round %d: %w", round, err)
		}
		if !progressed(leaves, before) {
			return &protocol.Error{
				Kind: protocol.KindProgrammer,
				Err:  fmt.Errorf("evaluator: sweep %d completed or advanced no protocol; every one of %d leaves is stuck", round, len(leaves)),
			}
		}
	}
}

// snapshotRounds records each leaf's round number just before a sweep, so
// progressed can tell afterwards whether the sweep actually did anything.
func snapshotRounds(leaves []*builder.Leaf) map[protocol.Native]int {
	before := make(map[protocol.Native]int, len(leaves))
	for _, l := range leaves {
		before[l.Proto] = l.Proto.Round()
	}
	return before
}

// progressed reports whether at least one leaf either finished or moved to
// a later round during the sweep that just ran. A malformed protocol.Native
// that keeps returning HasMoreRounds from a fixed round, forever, is not
// caught by the "zero leaves collected" check above (it is still being
// collected every sweep) but is caught here.
func progressed(leaves []*builder.Leaf, before map[protocol.Native]int) bool {
	for _, l := range leaves {
		if l.Proto.IsDone() {
			return true
		}
		if l.Proto.Round() != before[l.Proto] {
			return true
		}
	}
	return false
}

// step runs one batched round for every leaf in leaves: collect each
// protocol's outgoing bytes (a read-only dry-run), bucket them per
// destination peer into a single wire.Batch, exchange batches concurrently
// with every peer, then hand each protocol its own slice of the incoming
// batch to Consume.
func (e *Evaluator) step(ctx context.Context, leaves []*builder.Leaf) error {
	outgoingByPeer := make(map[party.ID][]wire.Envelope, len(e.peers))
	for _, p := range e.peers {
		outgoingByPeer[p] = make([]wire.Envelope, 0, len(leaves))
	}
	for i, l := range leaves {
		msgs, err := l.Proto.Outgoing()
		if err != nil {
			return fmt.Errorf("leaf %d: outgoing: %w", i, err)
		}
		for _, p := range e.peers {
			payload := msgs[p]
			outgoingByPeer[p] = append(outgoingByPeer[p], wire.Envelope{Len: len(payload), Data: payload})
		}
	}

	incomingByPeer := make(map[party.ID][]wire.Envelope, len(e.peers))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range e.peers {
		p := p
		g.Go(func() error {
			batch := wire.Batch{Envelopes: outgoingByPeer[p]}
			payload, err := batch.Marshal()
			if err != nil {
				return fmt.Errorf("marshal batch for %s: %w", p, err)
			}
			if err := e.net.Send(gctx, p, payload); err != nil {
				return fmt.Errorf("send to %s: %w", p, err)
			}
			raw, err := e.net.Receive(gctx, p)
			if err != nil {
				return fmt.Errorf("receive from %s: %w", p, err)
			}
			reply, err := wire.UnmarshalBatch(raw)
			if err != nil {
				return fmt.Errorf("unmarshal batch from %s: %w", p, err)
			}
			if len(reply.Envelopes) != len(leaves) {
				return fmt.Errorf("batch from %s: expected %d envelopes, got %d", p, len(leaves), len(reply.Envelopes))
			}
			mu.Lock()
			incomingByPeerSet(incomingByPeer, p, reply.Envelopes)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, l := range leaves {
		incoming := make(map[party.ID][]byte, len(e.peers))
		for _, p := range e.peers {
			env := incomingByPeer[p][i]
			if env.Len != len(env.Data) {
				return &protocol.Error{Kind: protocol.KindMalicious, Culprits: []party.ID{p},
					Err: fmt.Errorf("leaf %d: envelope declares %d bytes but carries %d", i, env.Len, len(env.Data))}
			}
			if env.Len > 0 {
				incoming[p] = env.Data
			}
		}
		if _, err := l.Proto.Consume(incoming); err != nil {
			return fmt.Errorf("leaf %d: consume: %w", i, err)
		}
	}
	return nil
}

// incomingByPeerSet records one peer's envelopes. step's per-peer
// goroutines call it while holding a mutex: concurrent writes to a Go map
// race even when every goroutine writes a distinct key.
func incomingByPeerSet(m map[party.ID][]wire.Envelope, p party.ID, envs []wire.Envelope) {
	m[p] = envs
}
