// Package network defines the point-to-point transport the evaluator
// consumes: a reliable, in-order, authenticated channel per pair of
// parties, exposing send-to-peer, send-to-all, and receive-from-peer.
// There is no receive-from-all operation: a caller receives from each
// peer in turn. The core never implements the production transport;
// Local below is a reference/test/demo double driving everything over
// in-process channels rather than real sockets.
package network

import (
	"context"
	"fmt"
	"time"

	"github.com/fresco-mpc/fresco-go/pkg/party"
)

// ErrTimeout is returned when a receive does not complete within the
// configured timeout, turning a stalled peer into a session abort.
var ErrTimeout = fmt.Errorf("network: receive timed out")

// Network is the transport contract the evaluator drives. Every method is
// scoped to "the current round" from the caller's point of view: the core
// never multiplexes more than one round's worth of messages through a
// Network at a time.
type Network interface {
	// SelfID returns this party's identity.
	SelfID() party.ID
	// Parties returns every other party in the session, sorted.
	Parties() party.IDSlice
	// Send delivers payload to a single peer.
	Send(ctx context.Context, to party.ID, payload []byte) error
	// Broadcast delivers the same payload to every other party.
	Broadcast(ctx context.Context, payload []byte) error
	// Receive blocks until a message from the given peer is available for
	// the current round, or ctx is done.
	Receive(ctx context.Context, from party.ID) ([]byte, error)
}

// Local is an in-memory Network implementation connecting every party in a
// session via buffered channels. It is used by tests, the CLI demo, and
// property tests; a real deployment supplies its own Network over TCP/QUIC
// etc.
//
// Each ordered (sender, receiver) pair gets its own channel, rather than
// one shared inbox per receiver fanned out by message content: the
// evaluator's step runs one goroutine per peer, each both Send-ing and
// Receive-ing concurrently on the same Local instance, so two concurrent
// Receive(from=A) / Receive(from=B) calls must never be able to steal
// each other's message off a shared channel.
type Local struct {
	self    party.ID
	parties party.IDSlice
	// links[from][to] is the channel carrying messages sent by from to to.
	links map[party.ID]map[party.ID]chan []byte
}

// NewLocalNetwork builds one Local endpoint per id in ids, all wired
// together. The returned map is keyed by party ID.
func NewLocalNetwork(ids []party.ID) map[party.ID]*Local {
	sorted := party.NewIDSlice(ids)
	links := make(map[party.ID]map[party.ID]chan []byte, len(sorted))
	for _, from := range sorted {
		links[from] = make(map[party.ID]chan []byte, len(sorted))
		for _, to := range sorted {
			if from == to {
				continue
			}
			// Generous buffer: the evaluator may be a round or two ahead of
			// a slow peer's drain before a send blocks.
			links[from][to] = make(chan []byte, 8)
		}
	}
	out := make(map[party.ID]*Local, len(sorted))
	for _, id := range sorted {
		out[id] = &Local{self: id, parties: sorted.Other(id), links: links}
	}
	return out
}

func (l *Local) SelfID() party.ID       { return l.self }
func (l *Local) Parties() party.IDSlice { return l.parties }

// Send delivers payload to to over the (self, to) link.
func (l *Local) Send(ctx context.Context, to party.ID, payload []byte) error {
	ch, ok := l.links[l.self][to]
	if !ok {
		return fmt.Errorf("network: unknown peer %q", to)
	}
	select {
	case ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Broadcast sends payload to every other party.
func (l *Local) Broadcast(ctx context.Context, payload []byte) error {
	for _, id := range l.parties {
		if err := l.Send(ctx, id, payload); err != nil {
			return err
		}
	}
	return nil
}

// Receive blocks for a message from a specific peer, over the (from,
// self) link. Distinct peers use distinct channels, so concurrent
// Receive calls for different peers never contend over the same queue.
func (l *Local) Receive(ctx context.Context, from party.ID) ([]byte, error) {
	ch, ok := l.links[from][l.self]
	if !ok {
		return nil, fmt.Errorf("network: no link from %q to %q", from, l.self)
	}
	select {
	case payload := <-ch:
		return payload, nil
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// WithTimeout wraps a parent context with the per-receive timeout
// configured for a session.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, d)
}

var _ Network = (*Local)(nil)
