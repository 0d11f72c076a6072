// Package protocol implements the native protocol state machines: Input,
// Open, Multiply, and RandomElement, plus the broadcast-with-validation
// sub-protocol they share.
//
// Each protocol instance does not own a round counter end to end; instead
// the evaluator drives many native protocols forward in lockstep under
// one global round number, so each protocol here exposes only "bytes I
// send this round" (Outgoing) and "here is what arrived, advance"
// (Consume) — pure local functions of round number and received bytes.
// Single values travel as fixed-length field-element bytes, Multiply's
// two-value round content is CBOR-encoded, and a hash check across
// broadcast messages catches equivocation.
package protocol

import (
	"bytes"
	"fmt"

	"github.com/fresco-mpc/fresco-go/pkg/hash"
	"github.com/fresco-mpc/fresco-go/pkg/party"
)

// Status reports whether a native protocol has more rounds to run.
type Status int

const (
	// HasMoreRounds means the protocol must be collected again next sweep.
	HasMoreRounds Status = iota
	// IsDone means the protocol's output deferred result may be fulfilled.
	IsDone
)

// Native is one leaf of the computation graph: a multi-round state
// machine with inputs, outputs, and a fixed per-round byte contract.
type Native interface {
	// IsDone reports whether the protocol has produced its output.
	IsDone() bool
	// Round returns the round number (1-based) the protocol is about to
	// execute; meaningless once IsDone reports true.
	Round() int
	// Outgoing returns the bytes this protocol sends to each peer for its
	// current round. Calling Outgoing is side-effect free: it may be
	// invoked as a read-only dry-run before the round's incoming messages
	// exist.
	Outgoing() (map[party.ID][]byte, error)
	// Consume processes every peer's bytes for the current round
	// (produced by their own Outgoing) and advances local state,
	// returning the protocol's new Status.
	Consume(incoming map[party.ID][]byte) (Status, error)
}

// BroadcastValidator implements the "broadcast-with-validation" building
// block: after a set of broadcasters has each sent a value to every
// party, every party exchanges a hash of what it received from that set
// and aborts on disagreement, defeating equivocation by a broadcaster
// that shows different peers different things. It is built on pkg/hash's
// domain-separated blake3.
//
// A single-sender broadcast (Input, where only the inputter's masked
// value needs agreement) and an all-to-all broadcast (Open, where every
// party's share needs agreement) both instantiate this with a different
// broadcasters set; the validator itself doesn't care which.
type BroadcastValidator struct {
	broadcasters party.IDSlice
	received     map[party.ID][]byte
}

// NewBroadcastValidator starts a validator covering broadcasters: the
// parties whose messages every one of peers (passed to Verify) must
// agree on having received identically.
func NewBroadcastValidator(broadcasters party.IDSlice) *BroadcastValidator {
	return &BroadcastValidator{broadcasters: broadcasters, received: make(map[party.ID][]byte, len(broadcasters))}
}

// Record stores the bytes received from broadcaster for this instance.
func (v *BroadcastValidator) Record(broadcaster party.ID, data []byte) {
	v.received[broadcaster] = data
}

// OwnHash computes the hash this party should broadcast for the
// validation round, covering every broadcaster's recorded value in
// deterministic order.
func (v *BroadcastValidator) OwnHash() []byte {
	st := hash.New()
	for _, id := range v.broadcasters {
		_ = st.WriteAny(&hash.BytesWithDomain{TheDomain: string(id), Bytes: v.received[id]})
	}
	return st.Sum()
}

// Verify compares every one of peers' reported hash against this party's
// own, returning a KindMalicious Error naming the first peer that
// disagrees (equivocation), or a KindTransport Error if a peer never
// reported one at all.
func (v *BroadcastValidator) Verify(peerHashes map[party.ID][]byte, peers party.IDSlice) error {
	mine := v.OwnHash()
	for _, id := range peers {
		h, ok := peerHashes[id]
		if !ok {
			return &Error{Kind: KindTransport, Culprits: []party.ID{id}, Err: fmt.Errorf("missing broadcast-validation hash")}
		}
		if !bytes.Equal(h, mine) {
			return Malicious(id, "broadcast validation hash mismatch")
		}
	}
	return nil
}
