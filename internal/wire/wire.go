// Package wire defines the on-the-wire envelope the evaluator uses to
// batch many native protocols' per-round messages into a single network
// write, CBOR-encoding each protocol's outgoing bytes before handing the
// batch to the network.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Envelope carries one native protocol's contribution to one peer for the
// current batch. Envelopes within a Batch are ordered identically to the
// evaluator's deterministic enumeration of collected protocols, which is
// fixed and identical at every party, so the receiver can zip them back up
// without any protocol identifier on the wire.
type Envelope struct {
	// Len is the number of payload bytes this protocol contributed; it
	// must match the length the protocol declared during its dry-run, so
	// a corrupt or lying peer is caught as soon as the lengths disagree.
	Len  int
	Data []byte
}

// Batch is everything one party sends to one peer in a single round
// sweep.
type Batch struct {
	Round     int
	Envelopes []Envelope
}

// Marshal encodes a batch for network transmission.
func (b Batch) Marshal() ([]byte, error) {
	out, err := cbor.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal batch: %w", err)
	}
	return out, nil
}

// UnmarshalBatch decodes a batch received from a peer.
func UnmarshalBatch(data []byte) (Batch, error) {
	var b Batch
	if err := cbor.Unmarshal(data, &b); err != nil {
		return Batch{}, fmt.Errorf("wire: unmarshal batch: %w", err)
	}
	return b, nil
}

// Encode CBOR-encodes an arbitrary protocol payload, the per-protocol
// analogue of Batch.Marshal.
func Encode(v interface{}) ([]byte, error) {
	out, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return out, nil
}

// Decode CBOR-decodes into v a payload produced by Encode.
func Decode(data []byte, v interface{}) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: decode: %w", err)
	}
	return nil
}
