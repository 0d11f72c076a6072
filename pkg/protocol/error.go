package protocol

import (
	"fmt"

	"github.com/fresco-mpc/fresco-go/pkg/party"
)

// ErrorKind classifies why a native protocol or session aborted, so a
// caller can branch on cheating versus an ordinary fault without
// string-matching error text.
type ErrorKind int

const (
	// KindMalicious means a peer's message was inconsistent with a
	// commitment, a MAC, or an equivocation check: cheating, not noise.
	KindMalicious ErrorKind = iota
	// KindTransport means a peer's message for the current round was
	// missing or malformed, with nothing to pin the fault on one cause.
	KindTransport
	// KindProgrammer means the evaluator or a protocol was driven in a
	// way its own invariants forbid, e.g. a sweep that makes no progress.
	KindProgrammer
	// KindResource means preprocessing material (triples, masks, random
	// elements) ran out before the program finished consuming it.
	KindResource
	// KindArithmetic means a field or encoding operation failed on its
	// own terms: an out-of-range element, a bad byte length.
	KindArithmetic
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalicious:
		return "malicious"
	case KindTransport:
		return "transport"
	case KindProgrammer:
		return "programmer"
	case KindResource:
		return "resource"
	case KindArithmetic:
		return "arithmetic"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error is the typed error raised for detected cheating (commitment, MAC
// and broadcast-validation mismatches), for missing or malformed peer
// messages, and for the evaluator's no-progress abort: it carries a kind,
// the peer or peers responsible where applicable, and a batch number, so
// such an abort can be branched on rather than string-matched. Other
// failures, such as correlated-randomness exhaustion, the evaluator's
// network and batch-decoding errors, or an invalid round number, are
// returned as plain wrapped errors rather than as an Error.
type Error struct {
	Kind     ErrorKind
	Culprits []party.ID
	Batch    int
	Err      error
}

func (e *Error) Error() string {
	switch {
	case len(e.Culprits) == 1 && e.Batch > 0:
		return fmt.Sprintf("protocol: %s (peer %s, batch %d): %v", e.Kind, e.Culprits[0], e.Batch, e.Err)
	case len(e.Culprits) == 1:
		return fmt.Sprintf("protocol: %s (peer %s): %v", e.Kind, e.Culprits[0], e.Err)
	case len(e.Culprits) > 0:
		return fmt.Sprintf("protocol: %s (peers %v): %v", e.Kind, e.Culprits, e.Err)
	default:
		return fmt.Sprintf("protocol: %s: %v", e.Kind, e.Err)
	}
}

// Unwrap exposes the underlying cause, so errors.Is/errors.As still see
// through an Error to things like preprocessing.ErrExhausted.
func (e *Error) Unwrap() error { return e.Err }

// Malicious builds a KindMalicious Error naming a single culprit: the
// shape every cheating-detection site in this module returns.
func Malicious(peer party.ID, reason string) *Error {
	return &Error{Kind: KindMalicious, Culprits: []party.ID{peer}, Err: fmt.Errorf("%s", reason)}
}
