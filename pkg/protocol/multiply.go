package protocol

import (
	"fmt"

	"github.com/fresco-mpc/fresco-go/internal/wire"
	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/preprocessing"
	"github.com/fresco-mpc/fresco-go/pkg/sint"
)

// openingPair is the two-value payload a Multiply round batches into a
// single network message: ε = x - a and δ = y - b, opened together in one
// round.
type openingPair struct {
	Eps   []byte
	Delta []byte
}

// Multiply realises secret multiplication via a Beaver triple: it costs
// exactly one round, consuming one triple from the correlated-randomness
// supplier.
type Multiply struct {
	self     party.ID
	others   party.IDSlice
	fld      *field.Field
	alpha    field.Element
	isFirst  bool

	x, y  sint.Share
	a, b, c sint.Share

	eps, delta sint.Share // ε, δ as authenticated shares (pre-opening)

	done       bool
	epsClear   field.Element
	deltaClear field.Element
	output     sint.Share
}

// NewMultiply starts multiplying x by y, consuming the next triple from
// supplier. alphaShare is this party's share of the global MAC key;
// isFirst marks the single, fixed party responsible for adding the public
// ε·δ correction term (every other party adds 0).
func NewMultiply(self party.ID, others party.IDSlice, fld *field.Field, alphaShare field.Element, isFirst bool, x, y sint.Share, supplier preprocessing.Supplier) (*Multiply, error) {
	t, err := supplier.NextTriple()
	if err != nil {
		return nil, fmt.Errorf("protocol: multiply: %w", err)
	}
	m := &Multiply{
		self: self, others: others, fld: fld, alpha: alphaShare, isFirst: isFirst,
		x: x, y: y, a: t.A, b: t.B, c: t.C,
	}
	m.eps = x.Sub(t.A)
	m.delta = y.Sub(t.B)
	return m, nil
}

func (m *Multiply) IsDone() bool { return m.done }
func (m *Multiply) Round() int   { return 1 }

func (m *Multiply) Outgoing() (map[party.ID][]byte, error) {
	payload, err := wire.Encode(openingPair{Eps: m.eps.Value.Bytes(), Delta: m.delta.Value.Bytes()})
	if err != nil {
		return nil, err
	}
	out := make(map[party.ID][]byte, len(m.others))
	for _, id := range m.others {
		out[id] = payload
	}
	return out, nil
}

func (m *Multiply) Consume(incoming map[party.ID][]byte) (Status, error) {
	epsSum := m.eps.Value
	deltaSum := m.delta.Value
	for _, id := range m.others {
		buf, ok := incoming[id]
		if !ok {
			return HasMoreRounds, &Error{Kind: KindTransport, Culprits: []party.ID{id},
				Err: fmt.Errorf("protocol: multiply: missing message from %s", id)}
		}
		var pair openingPair
		if err := wire.Decode(buf, &pair); err != nil {
			return HasMoreRounds, &Error{Kind: KindTransport, Culprits: []party.ID{id},
				Err: fmt.Errorf("protocol: multiply: %w", err)}
		}
		epsElem, err := m.fld.FromBytes(pair.Eps)
		if err != nil {
			return HasMoreRounds, &Error{Kind: KindTransport, Culprits: []party.ID{id},
				Err: fmt.Errorf("protocol: multiply: bad eps from %s: %w", id, err)}
		}
		deltaElem, err := m.fld.FromBytes(pair.Delta)
		if err != nil {
			return HasMoreRounds, &Error{Kind: KindTransport, Culprits: []party.ID{id},
				Err: fmt.Errorf("protocol: multiply: bad delta from %s: %w", id, err)}
		}
		epsSum = epsSum.Add(epsElem)
		deltaSum = deltaSum.Add(deltaElem)
	}
	m.epsClear = epsSum
	m.deltaClear = deltaSum

	// z = c + ε·b + δ·a + ε·δ (first party only)
	z := m.c.Add(m.b.MulPublic(m.epsClear)).Add(m.a.MulPublic(m.deltaClear))
	z = z.AddPublic(m.epsClear.Mul(m.deltaClear), m.alpha, m.isFirst)
	m.output = z
	m.done = true
	return IsDone, nil
}

// Output returns the authenticated share of x·y. Valid only once IsDone.
func (m *Multiply) Output() sint.Share { return m.output }

// OpenedEps and OpenedDelta return the (pre-opening share, opened value)
// pairs for ε and δ, which the SPDZ online layer must record in the
// opened-value store: they are genuine openings of authenticated shares
// and must be covered by the next MAC-check.
func (m *Multiply) OpenedEps() (sint.Share, field.Element)   { return m.eps, m.epsClear }
func (m *Multiply) OpenedDelta() (sint.Share, field.Element) { return m.delta, m.deltaClear }

var _ Native = (*Multiply)(nil)
