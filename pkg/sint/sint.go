// Package sint implements the authenticated share type (SInt): a pair of
// additive shares, one of a secret value and one of its MAC, that stays
// linearly closed under addition, subtraction, and multiplication by a
// public constant without any network round.
//
// The type itself is deliberately "dumb" arithmetic — all protocol
// decisions (which party is "party 0" for a public add, which triple to
// consume for a secret multiplication) live in pkg/protocol and pkg/spdz,
// keeping this a pure arithmetic type with no protocol logic of its own.
package sint

import "github.com/fresco-mpc/fresco-go/pkg/field"

// Share is one party's fragment of an authenticated value: an additive
// share x_i of the secret x, and an additive share m_i of its MAC α·x.
type Share struct {
	Value field.Element
	Mac   field.Element
}

// New builds a Share from its two components. Both elements must belong to
// the same field.
func New(value, mac field.Element) Share {
	return Share{Value: value, Mac: mac}
}

// Add implements (x,m) + (y,n) = (x+y, m+n): free, no round.
func (s Share) Add(other Share) Share {
	return Share{Value: s.Value.Add(other.Value), Mac: s.Mac.Add(other.Mac)}
}

// Sub implements (x,m) - (y,n) = (x-y, m-n): free, no round.
func (s Share) Sub(other Share) Share {
	return Share{Value: s.Value.Sub(other.Value), Mac: s.Mac.Sub(other.Mac)}
}

// Neg negates both components.
func (s Share) Neg() Share {
	return Share{Value: s.Value.Neg(), Mac: s.Mac.Neg()}
}

// MulPublic implements c·(x,m) = (cx, cm) for a publicly known constant c:
// free, no round.
func (s Share) MulPublic(c field.Element) Share {
	return Share{Value: s.Value.Mul(c), Mac: s.Mac.Mul(c)}
}

// AddPublic implements the public-add rule:
//
//	(x,m) + c = (x_i + c if i=0 else x_i, m_i + c·α_i)
//
// isFirst identifies whether the calling party is the designated "party 0"
// for this session (a fixed, session-wide choice — any consistent
// convention works since only one party may add c to its value share or
// the MAC equation breaks). alphaShare is this party's share α_i of the
// global MAC key.
func (s Share) AddPublic(c field.Element, alphaShare field.Element, isFirst bool) Share {
	value := s.Value
	if isFirst {
		value = value.Add(c)
	}
	mac := s.Mac.Add(c.Mul(alphaShare))
	return Share{Value: value, Mac: mac}
}

// SubPublic implements (x,m) - c via AddPublic(-c, ...).
func (s Share) SubPublic(c field.Element, alphaShare field.Element, isFirst bool) Share {
	return s.AddPublic(c.Neg(), alphaShare, isFirst)
}

// Reconstruct sums every party's value share to recover the opened value.
// It performs no MAC verification; callers must run the batched MAC-check
// (pkg/macchk) before trusting an opened value.
func Reconstruct(shares []Share) field.Element {
	sum := shares[0].Value
	for _, s := range shares[1:] {
		sum = sum.Add(s.Value)
	}
	return sum
}

// ReconstructMac sums every party's MAC share, for use by the MAC-check.
func ReconstructMac(shares []Share) field.Element {
	sum := shares[0].Mac
	for _, s := range shares[1:] {
		sum = sum.Add(s.Mac)
	}
	return sum
}
