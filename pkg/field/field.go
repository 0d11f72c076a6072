// Package field implements prime-field arithmetic for FRESCO-Go's
// authenticated-share layer. Arithmetic is performed with constant-time
// big integers from github.com/cronokirby/saferith.
//
// Only the Field/Element interface is treated as core; concrete moduli are
// supplied by callers rather than hardcoded, so the rest of the engine
// never depends on a specific prime.
package field

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
)

// Field fixes a prime modulus p and the fixed-length byte encoding all of
// its elements share.
type Field struct {
	modulus  *saferith.Modulus
	byteLen  int
	nameTag  string
}

// NewField builds a Field for the given big-endian modulus bytes. The
// modulus must be odd (saferith.Modulus requires it) and greater than 1.
func NewField(name string, modulusBytes []byte) *Field {
	m := new(saferith.Nat).SetBytes(modulusBytes)
	mod := saferith.ModulusFromNat(m)
	byteLen := (mod.BitLen() + 7) / 8
	return &Field{modulus: mod, byteLen: byteLen, nameTag: name}
}

// Mersenne61 is the Mersenne prime 2^61 - 1, used throughout the test
// suite and the §8 end-to-end scenarios ("field = Mersenne prime of 61
// bits").
func Mersenne61() *Field {
	// 2^61 - 1 = 2305843009213693951
	p := new(saferith.Nat).SetUint64(2305843009213693951)
	mod := saferith.ModulusFromNat(p)
	return &Field{modulus: mod, byteLen: 8, nameTag: "mersenne61"}
}

// Name identifies the field, for diagnostics.
func (f *Field) Name() string { return f.nameTag }

// ByteLen is the fixed serialized length of every element of this field:
// ceil(log2(p)/8) bytes.
func (f *Field) ByteLen() int { return f.byteLen }

// Modulus exposes the underlying modulus for components (e.g. the
// authenticated-share MAC, the DRBG rejection sampler) that need it
// directly.
func (f *Field) Modulus() *saferith.Modulus { return f.modulus }

// Element is a value in [0, p). The zero value is not valid; construct
// elements via a Field's constructors.
type Element struct {
	field *Field
	nat   *saferith.Nat
}

// Zero returns the additive identity of f.
func (f *Field) Zero() Element {
	return Element{field: f, nat: new(saferith.Nat)}
}

// FromUint64 reduces x modulo p.
func (f *Field) FromUint64(x uint64) Element {
	n := new(saferith.Nat).SetUint64(x)
	n.Mod(n, f.modulus)
	return Element{field: f, nat: n}
}

// FromBytes decodes a canonical big-endian representative. It is an error
// for buf to be any length other than ByteLen() or to encode a value >= p.
func (f *Field) FromBytes(buf []byte) (Element, error) {
	if len(buf) != f.byteLen {
		return Element{}, fmt.Errorf("field: expected %d bytes, got %d", f.byteLen, len(buf))
	}
	n := new(saferith.Nat).SetBytes(buf)
	reduced := new(saferith.Nat).Mod(n, f.modulus)
	if reduced.Eq(n) != 1 {
		return Element{}, fmt.Errorf("field: value is not a canonical representative mod p")
	}
	return Element{field: f, nat: n}, nil
}

// Sample draws a uniformly random element of f from r, using rejection
// sampling against fixed-length byte strings so the result is unbiased.
// The retry bound is generous (256 attempts); exceeding it indicates a
// broken entropy source.
func (f *Field) Sample(r io.Reader) (Element, error) {
	modNat := f.modulus.Nat()
	buf := make([]byte, f.byteLen)
	for attempt := 0; attempt < 256; attempt++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return Element{}, fmt.Errorf("field: sampling: %w", err)
		}
		n := new(saferith.Nat).SetBytes(buf)
		if n.Eq(modNat) == 1 {
			continue
		}
		reduced := new(saferith.Nat).Mod(n, f.modulus)
		if reduced.Eq(n) != 1 {
			// n >= p; reject and resample rather than introduce bias.
			continue
		}
		return Element{field: f, nat: n}, nil
	}
	return Element{}, fmt.Errorf("field: sampling: exceeded retry bound")
}

// MustSample samples from crypto/rand, panicking on failure. It exists for
// call sites (tests, demos) where a non-functioning system RNG is already
// a fatal condition.
func (f *Field) MustSample() Element {
	e, err := f.Sample(rand.Reader)
	if err != nil {
		panic(err)
	}
	return e
}

// Field returns the field this element belongs to.
func (e Element) Field() *Field { return e.field }

// Add returns e + other mod p.
func (e Element) Add(other Element) Element {
	out := new(saferith.Nat).ModAdd(e.nat, other.nat, e.field.modulus)
	return Element{field: e.field, nat: out}
}

// Sub returns e - other mod p.
func (e Element) Sub(other Element) Element {
	out := new(saferith.Nat).ModSub(e.nat, other.nat, e.field.modulus)
	return Element{field: e.field, nat: out}
}

// Neg returns -e mod p.
func (e Element) Neg() Element {
	out := new(saferith.Nat).ModNeg(e.nat, e.field.modulus)
	return Element{field: e.field, nat: out}
}

// Mul returns e * other mod p.
func (e Element) Mul(other Element) Element {
	out := new(saferith.Nat).ModMul(e.nat, other.nat, e.field.modulus)
	return Element{field: e.field, nat: out}
}

// Equal reports whether e and other represent the same field element.
func (e Element) Equal(other Element) bool {
	if e.field != other.field {
		return false
	}
	return e.nat.Eq(other.nat) == 1
}

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool {
	return e.nat.Eq(new(saferith.Nat)) == 1
}

// Bytes encodes e as a fixed-length big-endian byte string.
func (e Element) Bytes() []byte {
	raw := e.nat.Bytes()
	out := make([]byte, e.field.byteLen)
	copy(out[e.field.byteLen-len(raw):], raw)
	return out
}

// String renders e for diagnostics; never used on the wire.
func (e Element) String() string {
	return fmt.Sprintf("%s", e.nat.Big().String())
}
