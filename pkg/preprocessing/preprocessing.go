// Package preprocessing defines the correlated-randomness supplier
// contract the online layer consumes. Concrete preprocessing protocols
// that manufacture triples/masks/random shares under active security are
// out of scope here; this package defines only the interface plus an
// in-memory double used by tests, property tests, and the CLI demo. The
// supplier is handed to the engine explicitly rather than reached
// through a global singleton.
package preprocessing

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/sint"
)

// Triple is a Beaver triple (a, b, c = a·b), authenticated and additively
// shared, consumed one-per-secret-multiplication.
type Triple struct {
	A, B, C sint.Share
}

// InputMask is a random authenticated share whose clear value is known to
// exactly one party (the Inputter), enabling that party to mask and
// reveal its input.
type InputMask struct {
	Inputter party.ID
	Share    sint.Share
	// Clear holds the mask's value in the clear, populated only in the
	// InputMask instance handed to Inputter; every other party receives an
	// InputMask with Clear left at its zero value and must not read it.
	Clear    field.Element
	HasClear bool
}

// RandomShare is an authenticated share of a uniformly random, otherwise
// unused field element.
type RandomShare struct {
	Share sint.Share
}

// Bit is an authenticated share of a uniformly random {0,1} value.
type Bit struct {
	Share sint.Share
}

// TruncationPair supports fixed-point truncation by d bits: a share of a
// random r together with a share of r right-shifted by d bits. The
// numeric builder surface does not itself expose truncation — fixed-point
// applications are left external — but the supplier contract carries the
// operation since it is part of the correlated-randomness interface.
type TruncationPair struct {
	R, RShifted sint.Share
}

// Supplier is the per-party handle onto correlated randomness. Every
// operation must be deterministic across parties in the sense that the
// i-th call by every party returns that party's share of the very same
// joint randomness — Dealer below enforces this by handing out parallel
// per-party queues built from one shared generation.
type Supplier interface {
	NextTriple() (Triple, error)
	NextInputMask(inputter party.ID) (InputMask, error)
	NextRandomShare() (RandomShare, error)
	NextBit() (Bit, error)
	NextTruncationPair(d int) (TruncationPair, error)
}

// ErrExhausted is returned when a queue runs dry, surfaced by callers as
// the resource-exhaustion error kind.
var ErrExhausted = fmt.Errorf("preprocessing: randomness queue exhausted")

// InMemorySupplier is a deterministic, in-process Supplier backed by
// pre-generated queues. It stands in for the out-of-scope offline phase in
// tests, property tests, and the CLI demo.
type InMemorySupplier struct {
	mu sync.Mutex

	triples     []Triple
	inputMasks  map[party.ID][]InputMask
	randomShares []RandomShare
	bits        []Bit
	truncPairs  map[int][]TruncationPair

	triplesIdx, randomIdx int
	inputIdx              map[party.ID]int
	bitIdx                int
	truncIdx               map[int]int
}

func newEmptySupplier() *InMemorySupplier {
	return &InMemorySupplier{
		inputMasks: make(map[party.ID][]InputMask),
		truncPairs: make(map[int][]TruncationPair),
		inputIdx:   make(map[party.ID]int),
		truncIdx:   make(map[int]int),
	}
}

// NextTriple returns the next Beaver triple share, or ErrExhausted.
func (s *InMemorySupplier) NextTriple() (Triple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.triplesIdx >= len(s.triples) {
		return Triple{}, ErrExhausted
	}
	t := s.triples[s.triplesIdx]
	s.triplesIdx++
	return t, nil
}

// NextInputMask returns the next input-mask share for the given inputter.
func (s *InMemorySupplier) NextInputMask(inputter party.ID) (InputMask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.inputMasks[inputter]
	idx := s.inputIdx[inputter]
	if idx >= len(queue) {
		return InputMask{}, ErrExhausted
	}
	s.inputIdx[inputter] = idx + 1
	return queue[idx], nil
}

// NextRandomShare returns the next random-element share.
func (s *InMemorySupplier) NextRandomShare() (RandomShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.randomIdx >= len(s.randomShares) {
		return RandomShare{}, ErrExhausted
	}
	r := s.randomShares[s.randomIdx]
	s.randomIdx++
	return r, nil
}

// NextBit returns the next random-bit share.
func (s *InMemorySupplier) NextBit() (Bit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bitIdx >= len(s.bits) {
		return Bit{}, ErrExhausted
	}
	b := s.bits[s.bitIdx]
	s.bitIdx++
	return b, nil
}

// NextTruncationPair returns the next truncation-pair share for shift d.
func (s *InMemorySupplier) NextTruncationPair(d int) (TruncationPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.truncPairs[d]
	idx := s.truncIdx[d]
	if idx >= len(queue) {
		return TruncationPair{}, ErrExhausted
	}
	s.truncIdx[d] = idx + 1
	return queue[idx], nil
}

var _ Supplier = (*InMemorySupplier)(nil)

// Dealer generates one consistent preprocessing generation for a fixed
// party set and field, and hands out one InMemorySupplier per party, each
// carrying that party's share of the exact same joint randomness.
type Dealer struct {
	fld         *field.Field
	parties     party.IDSlice
	alphaShares map[party.ID]field.Element
	rnd         io.Reader
}

// NewDealer creates a Dealer for the given parties and field, sampling a
// fresh random MAC key α and splitting it additively across the parties.
// It returns the Dealer and the per-party α-shares the caller should wire
// into each party's session (the key itself is never returned; the Dealer
// keeps the shares and sums them internally to compute MACs).
func NewDealer(fld *field.Field, parties []party.ID) (*Dealer, map[party.ID]field.Element, error) {
	sorted := party.NewIDSlice(parties)
	alphaShares, err := splitRandom(fld, len(sorted))
	if err != nil {
		return nil, nil, err
	}
	shares := make(map[party.ID]field.Element, len(sorted))
	for i, id := range sorted {
		shares[id] = alphaShares[i]
	}
	return &Dealer{fld: fld, parties: sorted, alphaShares: shares, rnd: rand.Reader}, shares, nil
}

func splitRandom(fld *field.Field, n int) ([]field.Element, error) {
	total := fld.Zero()
	shares := make([]field.Element, n)
	for i := 0; i < n-1; i++ {
		s, err := fld.Sample(rand.Reader)
		if err != nil {
			return nil, err
		}
		shares[i] = s
		total = total.Add(s)
	}
	// The final share is whatever is needed so the shares sum to a fresh
	// random secret; sampling the secret directly and subtracting the
	// partial sum keeps the distribution uniform.
	secret, err := fld.Sample(rand.Reader)
	if err != nil {
		return nil, err
	}
	shares[n-1] = secret.Sub(total)
	return shares, nil
}

func (d *Dealer) alpha() field.Element {
	sum := d.fld.Zero()
	for _, s := range d.alphaShares {
		sum = sum.Add(s)
	}
	return sum
}

// authenticate splits a clear value into per-party Shares whose MACs are
// consistent with α, in Dealer's fixed party order.
func (d *Dealer) authenticate(value field.Element) ([]sint.Share, error) {
	valueShares, err := splitRandom(d.fld, len(d.parties))
	if err != nil {
		return nil, err
	}
	// Re-anchor valueShares to sum to `value` instead of a fresh random
	// secret: replace the last share so the total matches.
	sum := d.fld.Zero()
	for _, s := range valueShares[:len(valueShares)-1] {
		sum = sum.Add(s)
	}
	valueShares[len(valueShares)-1] = value.Sub(sum)

	mac := value.Mul(d.alpha())
	macShares, err := splitRandom(d.fld, len(d.parties))
	if err != nil {
		return nil, err
	}
	sum = d.fld.Zero()
	for _, s := range macShares[:len(macShares)-1] {
		sum = sum.Add(s)
	}
	macShares[len(macShares)-1] = mac.Sub(sum)

	out := make([]sint.Share, len(d.parties))
	for i := range d.parties {
		out[i] = sint.New(valueShares[i], macShares[i])
	}
	return out, nil
}

// GenerateTriples produces n Beaver triples and returns, for each party,
// its queue of n Triple shares in the same order for everyone.
func (d *Dealer) GenerateTriples(n int) (map[party.ID][]Triple, error) {
	out := make(map[party.ID][]Triple, len(d.parties))
	for _, id := range d.parties {
		out[id] = make([]Triple, 0, n)
	}
	for i := 0; i < n; i++ {
		a, err := d.fld.Sample(d.rnd)
		if err != nil {
			return nil, err
		}
		b, err := d.fld.Sample(d.rnd)
		if err != nil {
			return nil, err
		}
		c := a.Mul(b)
		aShares, err := d.authenticate(a)
		if err != nil {
			return nil, err
		}
		bShares, err := d.authenticate(b)
		if err != nil {
			return nil, err
		}
		cShares, err := d.authenticate(c)
		if err != nil {
			return nil, err
		}
		for pi, id := range d.parties {
			out[id] = append(out[id], Triple{A: aShares[pi], B: bShares[pi], C: cShares[pi]})
		}
	}
	return out, nil
}

// GenerateInputMasks produces n input masks for the given inputter.
func (d *Dealer) GenerateInputMasks(inputter party.ID, n int) (map[party.ID][]InputMask, error) {
	out := make(map[party.ID][]InputMask, len(d.parties))
	for _, id := range d.parties {
		out[id] = make([]InputMask, 0, n)
	}
	for i := 0; i < n; i++ {
		r, err := d.fld.Sample(d.rnd)
		if err != nil {
			return nil, err
		}
		rShares, err := d.authenticate(r)
		if err != nil {
			return nil, err
		}
		for pi, id := range d.parties {
			mask := InputMask{Inputter: inputter, Share: rShares[pi]}
			if id == inputter {
				mask.Clear = r
				mask.HasClear = true
			}
			out[id] = append(out[id], mask)
		}
	}
	return out, nil
}

// GenerateRandomShares produces n authenticated random-element shares.
func (d *Dealer) GenerateRandomShares(n int) (map[party.ID][]RandomShare, error) {
	out := make(map[party.ID][]RandomShare, len(d.parties))
	for _, id := range d.parties {
		out[id] = make([]RandomShare, 0, n)
	}
	for i := 0; i < n; i++ {
		r, err := d.fld.Sample(d.rnd)
		if err != nil {
			return nil, err
		}
		rShares, err := d.authenticate(r)
		if err != nil {
			return nil, err
		}
		for pi, id := range d.parties {
			out[id] = append(out[id], RandomShare{Share: rShares[pi]})
		}
	}
	return out, nil
}

// GenerateBits produces n authenticated shares of uniformly random bits.
func (d *Dealer) GenerateBits(n int) (map[party.ID][]Bit, error) {
	out := make(map[party.ID][]Bit, len(d.parties))
	for _, id := range d.parties {
		out[id] = make([]Bit, 0, n)
	}
	for i := 0; i < n; i++ {
		var buf [1]byte
		if _, err := io.ReadFull(d.rnd, buf[:]); err != nil {
			return nil, err
		}
		bit := d.fld.FromUint64(uint64(buf[0] & 1))
		bShares, err := d.authenticate(bit)
		if err != nil {
			return nil, err
		}
		for pi, id := range d.parties {
			out[id] = append(out[id], Bit{Share: bShares[pi]})
		}
	}
	return out, nil
}

// Counts says how many triples, random shares and bits BuildSuppliers
// generates, shared across all parties. BuildSuppliers' shortTriplesFor
// argument lets a caller hand out an intentionally short triple queue to a
// specific party, for exercising resource-exhaustion aborts.
type Counts struct {
	Triples      int
	RandomShares int
	Bits         int
}

// BuildSuppliers generates `counts`-worth of triples/random-shares/bits
// shared across all parties, plus `inputCounts[p]` input masks for each
// inputter p, and returns one InMemorySupplier per party.
//
// shortTriplesFor, if non-empty, truncates that party's triple queue by one
// element after generation, to deterministically trigger the
// resource-exhaustion abort path at a known batch.
func (d *Dealer) BuildSuppliers(counts Counts, inputCounts map[party.ID]int, shortTriplesFor party.ID) (map[party.ID]*InMemorySupplier, error) {
	triples, err := d.GenerateTriples(counts.Triples)
	if err != nil {
		return nil, err
	}
	randomShares, err := d.GenerateRandomShares(counts.RandomShares)
	if err != nil {
		return nil, err
	}
	bits, err := d.GenerateBits(counts.Bits)
	if err != nil {
		return nil, err
	}
	perPartyInputMasks := make(map[party.ID]map[party.ID][]InputMask, len(d.parties))
	for inputter, n := range inputCounts {
		masks, err := d.GenerateInputMasks(inputter, n)
		if err != nil {
			return nil, err
		}
		for _, id := range d.parties {
			if perPartyInputMasks[id] == nil {
				perPartyInputMasks[id] = make(map[party.ID][]InputMask)
			}
			perPartyInputMasks[id][inputter] = masks[id]
		}
	}

	out := make(map[party.ID]*InMemorySupplier, len(d.parties))
	for _, id := range d.parties {
		s := newEmptySupplier()
		s.triples = triples[id]
		s.randomShares = randomShares[id]
		s.bits = bits[id]
		if id == shortTriplesFor && len(s.triples) > 0 {
			s.triples = s.triples[:len(s.triples)-1]
		}
		for inputter, masks := range perPartyInputMasks[id] {
			s.inputMasks[inputter] = masks
		}
		out[id] = s
	}
	return out, nil
}
