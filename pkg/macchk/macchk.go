// Package macchk implements the batched MAC-check: before any opened
// value may be trusted, every party proves — via a commit-then-open
// exchange over a jointly-derived random linear combination — that the
// MAC equation held for every value opened since the last check.
//
// The commit-then-open shape is built on pkg/hash.Commit/VerifyCommit: a
// party first commits to a value, then reveals it only once every
// commitment is in, which stops a cheating party from choosing its
// opening to match others' after seeing them. Checker applies this
// twice: once to agree on an unbiased seed for the check's random
// coefficients, once to open the check value itself.
package macchk

import (
	"crypto/rand"
	"fmt"

	"github.com/fresco-mpc/fresco-go/pkg/drbg"
	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/hash"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/protocol"
	"github.com/fresco-mpc/fresco-go/pkg/sint"
)

// Opening is one previously-opened value this party must vouch for: the
// authenticated share that was opened, and the reconstructed clear value
// every party agreed it opened to.
type Opening struct {
	Share  sint.Share
	Opened field.Element
}

// Store accumulates Openings between MAC-checks — the opened-value
// store, cleared atomically only once a Check succeeds.
type Store struct {
	openings []Opening
}

// NewStore returns an empty opened-value store.
func NewStore() *Store {
	return &Store{}
}

// Record appends an opening to the store. Every opened value (an Open, and
// Multiply's two internal openings) is recorded here by pkg/spdz when the
// protocol's output is extracted; the native protocols themselves never
// call it.
func (s *Store) Record(o Opening) {
	s.openings = append(s.openings, o)
}

// Len reports how many openings are pending a check.
func (s *Store) Len() int { return len(s.openings) }

const (
	domainSeed  = "macchk-seed"
	domainCheck = "macchk-value"
)

// Checker runs one batched MAC-check over everything recorded in a Store
// since the last successful check, as a four-round protocol.Native so it
// can be driven by the same evaluator that drives every other protocol:
// (1) commit to a seed share, (2) open the seed share and derive this
// party's share of the check value, (3) commit to that check value,
// (4) open the check value and verify the combined sum is zero.
type Checker struct {
	self   party.ID
	others party.IDSlice
	fld    *field.Field
	alpha  field.Element
	store  *Store
	batch  int

	seedShare  [32]byte
	seedOpen   [32]byte
	seedCommit []byte

	round int
	done  bool

	peerSeedCommits map[party.ID][]byte

	checkValue    field.Element
	checkOpen     [32]byte
	checkCommit   []byte
	peerCheckComm map[party.ID][]byte
	peerCheckVal  map[party.ID]field.Element
}

// NewChecker starts a MAC-check over everything currently in store.
// seedShare is this party's contribution to the joint seed that derives
// the random linear-combination coefficients: the coefficients are
// derived from a value jointly and unpredictably chosen by all parties,
// never locally. batch identifies this check among a session's checks
// (e.g. a monotonically increasing counter kept by the caller), and is
// carried on any protocol.Error this Checker raises so a caller can tell
// which batch a culprit was caught cheating in.
func NewChecker(self party.ID, others party.IDSlice, fld *field.Field, alphaShare field.Element, store *Store, seedShare [32]byte, batch int) *Checker {
	return &Checker{self: self, others: others, fld: fld, alpha: alphaShare, store: store, seedShare: seedShare, batch: batch, round: 1}
}

func (c *Checker) IsDone() bool { return c.done }
func (c *Checker) Round() int   { return c.round }

func (c *Checker) Outgoing() (map[party.ID][]byte, error) {
	switch c.round {
	case 1:
		// The opening is drawn once, on the first call, so repeated
		// dry-runs of this round all return the same commitment.
		if c.seedCommit == nil {
			if _, err := rand.Read(c.seedOpen[:]); err != nil {
				return nil, fmt.Errorf("macchk: %w", err)
			}
			c.seedCommit = hash.Commit(domainSeed, c.seedShare[:], c.seedOpen[:])
		}
		return broadcastAll(c.others, c.seedCommit), nil
	case 2:
		payload := append(append([]byte{}, c.seedShare[:]...), c.seedOpen[:]...)
		return broadcastAll(c.others, payload), nil
	case 3:
		return broadcastAll(c.others, c.checkCommit), nil
	case 4:
		payload := append(append([]byte{}, c.checkValue.Bytes()...), c.checkOpen[:]...)
		return broadcastAll(c.others, payload), nil
	default:
		return nil, fmt.Errorf("macchk: invalid round %d", c.round)
	}
}

func (c *Checker) Consume(incoming map[party.ID][]byte) (protocol.Status, error) {
	switch c.round {
	case 1:
		c.peerSeedCommits = make(map[party.ID][]byte, len(c.others))
		for _, id := range c.others {
			buf, ok := incoming[id]
			if !ok {
				return protocol.HasMoreRounds, c.transportErr(id, fmt.Errorf("missing seed commitment"))
			}
			c.peerSeedCommits[id] = buf
		}
		c.round = 2
		return protocol.HasMoreRounds, nil

	case 2:
		contributions := [][32]byte{c.seedShare}
		for _, id := range c.others {
			buf, ok := incoming[id]
			if !ok || len(buf) != 64 {
				return protocol.HasMoreRounds, c.transportErr(id, fmt.Errorf("missing or malformed seed opening"))
			}
			share, opening := buf[:32], buf[32:]
			if !hash.VerifyCommit(domainSeed, share, opening, c.peerSeedCommits[id]) {
				err := protocol.Malicious(id, "mac-check seed commitment mismatch")
				err.Batch = c.batch
				return protocol.HasMoreRounds, err
			}
			var s [32]byte
			copy(s[:], share)
			contributions = append(contributions, s)
		}
		joint := drbg.JointSeed(contributions)
		d, err := drbg.New(joint)
		if err != nil {
			return protocol.HasMoreRounds, fmt.Errorf("macchk: %w", err)
		}
		value, err := c.computeCheckValue(d)
		if err != nil {
			return protocol.HasMoreRounds, fmt.Errorf("macchk: %w", err)
		}
		c.checkValue = value
		if _, err := rand.Read(c.checkOpen[:]); err != nil {
			return protocol.HasMoreRounds, fmt.Errorf("macchk: %w", err)
		}
		c.checkCommit = hash.Commit(domainCheck, value.Bytes(), c.checkOpen[:])
		c.round = 3
		return protocol.HasMoreRounds, nil

	case 3:
		c.peerCheckComm = make(map[party.ID][]byte, len(c.others))
		for _, id := range c.others {
			buf, ok := incoming[id]
			if !ok {
				return protocol.HasMoreRounds, c.transportErr(id, fmt.Errorf("missing check commitment"))
			}
			c.peerCheckComm[id] = buf
		}
		c.round = 4
		return protocol.HasMoreRounds, nil

	case 4:
		c.peerCheckVal = make(map[party.ID]field.Element, len(c.others))
		for _, id := range c.others {
			buf, ok := incoming[id]
			if !ok || len(buf) != c.fld.ByteLen()+32 {
				return protocol.HasMoreRounds, c.transportErr(id, fmt.Errorf("missing or malformed check opening"))
			}
			valBytes, opening := buf[:c.fld.ByteLen()], buf[c.fld.ByteLen():]
			if !hash.VerifyCommit(domainCheck, valBytes, opening, c.peerCheckComm[id]) {
				err := protocol.Malicious(id, "mac-check value commitment mismatch")
				err.Batch = c.batch
				return protocol.HasMoreRounds, err
			}
			v, err := c.fld.FromBytes(valBytes)
			if err != nil {
				return protocol.HasMoreRounds, c.transportErr(id, fmt.Errorf("bad check value: %w", err))
			}
			c.peerCheckVal[id] = v
		}
		sum := c.checkValue
		for _, v := range c.peerCheckVal {
			sum = sum.Add(v)
		}
		if !sum.IsZero() {
			// The combined z_i sum is a joint statement: a non-zero result
			// means some value opened since the last check didn't match its
			// MAC, but this round alone can't pin it on one peer, so every
			// peer in the check is named as a culprit.
			return protocol.HasMoreRounds, &protocol.Error{
				Kind:     protocol.KindMalicious,
				Culprits: append(party.IDSlice{}, c.others...),
				Batch:    c.batch,
				Err:      fmt.Errorf("macchk: MAC check failed: non-zero combined value"),
			}
		}
		c.store.openings = nil
		c.done = true
		return protocol.IsDone, nil

	default:
		return protocol.HasMoreRounds, fmt.Errorf("macchk: invalid round %d", c.round)
	}
}

// computeCheckValue derives this party's share z_i of
// Σ_k r_k·(m_k − α·x_k): a valid batch reconstructs, across every party's
// z_i, to zero.
func (c *Checker) computeCheckValue(d *drbg.DRBG) (field.Element, error) {
	acc := c.fld.Zero()
	for _, o := range c.store.openings {
		r, err := c.fld.Sample(d)
		if err != nil {
			return field.Element{}, err
		}
		rm := r.Mul(o.Share.Mac)
		rax := r.Mul(c.alpha.Mul(o.Opened))
		acc = acc.Add(rm).Sub(rax)
	}
	return acc, nil
}

// transportErr wraps a per-peer wire fault (missing or malformed message)
// as a KindTransport protocol.Error, so a caller can tell it apart from a
// KindMalicious verdict even though both abort the same round.
func (c *Checker) transportErr(peer party.ID, cause error) *protocol.Error {
	return &protocol.Error{Kind: protocol.KindTransport, Culprits: []party.ID{peer}, Batch: c.batch, Err: cause}
}

func broadcastAll(peers party.IDSlice, payload []byte) map[party.ID][]byte {
	out := make(map[party.ID][]byte, len(peers))
	for _, id := range peers {
		out[id] = payload
	}
	return out
}

var _ protocol.Native = (*Checker)(nil)
