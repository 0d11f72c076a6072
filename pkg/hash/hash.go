// Package hash provides domain-separated hashing for FRESCO-Go, backed by
// github.com/zeebo/blake3.
package hash

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// State accumulates domain-separated writes before producing a digest.
type State struct {
	h *blake3.Hasher
}

// New returns a fresh hashing state.
func New() *State {
	return &State{h: blake3.New()}
}

// BytesWithDomain tags a byte string with a domain label before it is
// absorbed, preventing cross-protocol collisions between, e.g., a
// broadcast-message hash and a MAC-check commitment.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// WriteAny absorbs a domain-tagged byte string into the running hash.
// The domain length is length-prefixed so "ab"+"c" cannot collide with
// "a"+"bc" under different domain splits.
func (s *State) WriteAny(v *BytesWithDomain) error {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(v.TheDomain)))
	if _, err := s.h.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := s.h.Write([]byte(v.TheDomain)); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(v.Bytes)))
	if _, err := s.h.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := s.h.Write(v.Bytes)
	return err
}

// Sum returns the 32-byte digest of everything written so far. Sum does
// not reset the state; call New for a fresh one.
func (s *State) Sum() []byte {
	out := make([]byte, 32)
	d := s.h.Digest()
	_, _ = d.Read(out)
	return out
}

// Commit produces a binding, hiding commitment to msg under a random
// 32-byte opening, used by the MAC-check's commit-then-open round.
func Commit(domain string, msg []byte, opening []byte) []byte {
	s := New()
	_ = s.WriteAny(&BytesWithDomain{TheDomain: domain, Bytes: opening})
	_ = s.WriteAny(&BytesWithDomain{TheDomain: domain + ".msg", Bytes: msg})
	return s.Sum()
}

// VerifyCommit checks that commitment was produced by Commit(domain, msg, opening).
func VerifyCommit(domain string, msg, opening, commitment []byte) bool {
	expect := Commit(domain, msg, opening)
	if len(expect) != len(commitment) {
		return false
	}
	var diff byte
	for i := range expect {
		diff |= expect[i] ^ commitment[i]
	}
	return diff == 0
}
