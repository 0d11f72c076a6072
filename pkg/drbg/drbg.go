// Package drbg implements the joint deterministic random bit generator
// used by the batched MAC-check to expand a commit-then-opened seed,
// contributed by every party, into an agreed random coefficient vector.
// It is built on golang.org/x/crypto/chacha20.
package drbg

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// SeedLen is the size in bytes of a DRBG seed (a ChaCha20 key).
const SeedLen = chacha20.KeySize

// DRBG is a keystream-backed generator: deterministic across parties when
// seeded identically, which is the whole point of the joint commit-and-open
// step that produces the seed.
type DRBG struct {
	cipher *chacha20.Cipher
}

// New creates a DRBG from a 32-byte joint seed. Every honest party that
// computes the same seed (e.g. XOR of every party's opened contribution)
// derives byte-identical output from Next.
func New(seed [SeedLen]byte) (*DRBG, error) {
	var nonce [chacha20.NonceSize]byte // fixed nonce: the seed is single-use per MAC-check.
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("drbg: %w", err)
	}
	return &DRBG{cipher: c}, nil
}

// Next fills buf with the next pseudorandom bytes of the stream.
func (d *DRBG) Next(buf []byte) {
	zero := make([]byte, len(buf))
	d.cipher.XORKeyStream(buf, zero)
}

// NextUint64 returns the next 8 bytes of keystream as a big-endian uint64,
// a convenience used when expanding into field-sized chunks.
func (d *DRBG) NextUint64() uint64 {
	var buf [8]byte
	d.Next(buf[:])
	return binary.BigEndian.Uint64(buf[:])
}

// Read implements io.Reader over the keystream, so a DRBG can be handed
// directly to field.Field.Sample to derive agreed-upon field elements
// (e.g. the MAC-check's random linear-combination coefficients) from the
// joint seed.
func (d *DRBG) Read(buf []byte) (int, error) {
	d.Next(buf)
	return len(buf), nil
}

// JointSeed XORs every party's opened contribution together. Each
// contribution must itself have been distributed via a hash-commitment
// round so that no party could bias the result by choosing its
// contribution after seeing everyone else's.
func JointSeed(contributions [][SeedLen]byte) [SeedLen]byte {
	var out [SeedLen]byte
	for _, c := range contributions {
		for i := range out {
			out[i] ^= c[i]
		}
	}
	return out
}
