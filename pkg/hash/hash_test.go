package hash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fresco-mpc/fresco-go/pkg/hash"
)

func TestCommitVerifyRoundTrip(t *testing.T) {
	msg := []byte("authenticated opening")
	opening := []byte("thirty-two-byte-random-value!!!!")

	commitment := hash.Commit("macchk-value", msg, opening)
	assert.True(t, hash.VerifyCommit("macchk-value", msg, opening, commitment))
}

func TestVerifyCommitRejectsTamperedMessage(t *testing.T) {
	opening := []byte("thirty-two-byte-random-value!!!!")
	commitment := hash.Commit("macchk-value", []byte("original"), opening)
	assert.False(t, hash.VerifyCommit("macchk-value", []byte("tampered"), opening, commitment))
}

func TestVerifyCommitRejectsWrongDomain(t *testing.T) {
	msg := []byte("payload")
	opening := []byte("thirty-two-byte-random-value!!!!")
	commitment := hash.Commit("domain-a", msg, opening)
	assert.False(t, hash.VerifyCommit("domain-b", msg, opening, commitment))
}

func TestDomainSeparationPreventsSplitCollision(t *testing.T) {
	s1 := hash.New()
	_ = s1.WriteAny(&hash.BytesWithDomain{TheDomain: "ab", Bytes: []byte("c")})
	s2 := hash.New()
	_ = s2.WriteAny(&hash.BytesWithDomain{TheDomain: "a", Bytes: []byte("bc")})
	assert.NotEqual(t, s1.Sum(), s2.Sum())
}
