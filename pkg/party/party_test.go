package party_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fresco-mpc/fresco-go/pkg/party"
)

func TestNewIDSliceSorts(t *testing.T) {
	ids := party.NewIDSlice([]party.ID{"charlie", "alice", "bob"})
	assert.Equal(t, party.IDSlice{"alice", "bob", "charlie"}, ids)
}

func TestOtherExcludesSelfOnly(t *testing.T) {
	ids := party.NewIDSlice([]party.ID{"alice", "bob", "charlie"})
	others := ids.Other("bob")
	assert.Equal(t, party.IDSlice{"alice", "charlie"}, others)
	assert.False(t, others.Contains("bob"))
}

func TestSetDeduplicatesAndSorts(t *testing.T) {
	s := party.NewSet([]party.ID{"bob", "alice", "bob"})
	assert.Equal(t, 2, s.N())
	assert.True(t, s.Contains("alice"))
	assert.Equal(t, party.IDSlice{"alice", "bob"}, s.IDs())
}
