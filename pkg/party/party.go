// Package party defines party identifiers and deterministic orderings over
// them. Every batch the evaluator schedules enumerates parties through an
// IDSlice, so that every honest party derives the same send/receive order
// without having to agree on anything beyond the party set itself.
package party

import "sort"

// ID identifies a party taking part in a session. IDs are compared and
// sorted as plain strings, so callers are free to use names, hex-encoded
// public key fingerprints, or small integers formatted as text.
type ID string

// IDSlice is a slice of party IDs kept in sorted order. The zero value is
// not sorted; use NewIDSlice to build one.
type IDSlice []ID

// NewIDSlice returns a sorted copy of ids.
func NewIDSlice(ids []ID) IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	sort.Sort(out)
	return out
}

func (p IDSlice) Len() int           { return len(p) }
func (p IDSlice) Less(i, j int) bool { return p[i] < p[j] }
func (p IDSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// Contains reports whether id appears in the slice.
func (p IDSlice) Contains(id ID) bool {
	for _, q := range p {
		if q == id {
			return true
		}
	}
	return false
}

// Remove returns a new sorted IDSlice with id removed, if present.
func (p IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(p))
	for _, q := range p {
		if q != id {
			out = append(out, q)
		}
	}
	return out
}

// Other returns the slice of IDs other than self, in sorted order.
func (p IDSlice) Other(self ID) IDSlice {
	return p.Remove(self)
}

// Set is a deterministic-order set of party IDs, offering both membership
// testing and a stable enumeration order. The native protocols and the
// evaluator enumerate parties through a sorted IDSlice, not through a Set.
type Set struct {
	ids IDSlice
}

// NewSet builds a Set from an unordered list of IDs, deduplicating and
// sorting them.
func NewSet(ids []ID) Set {
	seen := make(map[ID]struct{}, len(ids))
	uniq := make([]ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	return Set{ids: NewIDSlice(uniq)}
}

// IDs returns the sorted slice of member IDs. The caller must not mutate it.
func (s Set) IDs() IDSlice { return s.ids }

// N returns the number of parties in the set.
func (s Set) N() int { return len(s.ids) }

// Contains reports whether id is a member.
func (s Set) Contains(id ID) bool { return s.ids.Contains(id) }
