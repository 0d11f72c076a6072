// Package spdz is the numeric builder surface: it wires pkg/builder's
// generic DRes[T]/Scope graph to pkg/sint's authenticated shares and
// pkg/protocol's native protocols, giving user programs
// add/sub/known/input/open/multiply over SInt values, plus a session
// Run(program) entry point.
package spdz

import (
	"context"
	"fmt"

	"github.com/fresco-mpc/fresco-go/pkg/builder"
	"github.com/fresco-mpc/fresco-go/pkg/evaluator"
	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/macchk"
	"github.com/fresco-mpc/fresco-go/pkg/network"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/preprocessing"
	"github.com/fresco-mpc/fresco-go/pkg/protocol"
	"github.com/fresco-mpc/fresco-go/pkg/sint"
)

// SInt is the builder-graph handle for one authenticated value: the
// numeric counterpart of a raw builder.DRes[sint.Share], given its own
// name (a type alias) so pkg/spdz's methods read as arithmetic rather than
// generic plumbing.
type SInt = builder.DRes[sint.Share]

// Session bundles everything one party needs to participate: its
// identity, the field the computation runs over, its share of the global
// MAC key, and its sources of correlated randomness and network I/O.
type Session struct {
	Self     party.ID
	Others   party.IDSlice
	Field    *field.Field
	Alpha    field.Element
	IsFirst  bool
	Net      network.Network
	Supplier preprocessing.Supplier

	// batch counts MAC-checks run so far in this session, so every
	// protocol.Error a check raises names which batch its culprit was
	// caught in.
	batch int
}

// Builder is the numeric surface handed to a user program: every method
// attaches to the same underlying computation graph as builder.Seq/Par,
// so numeric operations compose freely with sequential and parallel
// scoping.
type Builder struct {
	raw   *builder.Builder
	sess  *Session
	store *macchk.Store
}

func newBuilder(raw *builder.Builder, sess *Session, store *macchk.Store) *Builder {
	return &Builder{raw: raw, sess: sess, store: store}
}

// Raw exposes the underlying builder.Builder, for composing with
// builder.Seq/builder.Par directly.
func (b *Builder) Raw() *builder.Builder { return b.raw }

// Seq attaches a sequential sub-computation, mirroring builder.Seq but
// handing the continuation a numeric Builder instead of a raw one.
func Seq[T any](b *Builder, f func(*Builder) builder.DRes[T]) builder.DRes[T] {
	return builder.Seq(b.raw, func(raw *builder.Builder) builder.DRes[T] {
		return f(newBuilder(raw, b.sess, b.store))
	})
}

// Par attaches a parallel sub-computation, the numeric counterpart of
// builder.Par.
func Par[T any](b *Builder, f func(*Builder) builder.DRes[T]) builder.DRes[T] {
	return builder.Par(b.raw, func(raw *builder.Builder) builder.DRes[T] {
		return f(newBuilder(raw, b.sess, b.store))
	})
}

// Known lifts a public constant into an authenticated share. It is free:
// no round, no correlated randomness.
func (b *Builder) Known(c field.Element) SInt {
	zero := b.sess.Field.Zero()
	share := sint.New(zero, zero).AddPublic(c, b.sess.Alpha, b.sess.IsFirst)
	return builder.Eager(share)
}

// Add returns x+y. Free: no round.
func Add(x, y SInt) SInt { return builder.Eager(x.Value().Add(y.Value())) }

// Sub returns x-y. Free: no round.
func Sub(x, y SInt) SInt { return builder.Eager(x.Value().Sub(y.Value())) }

// MulPublic returns c*x for a public constant c. Free: no round.
func MulPublic(x SInt, c field.Element) SInt { return builder.Eager(x.Value().MulPublic(c)) }

// AddPublic returns x+c for a public constant c. Free: no round.
func (b *Builder) AddPublic(x SInt, c field.Element) SInt {
	return builder.Eager(x.Value().AddPublic(c, b.sess.Alpha, b.sess.IsFirst))
}

// Input attaches an Input(v, inputter) leaf. v is only
// meaningful when b.sess.Self == inputter; mask must be this party's
// share of the next unused input mask for inputter, typically obtained
// from b.sess.Supplier.NextInputMask(inputter) by the caller.
func (b *Builder) Input(inputter party.ID, v field.Element, mask preprocessing.InputMask) SInt {
	return builder.AttachLeaf(b.raw, func() (protocol.Native, func() sint.Share, error) {
		p := protocol.NewInput(b.sess.Self, inputter, b.sess.Others, b.sess.Field, b.sess.Alpha, b.sess.IsFirst, v, mask)
		return p, p.Output, nil
	})
}

// Multiply attaches a Multiply leaf: one round,
// consuming a Beaver triple from the session's supplier. Both of its
// internal openings (ε, δ) are recorded in the MAC-check store, since
// they are genuine openings of authenticated shares and must be covered
// by the next batched MAC-check.
func (b *Builder) Multiply(x, y SInt) SInt {
	return builder.AttachLeaf(b.raw, func() (protocol.Native, func() sint.Share, error) {
		xv, yv := x.Value(), y.Value()
		p, err := protocol.NewMultiply(b.sess.Self, b.sess.Others, b.sess.Field, b.sess.Alpha, b.sess.IsFirst, xv, yv, b.sess.Supplier)
		if err != nil {
			return nil, nil, fmt.Errorf("spdz: multiply: %w", err)
		}
		extract := func() sint.Share {
			epsShare, epsVal := p.OpenedEps()
			deltaShare, deltaVal := p.OpenedDelta()
			b.store.Record(macchk.Opening{Share: epsShare, Opened: epsVal})
			b.store.Record(macchk.Opening{Share: deltaShare, Opened: deltaVal})
			return p.Output()
		}
		return p, extract, nil
	})
}

// Open attaches an Open(x) leaf, revealing x to every party. The opening
// is recorded in the MAC-check store; callers must not treat the returned
// value as trustworthy until Run's closing MAC-check has
// succeeded.
func (b *Builder) Open(x SInt) builder.DRes[field.Element] {
	return builder.AttachLeaf(b.raw, func() (protocol.Native, func() field.Element, error) {
		p := protocol.NewOpen(b.sess.Self, b.sess.Others, x.Value(), b.sess.Field)
		extract := func() field.Element {
			b.store.Record(macchk.Opening{Share: p.Share(), Opened: p.Output()})
			return p.Output()
		}
		return p, extract, nil
	})
}

// RandomElement attaches a RandomElement leaf: a pre-generated random
// authenticated share, consuming zero rounds.
func (b *Builder) RandomElement() SInt {
	return builder.AttachLeaf(b.raw, func() (protocol.Native, func() sint.Share, error) {
		p, err := protocol.NewRandomElement(b.sess.Supplier)
		if err != nil {
			return nil, nil, fmt.Errorf("spdz: random: %w", err)
		}
		return p, p.Output, nil
	})
}

// Program is a user computation: given a numeric Builder, it attaches
// whatever graph it needs and returns its outputs, each still a DRes
// until Run evaluates the graph.
type Program[T any] func(*Builder) T

// Run evaluates program to completion: it builds the graph, drives the
// round-based evaluator until every leaf is done, then runs one batched
// MAC-check over everything that was opened along the way, only
// returning outputs if the check passes.
//
// seedShare is this party's contribution to the MAC-check's joint DRBG
// seed; a real deployment draws it fresh per session from a secure RNG.
func Run[T any](ctx context.Context, sess *Session, seedShare [32]byte, program Program[T]) (T, error) {
	var zero T
	store := macchk.NewStore()
	root := builder.NewRoot()
	nb := newBuilder(root, sess, store)

	out := program(nb)

	ev := evaluator.New(sess.Net, sess.Others)
	if err := ev.Run(ctx, root); err != nil {
		return zero, fmt.Errorf("spdz: %w", err)
	}

	if store.Len() > 0 {
		sess.batch++
		checker := macchk.NewChecker(sess.Self, sess.Others, sess.Field, sess.Alpha, store, seedShare, sess.batch)
		checkRoot := builder.NewRoot()
		builder.AttachLeaf(checkRoot, func() (protocol.Native, func() struct{}, error) {
			return checker, func() struct{} { return struct{}{} }, nil
		})
		if err := ev.Run(ctx, checkRoot); err != nil {
			return zero, fmt.Errorf("spdz: mac-check: %w", err)
		}
	}

	return out, nil
}
