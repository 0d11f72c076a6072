// Package builder implements a lazily-constructed, hierarchically-scoped
// computation graph of deferred results whose leaves are native
// protocols. Two concrete scope kinds (sequential and parallel) share a
// common capability set by composition, and explicit continuation
// closures stand in for mutable holder objects passed into
// sub-protocols.
package builder

import (
	"github.com/fresco-mpc/fresco-go/pkg/protocol"
)

type status int

const (
	pending status = iota
	ready
)

// cell is the shared, type-erased storage behind a DRes[T]; DRes[T] is a
// thin typed view onto it so multiple DRes[T] handles (there is only ever
// one per construction, but the type keeps cell private) can't exist
// without going through the constructors below.
type cell struct {
	st  status
	val interface{}
}

// DRes is a handle that will eventually produce a value of type T.
// Reading Value before the result is fulfilled is a programmer error and
// panics.
type DRes[T any] struct {
	c *cell
}

// Eager wraps an already-known value in a DRes.
func Eager[T any](v T) DRes[T] {
	return DRes[T]{c: &cell{st: ready, val: v}}
}

// Ready reports whether the result has been fulfilled.
func (d DRes[T]) Ready() bool { return d.c.st == ready }

// Value returns the fulfilled value. It panics if the result has not yet
// been fulfilled: this is a programming error, never a recoverable
// condition.
func (d DRes[T]) Value() T {
	if d.c.st != ready {
		panic("builder: read of unfulfilled deferred result")
	}
	return d.c.val.(T)
}

// node is anything the evaluator can walk while collecting protocols that
// are ready to step this sweep. Expanding a node lazily (a Seq/Par
// continuation running, or a leaf's native protocol being constructed)
// can itself fail — e.g. the correlated-randomness supplier feeding a
// Multiply leaf running out — so collect reports an error alongside its
// usual done bool.
type node interface {
	collect(out *[]*Leaf) (bool, error)
}

// Leaf is a native protocol attached to the graph, together with the
// closure that fulfills its owning DRes once it finishes.
type Leaf struct {
	Proto  protocol.Native
	onDone func()
	fired  bool
}

func (l *Leaf) collect(out *[]*Leaf) (bool, error) {
	if l.Proto.IsDone() {
		if !l.fired {
			l.fired = true
			l.onDone()
		}
		return true, nil
	}
	*out = append(*out, l)
	return false, nil
}

type scopeKind int

const (
	// SeqKind scopes yield child k+1 only once child k is done.
	SeqKind scopeKind = iota
	// ParKind scopes yield every child simultaneously.
	ParKind
)

type entry struct {
	node  node
	thunk func() (node, error)
}

func (e *entry) expand() (node, error) {
	if e.node == nil {
		n, err := e.thunk()
		if err != nil {
			return nil, err
		}
		e.node = n
		e.thunk = nil
	}
	return e.node, nil
}

// Scope is a node in the computation graph owning an ordered set of
// children. It is sequential or parallel.
type Scope struct {
	kind    scopeKind
	entries []*entry
	doneIdx int
}

func newScope(kind scopeKind) *Scope {
	return &Scope{kind: kind}
}

func (s *Scope) collect(out *[]*Leaf) (bool, error) {
	switch s.kind {
	case ParKind:
		allDone := true
		for _, e := range s.entries {
			n, err := e.expand()
			if err != nil {
				return false, err
			}
			done, err := n.collect(out)
			if err != nil {
				return false, err
			}
			if !done {
				allDone = false
			}
		}
		return allDone, nil
	default: // SeqKind
		for s.doneIdx < len(s.entries) {
			e := s.entries[s.doneIdx]
			n, err := e.expand()
			if err != nil {
				return false, err
			}
			done, err := n.collect(out)
			if err != nil {
				return false, err
			}
			if !done {
				return false, nil
			}
			s.doneIdx++
		}
		return true, nil
	}
}

// Done reports whether every child of the scope has finished.
func (s *Scope) Done() (bool, error) {
	var discard []*Leaf
	return s.collect(&discard)
}

// completionNode wraps a sub-scope so that once the whole sub-scope is
// done, a single callback fires exactly once — used to fulfill a Seq/Par
// call's own DRes only after every protocol added during its body has
// finished.
type completionNode struct {
	scope  *Scope
	onDone func()
	fired  bool
}

func (c *completionNode) collect(out *[]*Leaf) (bool, error) {
	done, err := c.scope.collect(out)
	if err != nil {
		return false, err
	}
	if done && !c.fired {
		c.fired = true
		c.onDone()
	}
	return done, nil
}

// Builder is the object user programs compose against: seq/par/leaf
// attachment primitives over one Scope.
type Builder struct {
	scope *Scope
}

// NewRoot returns a fresh sequential root builder; the user program
// itself is the root of the scope tree.
func NewRoot() *Builder {
	return &Builder{scope: newScope(SeqKind)}
}

// Scope exposes the builder's underlying scope to the evaluator.
func (b *Builder) Scope() *Scope { return b.scope }

// attachScope appends f as a lazily-expanded sub-scope of kind to b, and
// returns a DRes that resolves once every protocol f (indirectly) adds has
// finished, to whatever value f's own returned DRes carries.
func attachScope[T any](b *Builder, kind scopeKind, f func(*Builder) DRes[T]) DRes[T] {
	out := &cell{st: pending}
	e := &entry{}
	e.thunk = func() (node, error) {
		sub := &Builder{scope: newScope(kind)}
		inner := f(sub)
		return &completionNode{scope: sub.scope, onDone: func() {
			out.st = ready
			out.val = inner.Value()
		}}, nil
	}
	b.scope.entries = append(b.scope.entries, e)
	return DRes[T]{c: out}
}

// Seq attaches a sequential sub-computation: f's body runs, as a single
// lazy continuation, once it is this entry's turn in b's own scope
// (immediately, if b has no other pending entries before it).
func Seq[T any](b *Builder, f func(*Builder) DRes[T]) DRes[T] {
	return attachScope(b, SeqKind, f)
}

// Par attaches a parallel sub-computation: f's body runs as soon as it is
// this entry's turn in b's own scope, and every leaf it attaches is
// independent of every other.
func Par[T any](b *Builder, f func(*Builder) DRes[T]) DRes[T] {
	return attachScope(b, ParKind, f)
}

// AttachLeaf appends a lazily-constructed native protocol to b's scope.
// make is invoked only once it is this entry's turn (so any DRes values it
// closes over are guaranteed to already be Ready), and must return the
// concrete protocol.Native plus an extractor for its output once IsDone,
// or an error (e.g. correlated-randomness exhaustion) which aborts the
// whole evaluation. This is the single primitive that
// numeric()/open(x)/input(v,p) in pkg/spdz are built from.
func AttachLeaf[T any](b *Builder, make func() (protocol.Native, func() T, error)) DRes[T] {
	out := &cell{st: pending}
	e := &entry{}
	e.thunk = func() (node, error) {
		proto, extract, err := make()
		if err != nil {
			return nil, err
		}
		lh := &Leaf{}
		lh.Proto = proto
		lh.onDone = func() {
			out.st = ready
			out.val = extract()
		}
		if proto.IsDone() {
			lh.fired = true
			lh.onDone()
		}
		return lh, nil
	}
	b.scope.entries = append(b.scope.entries, e)
	return DRes[T]{c: out}
}

// Collect walks the graph rooted at b, gathering every native protocol
// that is ready to be stepped this sweep, and reports whether the whole
// graph is done.
func Collect(b *Builder) (leaves []*Leaf, done bool, err error) {
	var out []*Leaf
	done, err = b.scope.collect(&out)
	return out, done, err
}
