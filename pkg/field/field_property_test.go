package field_test

import (
	"testing/quick"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fresco-mpc/fresco-go/pkg/field"
)

// These exercise the field axioms the authenticated-share layer leans on
// (commutativity, associativity, distributivity) and the Bytes/FromBytes
// round trip across many random inputs, using testing/quick driven from
// inside Ginkgo specs.
var _ = Describe("Mersenne61 field axioms", func() {
	fld := field.Mersenne61()

	It("is commutative under addition", func() {
		property := func(a, b uint64) bool {
			x, y := fld.FromUint64(a), fld.FromUint64(b)
			return x.Add(y).Equal(y.Add(x))
		}
		Expect(quick.Check(property, nil)).To(Succeed())
	})

	It("is commutative under multiplication", func() {
		property := func(a, b uint64) bool {
			x, y := fld.FromUint64(a), fld.FromUint64(b)
			return x.Mul(y).Equal(y.Mul(x))
		}
		Expect(quick.Check(property, nil)).To(Succeed())
	})

	It("is associative under addition", func() {
		property := func(a, b, c uint64) bool {
			x, y, z := fld.FromUint64(a), fld.FromUint64(b), fld.FromUint64(c)
			return x.Add(y).Add(z).Equal(x.Add(y.Add(z)))
		}
		Expect(quick.Check(property, nil)).To(Succeed())
	})

	It("distributes multiplication over addition", func() {
		property := func(a, b, c uint64) bool {
			x, y, z := fld.FromUint64(a), fld.FromUint64(b), fld.FromUint64(c)
			lhs := x.Mul(y.Add(z))
			rhs := x.Mul(y).Add(x.Mul(z))
			return lhs.Equal(rhs)
		}
		Expect(quick.Check(property, nil)).To(Succeed())
	})

	It("round-trips through Bytes/FromBytes", func() {
		property := func(a uint64) bool {
			x := fld.FromUint64(a)
			back, err := fld.FromBytes(x.Bytes())
			return err == nil && back.Equal(x)
		}
		Expect(quick.Check(property, nil)).To(Succeed())
	})
})
