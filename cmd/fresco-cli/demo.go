package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fresco-mpc/fresco-go/pkg/builder"
	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/network"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/preprocessing"
	"github.com/fresco-mpc/fresco-go/pkg/spdz"
)

// runDemo has every simulated party input one value, sums the inputs,
// squares the sum via a secret-shared multiplication, and opens the
// result — exercising every native protocol (Input, Multiply, Open) and
// the closing MAC-check in a single run.
func runDemo(cmd *cobra.Command, args []string) error {
	fld := demoField()
	parties := demoParties(numParties)

	dealer, alphaShares, err := preprocessing.NewDealer(fld, parties)
	if err != nil {
		return fmt.Errorf("fresco-cli: %w", err)
	}
	inputCounts := make(map[party.ID]int, len(parties))
	for _, p := range parties {
		inputCounts[p] = 1
	}
	suppliers, err := dealer.BuildSuppliers(preprocessing.Counts{Triples: 1}, inputCounts, "")
	if err != nil {
		return fmt.Errorf("fresco-cli: %w", err)
	}

	nets := network.NewLocalNetwork([]party.ID(parties))
	values := demoValues(parties)

	var seedShare [32]byte
	if _, err := rand.Read(seedShare[:]); err != nil {
		return fmt.Errorf("fresco-cli: %w", err)
	}

	results := make(map[party.ID]field.Element, len(parties))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(context.Background())
	for i, p := range parties {
		p := p
		first := i == 0
		g.Go(func() error {
			sess := &spdz.Session{
				Self: p, Others: parties.Other(p), Field: fld,
				Alpha: alphaShares[p], IsFirst: first,
				Net: nets[p], Supplier: suppliers[p],
			}
			out, err := spdz.Run(ctx, sess, seedShare, func(nb *spdz.Builder) builder.DRes[field.Element] {
				return squareOfSumProgram(nb, sess, parties, values)
			})
			if err != nil {
				return fmt.Errorf("party %s: %w", p, err)
			}
			mu.Lock()
			results[p] = out.Value()
			mu.Unlock()
			if verbose {
				fmt.Printf("party %s: (sum of inputs)^2 = %s\n", p, out.Value())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	first := results[parties[0]]
	for _, p := range parties[1:] {
		if !results[p].Equal(first) {
			return fmt.Errorf("fresco-cli: parties disagree on opened output")
		}
	}
	fmt.Printf("result: %s\n", first)
	return nil
}

// squareOfSumProgram attaches, for every party, an Input leaf carrying
// that party's contribution (in parallel, since they are independent),
// then a sequential continuation that sums the results (free), squares
// the sum via one Multiply round, and opens it.
func squareOfSumProgram(nb *spdz.Builder, sess *spdz.Session, parties party.IDSlice, values map[party.ID]field.Element) builder.DRes[field.Element] {
	inputs := make([]spdz.SInt, len(parties))
	spdz.Par(nb, func(pb *spdz.Builder) builder.DRes[struct{}] {
		for i, p := range parties {
			v := sess.Field.Zero()
			if p == sess.Self {
				v = values[p]
			}
			mask, err := sess.Supplier.NextInputMask(p)
			if err != nil {
				panic(fmt.Sprintf("fresco-cli: input mask exhausted for %s: %v", p, err))
			}
			inputs[i] = pb.Input(p, v, mask)
		}
		return builder.Eager(struct{}{})
	})
	return spdz.Seq(nb, func(sb *spdz.Builder) builder.DRes[field.Element] {
		sum := inputs[0]
		for _, in := range inputs[1:] {
			sum = spdz.Add(sum, in)
		}
		squared := sb.Multiply(sum, sum)
		return sb.Open(squared)
	})
}

func demoValues(parties party.IDSlice) map[party.ID]field.Element {
	fld := demoField()
	out := make(map[party.ID]field.Element, len(parties))
	for i, p := range parties {
		out[p] = fld.FromUint64(uint64(i + 1))
	}
	return out
}
