package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fresco-mpc/fresco-go/pkg/builder"
	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/network"
	"github.com/fresco-mpc/fresco-go/pkg/party"
	"github.com/fresco-mpc/fresco-go/pkg/preprocessing"
	"github.com/fresco-mpc/fresco-go/pkg/spdz"
)

var chainLen int

func init() {
	benchCmd.Flags().IntVarP(&chainLen, "depth", "d", 32, "number of sequential multiplications in the chain")
}

// runBench drives a sequential chain of chainLen multiplications (each one
// a network round) across numParties simulated parties, and reports the
// total wall time and the wall time per multiplication. Each Multiply
// consumes one triple and one network round, so a chain of them is the
// natural stand-in for measuring the per-round cost of the engine.
func runBench(cmd *cobra.Command, args []string) error {
	fld := demoField()
	parties := demoParties(numParties)

	dealer, alphaShares, err := preprocessing.NewDealer(fld, parties)
	if err != nil {
		return fmt.Errorf("fresco-cli: %w", err)
	}
	suppliers, err := dealer.BuildSuppliers(preprocessing.Counts{Triples: chainLen}, nil, "")
	if err != nil {
		return fmt.Errorf("fresco-cli: %w", err)
	}

	nets := network.NewLocalNetwork([]party.ID(parties))

	var seedShare [32]byte
	if _, err := rand.Read(seedShare[:]); err != nil {
		return fmt.Errorf("fresco-cli: %w", err)
	}

	start := time.Now()
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
			_, err := spdz.Run(ctx, sess, seedShare, func(nb *spdz.Builder) builder.DRes[field.Element] {
				return multiplyChainProgram(nb, sess)
			})
			if err != nil {
				return fmt.Errorf("party %s: %w", p, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("parties=%d depth=%d elapsed=%s (%s/mult)\n",
		numParties, chainLen, elapsed, elapsed/time.Duration(chainLen))
	return nil
}

// multiplyChainProgram squares a known constant chainLen times in sequence:
// each Multiply consumes the previous one's output share, so the evaluator
// must run one network round per step rather than batching them.
func multiplyChainProgram(nb *spdz.Builder, sess *spdz.Session) builder.DRes[field.Element] {
	return spdz.Seq(nb, func(sb *spdz.Builder) builder.DRes[field.Element] {
		acc := sb.Known(sess.Field.FromUint64(2))
		for i := 0; i < chainLen; i++ {
			acc = sb.Multiply(acc, acc)
		}
		return sb.Open(acc)
	})
}
