// Command fresco-cli is a demo harness for FRESCO-Go's round-based SPDZ
// engine: one cobra root command, global flags for party count and verbosity,
// and subcommands for the operations this repository actually supports.
// The online engine itself never depends on this package; it exists purely
// to drive the engine end to end for demos and benchmarking.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fresco-mpc/fresco-go/pkg/field"
	"github.com/fresco-mpc/fresco-go/pkg/party"
)

var (
	numParties int
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "fresco-cli",
		Short: "Demo driver for the FRESCO-Go SPDZ engine",
		Long: `fresco-cli drives small example SPDZ computations over an
in-memory network, using one goroutine per simulated party.`,
	}

	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run a fixed multi-party addition/multiplication demo",
		RunE:  runDemo,
	}

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Benchmark a chain of multiplications across simulated parties",
		RunE:  runBench,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&numParties, "parties", "n", 3, "number of simulated parties")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.AddCommand(demoCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func demoField() *field.Field {
	return field.Mersenne61()
}

func demoParties(n int) party.IDSlice {
	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(fmt.Sprintf("P%d", i))
	}
	return party.NewIDSlice(ids)
}
