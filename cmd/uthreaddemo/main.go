// Command uthreaddemo drives the uthreads library through a handful of
// runnable scenarios, one per subcommand, the same shape as the
// teacher's examples/helloworld, examples/simple, and examples/selector
// directories -- each a standalone main() exercising one facet of the
// library -- folded here into cobra subcommands of a single binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var quantumUsecs int

func main() {
	root := &cobra.Command{
		Use:   "uthreaddemo",
		Short: "Drive the uthreads scheduler through runnable scenarios",
	}
	root.PersistentFlags().IntVar(&quantumUsecs, "quantum-usecs", 100000,
		"length of a scheduling quantum, in microseconds")

	root.AddCommand(newRoundRobinCmd())
	root.AddCommand(newSleepCmd())
	root.AddCommand(newBlockResumeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
