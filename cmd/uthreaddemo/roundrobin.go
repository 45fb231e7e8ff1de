package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlsched/uthreads"
)

// newRoundRobinCmd reproduces spec §8 scenario 1 ("Round-robin
// fairness"): two looping worker threads and an observer thread that
// samples GetTid() every quantum, driven from main by sleeping long
// enough for --ticks quanta to elapse.
func newRoundRobinCmd() *cobra.Command {
	var ticks int
	cmd := &cobra.Command{
		Use:   "roundrobin",
		Short: "Spawn looping threads and observe the round-robin order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoundRobin(ticks)
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 6, "number of quanta to observe")
	return cmd
}

func runRoundRobin(ticks int) error {
	if err := uthreads.Init(quantumUsecs); err != nil {
		return err
	}

	// A bare "for {}" never calls back into the library, so the
	// scheduler would never get a checkpoint at which to take the token
	// back from it -- see uthreads.Yield. Calling Yield every iteration
	// is this port's stand-in for the free preemption a real SIGVTALRM
	// would give an equivalent C busy loop.
	loop := func() {
		for {
			uthreads.Yield()
		}
	}
	if _, err := uthreads.Spawn(loop); err != nil {
		return err
	}
	if _, err := uthreads.Spawn(loop); err != nil {
		return err
	}

	observed := 0
	_, err := uthreads.Spawn(func() {
		for observed < ticks {
			fmt.Printf("quantum %d: tid %d running\n",
				uthreads.GetTotalQuantums(), uthreads.GetTid())
			observed++
			_ = uthreads.Sleep(1)
		}
		_ = uthreads.Terminate(0)
	})
	if err != nil {
		return err
	}

	// Main (tid 0) may not Sleep, so it stays in the rotation by
	// yielding; this loop ends only when the observer calls Terminate(0)
	// and the process exits.
	for {
		uthreads.Yield()
	}
}
