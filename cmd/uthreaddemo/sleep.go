package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlsched/uthreads"
)

// newSleepCmd reproduces spec §8 scenario 2 ("Sleep ordering"): main
// spawns a thread, then calls Sleep(n); the spawned thread's first
// dispatch must land on total_quantums == n - 1, and main's own next
// quantum must be >= n + 2 counting from the call.
func newSleepCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Demonstrate Sleep ordering against a spawned thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSleep(n)
		},
	}
	cmd.Flags().IntVar(&n, "n", 3, "quanta to sleep")
	return cmd
}

func runSleep(n int) error {
	if err := uthreads.Init(quantumUsecs); err != nil {
		return err
	}

	done := make(chan struct{})
	if _, err := uthreads.Spawn(func() {
		fmt.Printf("worker dispatched at total_quantums=%d\n", uthreads.GetTotalQuantums())
		close(done)
		_ = uthreads.Terminate(uthreads.GetTid())
	}); err != nil {
		return err
	}

	before := uthreads.GetTotalQuantums()
	fmt.Printf("main sleeping %d quanta from total_quantums=%d\n", n, before)
	if err := uthreads.Sleep(n); err != nil {
		return err
	}
	<-done
	fmt.Printf("main resumed at total_quantums=%d\n", uthreads.GetTotalQuantums())
	return uthreads.Terminate(0)
}
