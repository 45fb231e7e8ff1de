package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlsched/uthreads"
)

// newBlockResumeCmd reproduces spec §8 scenario 3 ("Block/resume"):
// main spawns a thread, blocks it before it ever runs, resumes it, and
// shows its quantums_run only rises once it is actually dispatched.
func newBlockResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blockresume",
		Short: "Demonstrate Block followed by Resume on a spawned thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlockResume()
		},
	}
}

func runBlockResume() error {
	if err := uthreads.Init(quantumUsecs); err != nil {
		return err
	}

	tid, err := uthreads.Spawn(func() {
		self := uthreads.GetTid()
		for i := 0; i < 3; i++ {
			run, _ := uthreads.GetQuantums(self)
			fmt.Printf("worker quantum %d\n", run)
			_ = uthreads.Sleep(1)
		}
		_ = uthreads.Terminate(self)
	})
	if err != nil {
		return err
	}

	if err := uthreads.Block(tid); err != nil {
		return err
	}
	before, _ := uthreads.GetQuantums(tid)
	fmt.Printf("tid %d blocked before ever running, quantums_run=%d\n", tid, before)

	if err := uthreads.Resume(tid); err != nil {
		return err
	}
	// Main (tid 0) may not Sleep, so it yields until four more quanta
	// have elapsed.
	for start := uthreads.GetTotalQuantums(); uthreads.GetTotalQuantums() < start+4; {
		uthreads.Yield()
	}
	after, err := uthreads.GetQuantums(tid)
	if err != nil {
		// the worker already terminated itself; that is the expected
		// outcome once it has run its three quanta.
		fmt.Println("worker already terminated")
		return uthreads.Terminate(0)
	}
	fmt.Printf("tid %d quantums_run after resume+dispatch=%d\n", tid, after)
	return uthreads.Terminate(0)
}
