package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/arenakit/arena"
)

var (
	demoPoolSize  int
	demoCoalesce  bool
	demoBlockSize int
)

func init() {
	cmd := newDemoCmd()
	cmd.Flags().IntVar(&demoPoolSize, "pool", 4096, "Pool size in bytes")
	cmd.Flags().IntVar(&demoBlockSize, "block", 64, "Block size to allocate")
	cmd.Flags().BoolVar(&demoCoalesce, "coalesce", false, "Use the coalescing variant")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Allocate and free a few blocks, dumping the free list",
		Long: `The demo command runs the classic first-contact scenario: allocate
three blocks, print the free list, free them, and print it again.

Example:
  arenactl demo
  arenactl demo --coalesce --pool 16384 --block 256`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
}

func runDemo() error {
	var al arena.Allocator
	var dump func() error
	if demoCoalesce {
		c, err := arena.NewCoalescing(demoPoolSize)
		if err != nil {
			return err
		}
		al = c
		dump = func() error { return c.DumpFreeList(os.Stdout) }
	} else {
		b, err := arena.NewBasic(demoPoolSize)
		if err != nil {
			return err
		}
		al = b
		dump = func() error { return b.DumpFreeList(os.Stdout) }
	}
	defer al.Close()
	if quiet {
		dump = func() error { return nil }
	}

	printInfo("Initial state:\n")
	if err := dump(); err != nil {
		return err
	}

	var refs []arena.Ref
	for i := 0; i < 3; i++ {
		ref, buf, err := al.Allocate(demoBlockSize)
		if err != nil {
			return fmt.Errorf("allocating block %d: %w", i, err)
		}
		printVerbose("block %d: ref=%#x len=%d\n", i, uint64(ref), len(buf))
		refs = append(refs, ref)
	}

	printInfo("\nAfter allocations:\n")
	if err := dump(); err != nil {
		return err
	}

	for _, ref := range refs {
		al.Deallocate(ref)
	}

	printInfo("\nAfter deallocations:\n")
	if err := dump(); err != nil {
		return err
	}

	return printStats(al.Stats())
}
