package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/arenakit/arena"
)

var fragPoolSize int

func init() {
	cmd := newFragCmd()
	cmd.Flags().IntVar(&fragPoolSize, "pool", 8192, "Pool size in bytes")
	rootCmd.AddCommand(cmd)
}

func newFragCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frag",
		Short: "Show fragmentation on the basic variant vs the coalescing one",
		Long: `The frag command allocates ten blocks of growing sizes, frees the
odd-indexed ones, and attempts a large allocation on both the basic and
the coalescing allocator. The basic variant never merges freed blocks.
The coalescing variant merges a freed block only with free neighbors, so
the gaps between live blocks stay separate and only the last gap joins
the free tail.

Example:
  arenactl frag
  arenactl frag --pool 16384`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFrag()
		},
	}
}

func runFrag() error {
	printInfo("=== basic allocator ===\n")
	basic, err := arena.NewBasic(fragPoolSize)
	if err != nil {
		return err
	}
	defer basic.Close()
	if err := fragScenario(basic, func() error { return basic.DumpFreeList(os.Stdout) }); err != nil {
		return err
	}

	printInfo("\n=== coalescing allocator ===\n")
	coal, err := arena.NewCoalescing(fragPoolSize)
	if err != nil {
		return err
	}
	defer coal.Close()
	return fragScenario(coal, func() error { return coal.DumpFreeList(os.Stdout) })
}

func fragScenario(al arena.Allocator, dump func() error) error {
	var refs []arena.Ref
	for i := 0; i < 10; i++ {
		ref, _, err := al.Allocate(100 + i*20)
		if err != nil {
			printInfo("allocation %d failed: %v\n", i, err)
			break
		}
		refs = append(refs, ref)
	}

	printInfo("freeing odd-indexed blocks...\n")
	for i := 1; i < len(refs); i += 2 {
		al.Deallocate(refs[i])
	}
	if !quiet {
		if err := dump(); err != nil {
			return err
		}
	}

	if _, _, err := al.Allocate(1000); err != nil {
		printInfo("large allocation failed: %v\n", err)
	} else {
		printInfo("large allocation succeeded\n")
	}
	return nil
}
