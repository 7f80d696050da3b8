package main

import (
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/arenakit/arena"
)

var (
	benchPoolSize int
	benchOps      int
	benchMaxSize  int
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVar(&benchPoolSize, "pool", 1<<20, "Pool size in bytes")
	cmd.Flags().IntVar(&benchOps, "ops", 10000, "Number of allocations")
	cmd.Flags().IntVar(&benchMaxSize, "max-size", 100, "Maximum allocation size")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Time random allocations against the Go runtime allocator",
		Long: `The bench command performs a burst of random-size allocations and
deallocations on a coalescing arena, then repeats the same sequence with
plain make([]byte) for comparison.

Example:
  arenactl bench --ops 100000 --max-size 512`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
}

func runBench() error {
	p := message.NewPrinter(language.English)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sizes := make([]int, benchOps)
	for i := range sizes {
		sizes[i] = 1 + rng.Intn(benchMaxSize)
	}

	al, err := arena.NewCoalescing(benchPoolSize)
	if err != nil {
		return err
	}
	defer al.Close()

	refs := make([]arena.Ref, 0, benchOps)
	start := time.Now()
	for _, size := range sizes {
		ref, _, err := al.Allocate(size)
		if err != nil {
			// Pool exhausted: recycle the oldest block and retry once.
			if len(refs) == 0 {
				return err
			}
			al.Deallocate(refs[0])
			refs = refs[1:]
			if ref, _, err = al.Allocate(size); err != nil {
				continue
			}
		}
		refs = append(refs, ref)
	}
	allocDur := time.Since(start)

	start = time.Now()
	for _, ref := range refs {
		al.Deallocate(ref)
	}
	freeDur := time.Since(start)

	if quiet {
		// The timings are all this command reports; the runtime
		// comparison exists only to print them.
		return nil
	}
	if _, err := p.Fprintf(os.Stdout,
		"arena:   %d allocations in %v, frees in %v\n",
		benchOps, allocDur, freeDur); err != nil {
		return err
	}

	// Same sequence against the runtime allocator.
	bufs := make([][]byte, 0, benchOps)
	start = time.Now()
	for _, size := range sizes {
		bufs = append(bufs, make([]byte, size))
	}
	runtimeAlloc := time.Since(start)

	start = time.Now()
	for i := range bufs {
		bufs[i] = nil
	}
	runtimeFree := time.Since(start)

	if _, err := p.Fprintf(os.Stdout,
		"runtime: %d allocations in %v, releases in %v\n",
		benchOps, runtimeAlloc, runtimeFree); err != nil {
		return err
	}

	return printStats(al.Stats())
}
