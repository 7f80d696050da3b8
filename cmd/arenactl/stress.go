package main

import (
	"math/rand"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/arenakit/arena"
)

var (
	stressWorkers   int
	stressOps       int
	stressArenaSize int
	stressMaxSize   int
	stressReclaim   bool
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressWorkers, "workers", 8, "Concurrent goroutines")
	cmd.Flags().IntVar(&stressOps, "ops", 100000, "Operations per goroutine")
	cmd.Flags().IntVar(&stressArenaSize, "arena", 64<<20, "Per-binding arena size in bytes")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 4096, "Maximum allocation size")
	cmd.Flags().BoolVar(&stressReclaim, "reclaim", false, "Enable background arena reclamation")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Concurrent mixed workload on the per-goroutine allocator",
		Long: `The stress command runs a 60/40 allocate/free mix across many
goroutines against the per-goroutine allocator, then reports statistics
and (with --reclaim) watches arenas drain away.

Example:
  arenactl stress --workers 64 --ops 1000000
  arenactl stress --reclaim`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
}

func runStress() error {
	p, err := arena.NewPerThread(arena.Config{
		ArenaSize:         stressArenaSize,
		EnableReclamation: stressReclaim,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < stressWorkers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var mine []arena.Ref
			for i := 0; i < stressOps; i++ {
				if rng.Intn(100) < 60 || len(mine) == 0 {
					ref, _, err := p.Allocate(1 + rng.Intn(stressMaxSize))
					if err != nil {
						continue
					}
					mine = append(mine, ref)
				} else {
					idx := rng.Intn(len(mine))
					p.Deallocate(mine[idx])
					mine = append(mine[:idx], mine[idx+1:]...)
				}
			}
			for _, ref := range mine {
				p.Deallocate(ref)
			}
		}(int64(w + 1))
	}
	wg.Wait()
	elapsed := time.Since(start)

	printInfo("%d workers x %d ops in %v\n", stressWorkers, stressOps, elapsed)
	printInfo("live arenas: %d\n", p.LiveArenas())

	if stressReclaim {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && p.LiveArenas() > 0 {
			time.Sleep(50 * time.Millisecond)
		}
		printInfo("live arenas after reclamation window: %d\n", p.LiveArenas())
	}

	return printStats(p.Stats())
}
