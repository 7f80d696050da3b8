package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/arenakit/arena"
)

var alignPoolSize int

func init() {
	cmd := newAlignCmd()
	cmd.Flags().IntVar(&alignPoolSize, "pool", 4096, "Pool size in bytes")
	rootCmd.AddCommand(cmd)
}

func newAlignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "align",
		Short: "Sweep payload alignments from 1 to 4096",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlign()
		},
	}
}

func runAlign() error {
	al, err := arena.NewCoalescing(alignPoolSize)
	if err != nil {
		return err
	}
	defer al.Close()

	for align := 1; align <= 4096; align <<= 1 {
		ref, _, err := al.AllocateAligned(10, align)
		if err != nil {
			printInfo("align %4d: failed: %v\n", align, err)
			continue
		}
		printInfo("align %4d: offset %6d (mod %d)\n",
			align, uint64(ref), uint64(ref)%uint64(align))
		al.Deallocate(ref)
	}
	return nil
}
