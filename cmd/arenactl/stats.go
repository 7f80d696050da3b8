package main

import (
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/arenakit/arena"
)

// printStats renders a stats snapshot with grouped digits.
func printStats(st arena.StatsSnapshot) error {
	if quiet {
		return nil
	}
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(os.Stdout, "\nStatistics:\n"); err != nil {
		return err
	}
	if _, err := p.Fprintf(os.Stdout, "  allocate calls: %12d\n", st.AllocCalls); err != nil {
		return err
	}
	if _, err := p.Fprintf(os.Stdout, "  free calls:     %12d\n", st.FreeCalls); err != nil {
		return err
	}
	if _, err := p.Fprintf(os.Stdout, "  current bytes:  %12d\n", st.CurrentUsedBytes); err != nil {
		return err
	}
	_, err := p.Fprintf(os.Stdout, "  peak bytes:     %12d\n", st.PeakUsedBytes)
	return err
}
