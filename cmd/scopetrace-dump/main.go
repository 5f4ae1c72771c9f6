// Command scopetrace-dump decodes a TRCLOG10 binary dump produced by
// scopetrace.DumpBinary and either replays it through the text emitter
// or prints a statistics summary, the way the teacher's own small
// tools/ commands (protobench, zstpak) wrap a single focused operation
// behind a peterbourgon/ff flag set.
package main

import (
	"fmt"
	"os"

	"github.com/tracescope/scopetrace/config"
	"github.com/tracescope/scopetrace/internal/dump"
	"github.com/tracescope/scopetrace/internal/emitter"
	"github.com/tracescope/scopetrace/internal/event"
	"github.com/tracescope/scopetrace/internal/registry"
	"github.com/tracescope/scopetrace/internal/ring"
	"github.com/tracescope/scopetrace/internal/stats"
)

func main() {
	if err := mainWithError(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func mainWithError() error {
	args, err := parseArgs()
	if err != nil {
		return fmt.Errorf("failed to parse arguments: %v", err)
	}
	if err := args.SanityCheck(); err != nil {
		return err
	}

	f, err := os.Open(args.inputFile)
	if err != nil {
		return fmt.Errorf("opening %q: %v", args.inputFile, err)
	}
	defer f.Close()

	events, err := dump.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding %q: %v", args.inputFile, err)
	}

	if args.format == "stats" {
		fmt.Print(formatStats(events))
		return nil
	}

	e := emitter.New(os.Stdout, config.Default())
	for _, ev := range events {
		if err := e.Emit(ev); err != nil {
			return fmt.Errorf("writing event: %v", err)
		}
	}
	return nil
}

// formatStats replays events into per-thread rings and reuses
// internal/stats' aggregation, the same consumer that scopetrace's own
// in-process statistics report goes through.
func formatStats(events []event.Event) string {
	byThread := make(map[uint32][]event.Event)
	for _, ev := range events {
		byThread[ev.ThreadID] = append(byThread[ev.ThreadID], ev)
	}

	reg := registry.New()
	for threadID, threadEvents := range byThread {
		capacity := uint32(len(threadEvents))
		if capacity == 0 {
			capacity = 1
		}
		rg := ring.New(capacity, false, threadID, 0)
		for _, ev := range threadEvents {
			rg.Write(ev)
		}
		reg.Add(rg)
	}

	report := stats.NewAggregator().Aggregate(reg)
	return stats.FormatTable(report.Global)
}
