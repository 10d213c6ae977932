// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package scan

import (
	"context"
	"sort"

	"github.com/xodpool/cfedge/cidr"
	"github.com/xodpool/cfedge/csvout"
	"github.com/xodpool/cfedge/probe"
	"github.com/xodpool/cfedge/registry"
	"github.com/xodpool/cfedge/types"

	"github.com/charmbracelet/log"
)

// Scanner drives one operator's scan: it expands the operator's address
// blocks into candidates, feeds them through a bounded prober, and streams
// every accepted verdict into the operator's CSV sink as it completes.
type Scanner struct {
	workers      int
	port         uint16
	probeOptions []probe.Option
	tally        *Tally
}

// New returns a Scanner probing with the given worker pool size against the
// given transport port, with further probing policy taken from the options.
func New(workers int, port uint16, options ...probe.Option) *Scanner {
	return &Scanner{
		workers:      workers,
		port:         port,
		probeOptions: options,
		tally:        NewTally("", 0, 0),
	}
}

// Tally returns the scanner's progress tally. The tally pointer is stable
// over the scanner's lifetime and safe for concurrent consumption by a
// live display, also while a scan is running.
func (s *Scanner) Tally() *Tally {
	return s.tally
}

// Run scans the given operator and writes accepted endpoints to the sink.
// It returns only after every fed candidate has produced its verdict and
// the sink has consumed all accepted ones; the sink file is complete when
// Run returns. The passed context cancels the scan early, abandoning
// pending candidates.
//
// Per-candidate failures never surface here: they have already collapsed
// into rejected verdicts inside the prober. Run fails only on operator
// -level problems, that is, on sink write errors or early cancellation.
func (s *Scanner) Run(ctx context.Context, op registry.Operator, sink *csvout.Writer) error {
	blocks := dedupBlocks(op.Blocks)
	var expected uint64
	for _, block := range blocks {
		expected += block.HostCount()
	}
	s.tally.Reset(op.Name, len(blocks), expected)

	prober, verdicts := probe.New(s.workers, s.probeOptions...)

	// The one and only sink writer: a single consuming loop over completed
	// verdicts, collecting them in completion order.
	done := make(chan struct{})
	var sinkErr error
	go func() {
		defer close(done)
		for verdict := range verdicts {
			s.tally.Record(verdict)
			if verdict.Quality != types.Accepted {
				continue
			}
			log.Debug("edge endpoint accepted",
				"address", verdict.Addr, "colo", verdict.Colo,
				"city", verdict.City, "latency", verdict.LatencyText())
			if sinkErr == nil {
				sinkErr = sink.Write(verdict)
			}
		}
	}()

	// Feed lazily expanded candidates; Probe applies backpressure, so this
	// loop never races ahead of the pool by more than O(workers).
feeding:
	for _, block := range blocks {
		hosts := block.Hosts()
		for addr, ok := hosts.Next(); ok; addr, ok = hosts.Next() {
			select {
			case <-ctx.Done():
				break feeding
			default:
			}
			s.tally.Fed()
			prober.Probe(ctx, types.Candidate{Addr: addr, Port: s.port})
		}
	}

	// Drain: every fed candidate gets its verdict consumed before the
	// operator's output file counts as complete.
	prober.StopWait()
	<-done
	s.tally.Finish()
	if err := ctx.Err(); err != nil {
		return err
	}
	return sinkErr
}

// dedupBlocks drops duplicate address blocks as well as blocks entirely
// contained in wider ones, so no candidate address gets probed twice within
// one operator run. Routing registries do announce a more specific prefix
// alongside its covering aggregate. CIDR prefixes never overlap partially,
// so after sorting by base address (wider first on ties) a single covering
// block witness suffices.
func dedupBlocks(blocks []cidr.Block) []cidr.Block {
	sorted := make([]cidr.Block, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(a, b int) bool {
		pa, pb := sorted[a].Prefix(), sorted[b].Prefix()
		if c := pa.Addr().Compare(pb.Addr()); c != 0 {
			return c < 0
		}
		return pa.Bits() < pb.Bits()
	})
	deduped := make([]cidr.Block, 0, len(sorted))
	var cover cidr.Block
	for _, block := range sorted {
		if !block.IsValid() {
			continue
		}
		if cover.IsValid() && cover.Prefix().Contains(block.Prefix().Addr()) &&
			cover.Prefix().Bits() <= block.Prefix().Bits() {
			log.Debug("skipping covered address block",
				"block", block, "cover", cover)
			continue
		}
		deduped = append(deduped, block)
		cover = block
	}
	return deduped
}
