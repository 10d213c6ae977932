// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package scan

import (
	"sync"

	"github.com/xodpool/cfedge/types"
)

// recentSize is how many of the most recently accepted endpoints a Tally
// keeps around for display purposes.
const recentSize = 8

// Tally tracks the progress of one operator's scan. A typical use case for
// a Tally is to consume the verdict stream as candidates get probed and to
// serve consistent snapshots to a concurrently rendering live display.
type Tally struct {
	mu        sync.Mutex
	operator  string
	blocks    int
	expected  uint64
	fed       uint64
	probed    uint64
	accepted  uint64
	recent    []types.Verdict // ring of the most recently accepted verdicts
	recentPos int
	done      bool
}

// Snapshot is a consistent point-in-time copy of a [Tally], safe to render
// without further locking.
type Snapshot struct {
	Operator string          // operator display name
	Blocks   int             // number of address blocks scanned
	Expected uint64          // estimated candidate total over all blocks
	Fed      uint64          // candidates handed to the prober so far
	Probed   uint64          // verdicts received so far
	Accepted uint64          // verdicts accepted so far
	Recent   []types.Verdict // most recently accepted verdicts, oldest first
	Done     bool            // all candidates drained
}

// NewTally returns a new Tally for the named operator, expecting the given
// number of address blocks and estimated candidate total.
func NewTally(operator string, blocks int, expected uint64) *Tally {
	return &Tally{
		operator: operator,
		blocks:   blocks,
		expected: expected,
		recent:   make([]types.Verdict, 0, recentSize),
	}
}

// Reset rearms the tally for a fresh operator run, zeroing all counters.
// The tally pointer itself stays stable, so a live display keeps rendering
// across operator runs without re-plumbing.
func (t *Tally) Reset(operator string, blocks int, expected uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operator = operator
	t.blocks = blocks
	t.expected = expected
	t.fed, t.probed, t.accepted = 0, 0, 0
	t.recent = t.recent[:0]
	t.recentPos = 0
	t.done = false
}

// Fed counts a candidate as handed to the prober.
func (t *Tally) Fed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fed++
}

// Record counts a verdict as it arrives from the prober, remembering
// accepted ones for display.
func (t *Tally) Record(verdict types.Verdict) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probed++
	if verdict.Quality != types.Accepted {
		return
	}
	t.accepted++
	if len(t.recent) < recentSize {
		t.recent = append(t.recent, verdict)
		return
	}
	t.recent[t.recentPos] = verdict
	t.recentPos = (t.recentPos + 1) % recentSize
}

// Finish marks the scan as fully drained.
func (t *Tally) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

// Snapshot returns a consistent copy of the tally's current state.
func (t *Tally) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	recent := make([]types.Verdict, 0, len(t.recent))
	recent = append(recent, t.recent[t.recentPos:]...)
	recent = append(recent, t.recent[:t.recentPos]...)
	return Snapshot{
		Operator: t.operator,
		Blocks:   t.blocks,
		Expected: t.expected,
		Fed:      t.fed,
		Probed:   t.probed,
		Accepted: t.accepted,
		Recent:   recent,
		Done:     t.done,
	}
}
