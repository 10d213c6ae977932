// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"

	"github.com/xodpool/cfedge/scan"
)

// renderer renders the terminal display, based on progress snapshots of the
// currently scanned operator.
type renderer struct {
	w       io.Writer
	spinner *spinner
}

// newRenderer returns a renderer object rendering to the specified
// io.Writer.
func newRenderer(w io.Writer) *renderer {
	sp := newSpinner()
	sp.Start(*spinnerInterval)
	return &renderer{
		w:       w,
		spinner: sp,
	}
}

// Stop the renderer's background ticker.
func (r *renderer) Stop() {
	r.spinner.Stop()
}

// Render the given scan progress snapshot.
func (r *renderer) Render(snap scan.Snapshot) {
	// Before the first operator has been resolved there's nothing worth
	// tallying yet, so show a proxy message instead.
	if snap.Operator == "" {
		fmt.Fprintln(r.w, "resolving operators and their address blocks...")
		return
	}
	fmt.Fprintf(r.w, "scanning %s across %d address block(s)\n",
		operatorNameStyle.Styled(snap.Operator), snap.Blocks)
	if snap.Done {
		fmt.Fprintf(r.w, " ✔ probed %d candidate(s), accepted %s\n",
			snap.Probed, acceptedCount(snap))
	} else {
		fmt.Fprintf(r.w, " %sprobed %d of %d candidate(s), accepted %s\n",
			r.spinner.Spinner(), snap.Probed, snap.Expected, acceptedCount(snap))
	}
	// Render the most recently accepted endpoints, oldest first, so new
	// finds appear at the bottom where the eye already rests.
	for _, verdict := range snap.Recent {
		location := verdict.Colo
		if verdict.City != "" {
			location = fmt.Sprintf("%s (%s, %s)", verdict.Colo, verdict.City, verdict.Region)
		}
		fmt.Fprintf(r.w, "   %s %s %s\n",
			acceptedAddressStyle.Styled(" "+verdict.AddrPort()+" "),
			location,
			latencyStyle.Styled(verdict.LatencyText()))
	}
	fmt.Fprintln(r.w)
}

// acceptedCount renders the accepted tally, styled red when the scan has
// drained without a single usable endpoint.
func acceptedCount(snap scan.Snapshot) string {
	count := fmt.Sprintf("%d", snap.Accepted)
	if snap.Done && snap.Accepted == 0 {
		return noneAcceptedStyle.Styled(count)
	}
	return count
}
