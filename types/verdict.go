// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import (
	"fmt"
	"time"
)

// Verdict is the terminal outcome of probing a single candidate: either
// Accepted together with the measured connect latency and the serving
// location, or Rejected. Verdicts are produced exactly once per candidate
// and are never revised or merged.
type Verdict struct {
	Candidate
	Quality Quality       `json:"quality"`        // final probe quality
	Colo    string        `json:"colo,omitempty"` // serving data-center code (IATA-style)
	Region  string        `json:"region,omitempty"`
	City    string        `json:"city,omitempty"`
	Latency time.Duration `json:"latency,omitempty"` // TCP connect duration
	err     error         // optional rejection details, for debugging only
}

// Accept returns the verdict for a candidate that validated as a CDN edge,
// together with its serving location and connect latency.
func Accept(c Candidate, colo, region, city string, latency time.Duration) Verdict {
	return Verdict{
		Candidate: c,
		Quality:   Accepted,
		Colo:      colo,
		Region:    region,
		City:      city,
		Latency:   latency,
	}
}

// Reject returns the verdict for a candidate that failed its probe. The
// causing error is carried along for diagnosis only; it never propagates
// as a failure.
func Reject(c Candidate, err error) Verdict {
	return Verdict{
		Candidate: c,
		Quality:   Rejected,
		err:       err,
	}
}

// Err returns optional error details for rejected candidates.
func (v Verdict) Err() error { return v.err }

// LatencyText renders the connect latency as fixed two-decimal milliseconds,
// e.g. "12.34 ms". This is the form the CSV output records.
func (v Verdict) LatencyText() string {
	return fmt.Sprintf("%.2f ms", float64(v.Latency)/float64(time.Millisecond))
}
