// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import (
	"net/netip"
	"strconv"
)

// Candidate is a single (address, port) pair awaiting its probe. Candidates
// are ephemeral: produced by expanding an address block, probed exactly once,
// never persisted.
type Candidate struct {
	Addr netip.Addr `json:"address"` // a single network IP (v4/v6) address
	Port uint16     `json:"port"`    // transport port to probe
}

// AddrPort returns the candidate in "host:port" form, suitable for dialing.
func (c Candidate) AddrPort() string {
	return netip.AddrPortFrom(c.Addr, c.Port).String()
}

// PortText returns the candidate's port in decimal text form.
func (c Candidate) PortText() string {
	return strconv.FormatUint(uint64(c.Port), 10)
}
