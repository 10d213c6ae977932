// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package types

import "fmt"

// Quality indicates the "quality" of a probed candidate endpoint, that is,
// whether it turned out to be a genuine CDN edge or not.
type Quality int

// The probe qualities of a candidate endpoint.
const (
	Unprobed Quality = iota // candidate not (yet) probed.
	Rejected                // candidate failed to connect, to validate, or took too long.
	Accepted                // candidate validated as a CDN edge endpoint.
)

// String returns the clear-text representation of a Quality value.
func (q Quality) String() string {
	switch q {
	case Unprobed:
		return "unprobed"
	case Rejected:
		return "rejected"
	case Accepted:
		return "accepted"
	}
	return fmt.Sprintf("Quality(%d)", q)
}

// IsFinal returns true after a candidate has been either accepted or
// rejected.
func (q Quality) IsFinal() bool {
	switch q {
	case Rejected, Accepted:
		return true
	default:
		return false
	}
}
