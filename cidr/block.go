// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package cidr

import (
	"errors"
	"fmt"
	"math"
	"net/netip"

	"go4.org/netipx"
)

// ErrInvalidBlock flags a malformed address-block specification. Malformed
// blocks skip expansion; they never abort a whole scan.
var ErrInvalidBlock = errors.New("invalid address block")

// Block is a CIDR-style address block, that is, a base address plus prefix
// length. Blocks are obtained once per network operator from the routing
// registry and are immutable; they deterministically expand into the usable
// host addresses they contain.
type Block struct {
	prefix netip.Prefix
}

// ParseBlock parses a CIDR-style block specification, such as
// "203.0.113.0/24". The base address gets normalized to the prefix's first
// address (registry data occasionally announces unmasked bases). Malformed
// specifications return an error wrapping [ErrInvalidBlock].
func ParseBlock(spec string) (Block, error) {
	prefix, err := netip.ParsePrefix(spec)
	if err != nil {
		return Block{}, fmt.Errorf("%w %q: %v", ErrInvalidBlock, spec, err)
	}
	return Block{prefix: prefix.Masked()}, nil
}

// BlockFromPrefix wraps an already-parsed address prefix into a Block,
// normalizing the base address.
func BlockFromPrefix(prefix netip.Prefix) Block {
	return Block{prefix: prefix.Masked()}
}

// MustParseBlock parses a CIDR-style block specification and panics on
// malformed input. Intended for tests and hard-wired specifications only.
func MustParseBlock(spec string) Block {
	block, err := ParseBlock(spec)
	if err != nil {
		panic(err)
	}
	return block
}

// Prefix returns the block's (masked) address prefix.
func (b Block) Prefix() netip.Prefix { return b.prefix }

// String returns the block in CIDR notation.
func (b Block) String() string { return b.prefix.String() }

// IsValid reports whether the block was properly parsed (as opposed to a
// zero Block value).
func (b Block) IsValid() bool { return b.prefix.IsValid() }

// HostCount returns the number of usable host addresses the block expands
// into; for IPv4 blocks this excludes the network and broadcast addresses,
// so a /24 counts 254 and /31 and /32 count zero. Counts
// beyond the uint64 range (possible for wide IPv6 blocks) saturate at
// math.MaxUint64.
func (b Block) HostCount() uint64 {
	if !b.prefix.IsValid() {
		return 0
	}
	hostbits := b.prefix.Addr().BitLen() - b.prefix.Bits()
	if b.prefix.Addr().Is4() {
		if hostbits < 2 {
			return 0
		}
		return (uint64(1) << hostbits) - 2
	}
	if hostbits >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << hostbits) - 1
}

// Hosts returns a lazy iterator over every usable host address within the
// block, in ascending order. The iterator needs only constant memory, so
// even a /8-sized block expands without materializing gigabytes of
// addresses up front.
//
// For IPv4 blocks the network and broadcast addresses are excluded; IPv6
// blocks exclude only the subnet-router anycast (base) address.
func (b Block) Hosts() *Hosts {
	if !b.prefix.IsValid() {
		return &Hosts{done: true}
	}
	first := b.prefix.Addr().Next()
	last := netipx.PrefixLastIP(b.prefix)
	if b.prefix.Addr().Is4() {
		last = last.Prev()
	}
	if !first.IsValid() || !last.IsValid() || last.Less(first) {
		return &Hosts{done: true}
	}
	return &Hosts{next: first, last: last}
}

// Hosts iterates over the usable host addresses of a [Block] in ascending
// order. The zero value is a drained iterator.
type Hosts struct {
	next netip.Addr
	last netip.Addr
	done bool
}

// Next returns the next host address, or false once the block is exhausted.
func (h *Hosts) Next() (netip.Addr, bool) {
	if h.done {
		return netip.Addr{}, false
	}
	addr := h.next
	if addr == h.last {
		h.done = true
	} else {
		h.next = addr.Next()
	}
	return addr, true
}
