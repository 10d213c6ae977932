/*
Package cidr expands CIDR-style address blocks into the usable host
addresses they contain.

The one thing of note here is that expansion is lazy: [Block.Hosts] hands
out a constant-memory iterator instead of a materialized slice. Routing
registries happily announce /12s and wider, and a scan over millions of
candidates must not start by allocating them all. Consumers simply pull
addresses one at a time:

	block := cidr.MustParseBlock("203.0.113.0/24")
	hosts := block.Hosts()
	for addr, ok := hosts.Next(); ok; addr, ok = hosts.Next() {
		// probe addr...
	}

For IPv4 blocks the expansion excludes the network and broadcast addresses,
so that a /24 yields exactly 254 hosts and /31 and /32 blocks yield none.
*/
package cidr
