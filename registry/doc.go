/*
Package registry resolves network operators, that is, autonomous systems,
into their display names and the IPv4 address blocks they originate.

Two interchangeable resolvers implement the [Resolver] contract: [Client]
talks to a bgpview-style routing-registry HTTP API, fetching name and
prefixes concurrently; [PrefixDB] answers the same question from a local
ip2asn TSV dump (iptoasn.com format, optionally gzip- or
zstandard-compressed), for scans that must not depend on a third-party API
being up or generous with its rate limits.

Registry failures are fatal for the affected operator only; malformed
prefix rows are skipped with a debug log and never abort a lookup.
*/
package registry
