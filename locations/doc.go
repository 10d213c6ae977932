/*
Package locations loads and resolves the CDN's static location table: the
mapping from short IATA-style data-center codes (as embedded in diagnostic
responses, e.g. "FRA") to city and region metadata.

The table is collaborator I/O, not probing: it gets loaded exactly once per
process run, from a cache file when available and otherwise fetched from
the well-known table URL and cached, and the resulting [Map] is read-only
from then on. Every concurrent probe shares the same Map without locking;
lookups of unknown codes yield empty metadata instead of errors.
*/
package locations
