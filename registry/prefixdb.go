// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package registry

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/xodpool/cfedge/cidr"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go4.org/netipx"
)

// PrefixDB resolves operators from a local ip2asn TSV dump (as published by
// iptoasn.com) instead of a live routing-registry API. Rows map address
// ranges to originating ASNs:
//
//	start '\t' end '\t' asn '\t' country '\t' owner
//
// Files may be stored plain, gzip-compressed (".gz") or
// zstandard-compressed (".zst"); decompression is transparent.
type PrefixDB struct {
	path string
}

// OpenPrefixDB returns a PrefixDB backed by the TSV dump at the given path.
func OpenPrefixDB(path string) (*PrefixDB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot open prefix database: %w", err)
	}
	return &PrefixDB{path: path}, nil
}

// Lookup scans the dump for every range originated by the given ASN,
// converting the ranges into CIDR address blocks. The operator name is
// taken from the owner column. Looking up an ASN without any announced
// ranges is an error, mirroring an unknown ASN at a live registry.
func (db *PrefixDB) Lookup(ctx context.Context, asn uint32) (Operator, error) {
	f, err := os.Open(db.path)
	if err != nil {
		return Operator{}, fmt.Errorf("cannot open prefix database: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	switch {
	case strings.HasSuffix(db.path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Operator{}, fmt.Errorf("cannot open prefix database: %w", err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(db.path, ".zst"):
		zst, err := zstd.NewReader(f)
		if err != nil {
			return Operator{}, fmt.Errorf("cannot open prefix database: %w", err)
		}
		defer zst.Close()
		r = zst
	}

	op := Operator{ASN: asn}
	asnText := strconv.FormatUint(uint64(asn), 10)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return Operator{}, ctx.Err()
		default:
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 5 || fields[2] != asnText {
			continue
		}
		start, err := netip.ParseAddr(fields[0])
		if err != nil {
			log.Debug("skipping malformed prefix database row", "row", scanner.Text(), "err", err)
			continue
		}
		end, err := netip.ParseAddr(fields[1])
		if err != nil {
			log.Debug("skipping malformed prefix database row", "row", scanner.Text(), "err", err)
			continue
		}
		iprange := netipx.IPRangeFrom(start, end)
		if !iprange.IsValid() {
			log.Debug("skipping invalid address range", "row", scanner.Text())
			continue
		}
		for _, prefix := range iprange.Prefixes() {
			op.Blocks = append(op.Blocks, cidr.BlockFromPrefix(prefix))
		}
		if op.Name == "" {
			op.Name = fields[4]
		}
	}
	if err := scanner.Err(); err != nil {
		return Operator{}, fmt.Errorf("cannot read prefix database: %w", err)
	}
	if len(op.Blocks) == 0 {
		return Operator{}, fmt.Errorf("AS%d not found in prefix database %s", asn, db.path)
	}
	return op, nil
}
