// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

// Three rows, of which only AS64500 matters: one range that is an exact
// /24, and one that needs splitting into two prefixes.
const ip2asnRows = "203.0.113.0\t203.0.113.255\t64500\tZZ\tEXAMPLENET Example Ltd.\n" +
	"198.51.100.0\t198.51.100.191\t64500\tZZ\tEXAMPLENET Example Ltd.\n" +
	"192.0.2.0\t192.0.2.255\t64501\tZZ\tOTHERNET\n"

var _ = Describe("offline prefix database", func() {

	var tmpdir string

	BeforeEach(func() {
		tmpdir = GinkgoT().TempDir()
	})

	expectOperator := func(path string) {
		db := Successful(OpenPrefixDB(path))
		op := Successful(db.Lookup(context.Background(), 64500))
		Expect(op.Name).To(Equal("EXAMPLENET Example Ltd."))
		blocks := make([]string, 0, len(op.Blocks))
		for _, b := range op.Blocks {
			blocks = append(blocks, b.String())
		}
		Expect(blocks).To(ConsistOf(
			"203.0.113.0/24", "198.51.100.0/25", "198.51.100.128/26"))
	}

	It("resolves an ASN from a plain TSV dump", func() {
		path := filepath.Join(tmpdir, "ip2asn-v4.tsv")
		Expect(os.WriteFile(path, []byte(ip2asnRows), 0o644)).To(Succeed())
		expectOperator(path)
	})

	It("transparently decompresses gzipped dumps", func() {
		path := filepath.Join(tmpdir, "ip2asn-v4.tsv.gz")
		f := Successful(os.Create(path))
		gz := gzip.NewWriter(f)
		Expect(gz.Write([]byte(ip2asnRows))).Error().To(Succeed())
		Expect(gz.Close()).To(Succeed())
		Expect(f.Close()).To(Succeed())
		expectOperator(path)
	})

	It("transparently decompresses zstandard dumps", func() {
		path := filepath.Join(tmpdir, "ip2asn-v4.tsv.zst")
		f := Successful(os.Create(path))
		zst := Successful(zstd.NewWriter(f))
		Expect(zst.Write([]byte(ip2asnRows))).Error().To(Succeed())
		Expect(zst.Close()).To(Succeed())
		Expect(f.Close()).To(Succeed())
		expectOperator(path)
	})

	It("refuses missing database files", func() {
		Expect(OpenPrefixDB(filepath.Join(tmpdir, "no-such.tsv"))).Error().
			To(MatchError(ContainSubstring("cannot open prefix database")))
	})

	It("reports ASNs without announced ranges", func() {
		path := filepath.Join(tmpdir, "ip2asn-v4.tsv")
		Expect(os.WriteFile(path, []byte(ip2asnRows), 0o644)).To(Succeed())
		db := Successful(OpenPrefixDB(path))
		Expect(db.Lookup(context.Background(), 64999)).Error().
			To(MatchError(ContainSubstring("not found in prefix database")))
	})

})
