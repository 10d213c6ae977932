// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package csvout

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xodpool/cfedge/types"
)

// header is the fixed first row of every operator output file.
var header = []string{"ip", "port", "data_center", "region", "city", "latency"}

// Writer appends accepted probe verdicts to one operator's CSV output file,
// one row per verdict, in completion order. Rows are flushed to the file as
// they are written, so an abnormal termination loses at most the in-flight
// probe set, never already-reported endpoints.
//
// A Writer is a single logical writer: it must only ever be driven by one
// consuming loop over completed verdicts, it performs no locking of its
// own.
type Writer struct {
	path string
	f    *os.File
	csv  *csv.Writer
}

// Filename derives the output file name for an operator display name,
// mapping path-hostile runes to underscores. Empty names fall back to
// "asn".
func Filename(operatorName string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(operatorName))
	if name == "" {
		name = "asn"
	}
	return name + ".csv"
}

// Create opens the output file for one operator inside dir, truncating any
// pre-existing file of the same derived name, and writes the header row.
func Create(dir, operatorName string) (*Writer, error) {
	path := filepath.Join(dir, Filename(operatorName))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create output file: %w", err)
	}
	w := &Writer{
		path: path,
		f:    f,
		csv:  csv.NewWriter(f),
	}
	if err := w.write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot write output header: %w", err)
	}
	return w, nil
}

// Path returns the output file's path.
func (w *Writer) Path() string { return w.path }

// Write appends one accepted verdict as a CSV row and flushes it to the
// file before returning.
func (w *Writer) Write(verdict types.Verdict) error {
	return w.write([]string{
		verdict.Addr.String(),
		verdict.PortText(),
		verdict.Colo,
		verdict.Region,
		verdict.City,
		verdict.LatencyText(),
	})
}

// Close flushes and closes the output file.
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// write emits a single row and immediately flushes it.
func (w *Writer) write(record []string) error {
	if err := w.csv.Write(record); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}
