// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/xodpool/cfedge/config"
	"github.com/xodpool/cfedge/csvout"
	"github.com/xodpool/cfedge/locations"
	"github.com/xodpool/cfedge/probe"
	"github.com/xodpool/cfedge/registry"
	"github.com/xodpool/cfedge/scan"

	"github.com/charmbracelet/log"
	"github.com/gosuri/uilive"
)

// ScanAndReport resolves each autonomous system into its operator name and
// announced address blocks, then scans the blocks one operator after the
// other, writing accepted edge endpoints into one CSV file per operator.
// A failing operator is reported and skipped; the remaining operators still
// get scanned.
func ScanAndReport(ctx context.Context, cfg config.Config, asns []uint32) error {
	// The location table is strictly garnish: without it, accepted endpoints
	// simply carry empty region/city columns. So a missing table downgrades
	// to a warning instead of aborting the whole scan.
	locmap, err := locations.Load(ctx, cfg.LocationsCache, cfg.LocationsURL)
	if err != nil {
		log.Warn("scanning without data center locations", "reason", err)
	}

	var resolver registry.Resolver
	if cfg.PrefixDB != "" {
		if resolver, err = registry.OpenPrefixDB(cfg.PrefixDB); err != nil {
			return fmt.Errorf("cannot use offline prefix database: %w", err)
		}
	} else {
		client := registry.New()
		client.BaseURL = cfg.RegistryURL
		resolver = client
	}

	scanner := scan.New(cfg.Workers, cfg.Port,
		probe.WithConnectTimeout(cfg.ConnectTimeout.D()),
		probe.WithRequestTimeout(cfg.RequestTimeout.D()),
		probe.WithMaxDuration(cfg.MaxDuration.D()),
		probe.WithTraceURL(cfg.TraceURL),
		probe.WithLocations(locmap),
	)

	// Fire off the rendering goroutine on the scanner's (stable) progress
	// tally and only then start scanning. The rendering stops after all
	// operators have been scanned, with a final update so the terminal
	// shows the last operator's complete tally. The end of rendering is
	// signalled via renderingDone.
	scanningDone := make(chan struct{})
	renderingDone := make(chan struct{})
	go func() {
		// uilive's background updating mode using Start() may trigger
		// anytime with the rendering into the buffer not yet complete,
		// making the terminal output very flickery. So we avoid Start() and
		// instead trigger an explicit flush to the terminal after having
		// completed the rendering.
		term := uilive.New()
		renderer := newRenderer(term)
		defer func() {
			renderData(term, renderer, scanner.Tally())
			renderer.Stop()
			close(renderingDone)
		}()
		renderData(term, renderer, scanner.Tally())
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				renderData(term, renderer, scanner.Tally())
			case <-scanningDone:
				return
			}
		}
	}()
	defer func() {
		close(scanningDone)
		<-renderingDone
	}()

	for _, asn := range asns {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := scanOperator(ctx, scanner, resolver, asn, cfg.OutputDir); err != nil {
			log.Error("skipping operator", "asn", asn, "reason", err)
		}
	}
	return nil
}

// scanOperator resolves a single ASN and scans its address blocks, writing
// accepted endpoints to a fresh CSV file named after the operator.
func scanOperator(ctx context.Context, scanner *scan.Scanner, resolver registry.Resolver, asn uint32, outputDir string) error {
	op, err := resolver.Lookup(ctx, asn)
	if err != nil {
		return err
	}
	if op.Name == "" {
		op.Name = fmt.Sprintf("AS%d", asn)
	}
	sink, err := csvout.Create(outputDir, op.Name)
	if err != nil {
		return err
	}
	scanErr := scanner.Run(ctx, op, sink)
	if err := sink.Close(); err != nil && scanErr == nil {
		scanErr = err
	}
	if scanErr != nil {
		return scanErr
	}
	log.Info("operator scanned",
		"operator", op.Name, "asn", asn, "results", sink.Path())
	return nil
}

// renderData takes a consistent snapshot of the scan progress and then
// renders (and flushes) it to the terminal.
func renderData(term *uilive.Writer, r *renderer, tally *scan.Tally) {
	r.Render(tally.Snapshot())
	term.Flush()
}
