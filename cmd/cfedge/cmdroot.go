// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xodpool/cfedge/config"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	asnList         *string
	workerNumber    *uint
	probePort       *uint16
	outputDir       *string
	prefixDB        *string
	configFile      *string
	spinnerInterval *time.Duration
	debug           *bool
)

func newRootCmd() (rootCmd *cobra.Command) {
	var asns []uint32
	var cfg config.Config

	rootCmd = &cobra.Command{
		Use:     "cfedge --asn ASN[,ASN...]",
		Short:   "cfedge discovers CDN edge endpoints within the address blocks announced by autonomous systems",
		Version: "0.9",
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if asns, err = parseASNs(*asnList); err != nil {
				return err
			}
			if cfg, err = assembleConfig(cmd); err != nil {
				return err
			}
			if *spinnerInterval < 10*time.Millisecond {
				return fmt.Errorf("--spinner must be at least 10ms")
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			if *debug {
				log.SetLevel(log.DebugLevel)
				log.Debug("debug logging enabled")
			}
			return ScanAndReport(context.Background(), cfg, asns)
		},
	}
	// Sets up the flags.
	asnList = rootCmd.PersistentFlags().String(
		"asn", "", "comma-separated autonomous system numbers to scan (required)")
	_ = rootCmd.MarkPersistentFlagRequired("asn")
	workerNumber = rootCmd.PersistentFlags().Uint(
		"workers", 50, "number of concurrent probe workers")
	probePort = rootCmd.PersistentFlags().Uint16(
		"port", 443, "transport port to probe on candidate addresses")
	outputDir = rootCmd.PersistentFlags().String(
		"output", ".", "directory receiving the per-operator CSV files")
	prefixDB = rootCmd.PersistentFlags().String(
		"prefix-db", "", "offline ip2asn TSV dump instead of the live routing registry")
	configFile = rootCmd.PersistentFlags().String(
		"config", "", "YAML config file with scan tunables")
	spinnerInterval = rootCmd.PersistentFlags().Duration(
		"spinner", 100*time.Millisecond, "spinner interval")
	debug = rootCmd.PersistentFlags().Bool(
		"debug", false, "enable debugging output")
	return
}

// parseASNs splits and parses the comma-separated ASN list.
func parseASNs(list string) ([]uint32, error) {
	var asns []uint32
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(field)), "AS"))
		asn, err := strconv.ParseUint(field, 10, 32)
		if err != nil || asn == 0 {
			return nil, fmt.Errorf("--asn: %q is not an autonomous system number", field)
		}
		asns = append(asns, uint32(asn))
	}
	return asns, nil
}

// assembleConfig builds the effective configuration: defaults, then the
// optional config file, then any explicitly set command-line flags on top.
func assembleConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return config.Config{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = int(*workerNumber)
	}
	if flags.Changed("port") {
		cfg.Port = *probePort
	}
	if flags.Changed("output") {
		cfg.OutputDir = *outputDir
	}
	if flags.Changed("prefix-db") {
		cfg.PrefixDB = *prefixDB
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
