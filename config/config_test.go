// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"

	config "github.com/xodpool/cfedge/config"
)

var _ = Describe("configuration", func() {

	var tmpdir string

	BeforeEach(func() {
		tmpdir = GinkgoT().TempDir()
	})

	writeConfig := func(yml string) string {
		path := filepath.Join(tmpdir, "cfedge.yaml")
		Expect(os.WriteFile(path, []byte(yml), 0o644)).To(Succeed())
		return path
	}

	It("defaults to a sane probing policy", func() {
		cfg := config.Default()
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.Workers).To(Equal(50))
		Expect(cfg.Port).To(Equal(uint16(443)))
		Expect(cfg.ConnectTimeout.D()).To(Equal(time.Second))
		Expect(cfg.MaxDuration.D()).To(Equal(2 * time.Second))
	})

	It("overrides only what the config file mentions", func() {
		cfg := Successful(config.Load(writeConfig("workers: 8\nport: 8443\n")))
		Expect(cfg.Workers).To(Equal(8))
		Expect(cfg.Port).To(Equal(uint16(8443)))
		Expect(cfg.MaxDuration.D()).To(Equal(2*time.Second), "untouched defaults survive")
	})

	It("parses duration tunables", func() {
		cfg := Successful(config.Load(writeConfig("connect-timeout: 250ms\nmax-duration: 1.5s\n")))
		Expect(cfg.ConnectTimeout.D()).To(Equal(250 * time.Millisecond))
		Expect(cfg.MaxDuration.D()).To(Equal(1500 * time.Millisecond))
	})

	It("rejects unknown keys", func() {
		Expect(config.Load(writeConfig("wrokers: 8\n"))).Error().
			To(MatchError(ContainSubstring("malformed config file")))
	})

	It("rejects nonsense tunables", func() {
		Expect(config.Load(writeConfig("workers: 0\n"))).Error().
			To(MatchError(ContainSubstring("workers must be at least 1")))
		Expect(config.Load(writeConfig("trace-url: \"\"\n"))).Error().
			To(MatchError(ContainSubstring("trace-url")))
	})

	It("reports missing config files", func() {
		Expect(config.Load(filepath.Join(tmpdir, "no-such.yaml"))).Error().
			To(MatchError(ContainSubstring("cannot read config file")))
	})

})
