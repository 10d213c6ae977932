// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a [time.Duration] that (un)marshals YAML in the usual Go
// notation, such as "250ms" or "1.5s", instead of raw nanosecond counts.
type Duration time.Duration

// D returns the plain time.Duration value.
func (d Duration) D() time.Duration { return time.Duration(d) }

// String returns the duration in Go notation.
func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML decodes a duration from its Go notation.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML encodes a duration into its Go notation.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
