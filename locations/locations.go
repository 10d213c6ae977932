// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package locations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"
)

// DefaultURL is the well-known location table of the Cloudflare CDN,
// listing every serving data center with its IATA-style code and
// geographical metadata.
const DefaultURL = "https://speed.cloudflare.com/locations"

// DefaultCachePath is where the fetched location table gets cached between
// runs; the table is static enough that refetching it every scan would be
// plain rude.
const DefaultCachePath = "locations.json"

// fetchTimeout limits the one-off location table download.
const fetchTimeout = 30 * time.Second

// Location describes a single CDN data center, keyed by its short
// IATA-style location code.
type Location struct {
	Iata   string  `json:"iata"`
	City   string  `json:"city"`
	Region string  `json:"region"`
	Cca2   string  `json:"cca2"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Map maps short location codes to their descriptive metadata. It is
// loaded once before probing begins and never mutated afterwards, so all
// concurrent probes share it without any synchronization.
type Map map[string]Location

// Lookup resolves a location code into its metadata. Unknown codes resolve
// to the zero Location with empty city and region, rather than to an error.
func (m Map) Lookup(code string) Location {
	return m[code]
}

// Load returns the location table, reading it from the cache file at
// cachePath if one exists, and otherwise fetching it from url and caching
// it for the next run. Pass empty strings to get the default cache path and
// table URL.
func Load(ctx context.Context, cachePath, url string) (Map, error) {
	if cachePath == "" {
		cachePath = DefaultCachePath
	}
	if url == "" {
		url = DefaultURL
	}
	data, err := os.ReadFile(cachePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if data, err = fetch(ctx, url); err != nil {
			return nil, err
		}
		// Caching is best effort: a read-only working directory must not
		// stop the scan, the table is already in memory.
		_ = os.WriteFile(cachePath, data, 0o644)
	case err != nil:
		return nil, fmt.Errorf("cannot read cached location table: %w", err)
	}
	var locs []Location
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("malformed location table: %w", err)
	}
	m := make(Map, len(locs))
	for _, loc := range locs {
		m[loc.Iata] = loc
	}
	return m, nil
}

// fetch downloads the location table JSON.
func fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch location table: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch location table: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot fetch location table: unexpected HTTP status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch location table: %w", err)
	}
	return data, nil
}
