// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xodpool/cfedge/cidr"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the public bgpview.io routing-registry API.
const DefaultBaseURL = "https://api.bgpview.io"

// lookupTimeout bounds a single registry API request.
const lookupTimeout = 30 * time.Second

// Operator is a network operator under test: an autonomous system with its
// display name and the IPv4 address blocks it originates. Operators are
// resolved once per scan and immutable afterwards.
type Operator struct {
	ASN    uint32
	Name   string
	Blocks []cidr.Block
}

// Resolver resolves an autonomous system number into an [Operator]. The
// HTTP registry [Client] and the offline [PrefixDB] both satisfy it.
type Resolver interface {
	Lookup(ctx context.Context, asn uint32) (Operator, error)
}

// Client looks up operator names and announced prefixes against a
// bgpview-style routing-registry HTTP API.
type Client struct {
	// BaseURL of the registry API; defaults to [DefaultBaseURL].
	BaseURL string
	// HTTPClient used for registry requests; defaults to a client with a
	// sane lookup timeout.
	HTTPClient *http.Client
}

// New returns a registry client talking to the public bgpview.io API.
func New() *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: lookupTimeout},
	}
}

// Lookup resolves the given ASN into its display name and announced IPv4
// address blocks, fetching both concurrently. A registry failure is fatal
// for this operator only: the caller is expected to carry on with the next
// one. Malformed prefix specifications in the registry answer are skipped,
// not fatal.
func (c *Client) Lookup(ctx context.Context, asn uint32) (Operator, error) {
	op := Operator{ASN: asn}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var payload struct {
			Data struct {
				Name string `json:"name"`
			} `json:"data"`
		}
		if err := c.get(ctx, fmt.Sprintf("/asn/%d", asn), &payload); err != nil {
			return err
		}
		op.Name = payload.Data.Name
		return nil
	})
	g.Go(func() error {
		var payload struct {
			Data struct {
				IPv4Prefixes []struct {
					Prefix string `json:"prefix"`
				} `json:"ipv4_prefixes"`
			} `json:"data"`
		}
		if err := c.get(ctx, fmt.Sprintf("/asn/%d/prefixes", asn), &payload); err != nil {
			return err
		}
		for _, pfx := range payload.Data.IPv4Prefixes {
			block, err := cidr.ParseBlock(pfx.Prefix)
			if err != nil {
				log.Debug("skipping malformed registry prefix",
					"asn", asn, "prefix", pfx.Prefix, "err", err)
				continue
			}
			op.Blocks = append(op.Blocks, block)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Operator{}, fmt.Errorf("registry lookup of AS%d: %w", asn, err)
	}
	return op, nil
}

// get fetches a registry API path and unmarshals the JSON answer.
func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry answered %s for %s", resp.Status, path)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("malformed registry answer for %s: %w", path, err)
	}
	return nil
}
