// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/xodpool/cfedge/locations"
	"github.com/xodpool/cfedge/types"

	"github.com/gammazero/workerpool"
	"golang.org/x/sync/semaphore"
)

// The probing policy defaults: a candidate gets one timed connection
// attempt and one timed validation request, and however the bytes flow, a
// total round trip beyond the duration ceiling disqualifies it.
const (
	DefaultTraceURL       = "https://speed.cloudflare.com/cdn-cgi/trace"
	DefaultConnectTimeout = time.Second
	DefaultRequestTimeout = time.Second
	DefaultMaxDuration    = 2 * time.Second
)

// signatureMarker is the client-signature token a genuine edge diagnostic
// response echoes back; captive portals and other chatty middleboxes that
// answer the probe won't carry it.
const signatureMarker = "uag=Mozilla/5.0"

// maxTraceBody caps how much of a (possibly hostile) response body we are
// willing to slurp.
const maxTraceBody = 64 << 10

// coloRegexp extracts the serving data-center code from a diagnostic
// response body.
var coloRegexp = regexp.MustCompile(`colo=([A-Z]+)`)

// Prober probes candidate endpoints for being genuine CDN edges and then
// streams the final [types.Verdict] for every candidate to a result/output
// channel. Probers use a goroutine-limited worker pool, so no matter how
// many candidates get submitted, at most the pool size of probes is in
// flight at any instant; a hung candidate occupies one pool slot, never the
// whole batch.
type Prober struct {
	connectTimeout time.Duration // hard limit on the TCP connection attempt.
	requestTimeout time.Duration // hard limit on the validation request.
	maxDuration    time.Duration // total round-trip ceiling; exceeding it rejects.
	traceURL       string        // diagnostic endpoint issuing the validation response.
	locmap         locations.Map // read-only location code metadata, shared unlocked.

	workers  *workerpool.WorkerPool // probe workers running candidate probes concurrently.
	backlog  *semaphore.Weighted    // bounds the pool's waiting queue.
	verdicts chan types.Verdict     // results/verdict stream channel.
	stopOnce sync.Once
}

// Option can be passed to New when creating new Prober objects.
type Option func(*Prober)

// New returns a new [Prober] with a maximum worker pool of the specified
// size, as well as its verdict stream. Every candidate submitted via
// [Prober.Probe] eventually yields exactly one verdict on that stream.
//
// The new prober defaults to a 1s connection timeout, a 1s validation
// request timeout, and a 2s total round-trip ceiling, validating against
// the Cloudflare trace endpoint. The prober can be configured during
// creation using several options:
//   - [WithConnectTimeout]
//   - [WithRequestTimeout]
//   - [WithMaxDuration]
//   - [WithTraceURL]
//   - [WithLocations]
func New(size int, options ...Option) (*Prober, <-chan types.Verdict) {
	if size < 1 {
		size = 1
	}
	verdicts := make(chan types.Verdict, size)
	prober := &Prober{
		connectTimeout: DefaultConnectTimeout,
		requestTimeout: DefaultRequestTimeout,
		maxDuration:    DefaultMaxDuration,
		traceURL:       DefaultTraceURL,
		workers:        workerpool.New(size),
		// Allow up to twice the pool size of pending probes before Probe
		// blocks the submitter: enough to keep the pool saturated, yet the
		// candidate backlog never grows beyond O(pool size).
		backlog:  semaphore.NewWeighted(int64(2 * size)),
		verdicts: verdicts,
	}
	for _, opt := range options {
		opt(prober)
	}
	return prober, verdicts
}

// WithConnectTimeout sets the hard timeout for the transport-layer
// connection attempt.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(p *Prober) { p.connectTimeout = timeout }
}

// WithRequestTimeout sets the hard timeout for the application-layer
// validation request.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(p *Prober) { p.requestTimeout = timeout }
}

// WithMaxDuration sets the total round-trip ceiling, measured from the
// start of the connection attempt: a candidate exceeding it gets rejected
// even if its response would otherwise validate.
func WithMaxDuration(ceiling time.Duration) Option {
	return func(p *Prober) { p.maxDuration = ceiling }
}

// WithTraceURL points the prober at a different diagnostic endpoint; mock
// endpoints in tests are the expected customer.
func WithTraceURL(traceURL string) Option {
	return func(p *Prober) { p.traceURL = traceURL }
}

// WithLocations hands the prober the read-only location table used to
// resolve serving data-center codes into city/region metadata. The table is
// shared by all concurrent probes without locking, as it is never mutated
// after loading.
func WithLocations(locmap locations.Map) Option {
	return func(p *Prober) { p.locmap = locmap }
}

// Probe submits a single candidate for probing. Probe blocks while the
// worker pool's backlog is full, so feeding candidates from a lazily
// expanded block keeps memory bounded by the pool size, not by the block
// size. The candidate's verdict is later sent to the channel returned
// together with the newly created Prober.
//
// If the specified context gets cancelled, pending candidates won't be
// echoed to the verdict stream at all, and in particular not even as
// rejected. However, spurious verdicts might still appear on the stream due
// to the uncontrollable order of verdict sending and context cancellation
// detection.
func (p *Prober) Probe(ctx context.Context, cand types.Candidate) {
	if err := p.backlog.Acquire(ctx, 1); err != nil {
		return // context cancelled while waiting for a backlog slot.
	}
	p.workers.Submit(func() {
		defer p.backlog.Release(1)
		verdict := p.probe(ctx, cand)
		select {
		case p.verdicts <- verdict:
		case <-ctx.Done():
		}
	})
}

// ProbeStream reads candidates to be probed from a channel until the
// channel is closed or the specified context gets cancelled. It does not
// return until then, so callers typically might run ProbeStream in a
// separate goroutine.
func (p *Prober) ProbeStream(ctx context.Context, ch <-chan types.Candidate) {
	for {
		select {
		case cand, ok := <-ch:
			if !ok {
				return
			}
			p.Probe(ctx, cand)
		case <-ctx.Done():
			return
		}
	}
}

// probe runs a single candidate's full validation sequence and always
// returns a verdict: every error along the way collapses into a rejection,
// by construction there is no propagation path for per-candidate failures.
// A single bad address must never abort the batch.
func (p *Prober) probe(ctx context.Context, cand types.Candidate) types.Verdict {
	start := time.Now()

	// Step 1: timed transport-layer connection attempt; the elapsed connect
	// time is the candidate's recorded latency.
	dialer := net.Dialer{Timeout: p.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cand.AddrPort())
	if err != nil {
		return types.Reject(cand, err)
	}
	latency := time.Since(start)

	// Step 2: one timed validation request against the diagnostic endpoint,
	// riding on the connection we just measured.
	body, err := p.fetchTrace(ctx, conn)
	if err != nil {
		return types.Reject(cand, err)
	}

	// Step 3: a slow total round trip disqualifies the candidate regardless
	// of whether the bytes that arrived would validate.
	if elapsed := time.Since(start); elapsed > p.maxDuration {
		return types.Reject(cand, fmt.Errorf("round trip of %v exceeds %v ceiling", elapsed, p.maxDuration))
	}

	// Steps 4+5: the response must carry the client-signature marker and an
	// extractable location code; a signature match without a code is still
	// dropped as a non-match.
	if !strings.Contains(body, signatureMarker) {
		return types.Reject(cand, errors.New("response lacks client-signature marker"))
	}
	match := coloRegexp.FindStringSubmatch(body)
	if match == nil {
		return types.Reject(cand, errors.New("response carries no location code"))
	}

	// Step 6: resolve the serving location; unknown codes resolve to empty
	// metadata rather than to an error.
	colo := match[1]
	loc := p.locmap.Lookup(colo)
	return types.Accept(cand, colo, loc.Region, loc.City, latency)
}

// fetchTrace issues the single validation request over the already-dialed
// probe connection and returns the response body. The connection is handed
// to the HTTP transport exactly once and is closed when fetchTrace returns.
func (p *Prober) fetchTrace(ctx context.Context, conn net.Conn) (string, error) {
	defer conn.Close()
	var dialOnce sync.Once
	transport := &http.Transport{
		// Hand the probe connection out exactly once. The transport performs
		// the TLS handshake itself for https trace URLs, with the SNI taken
		// from the URL host, so the edge serves its proper diagnostic page no
		// matter which candidate address we dialed.
		DialContext: func(context.Context, string, string) (net.Conn, error) {
			var c net.Conn
			err := errors.New("probe connection already consumed")
			dialOnce.Do(func() { c, err = conn, nil })
			return c, err
		},
		DisableKeepAlives: true,
	}
	defer transport.CloseIdleConnections()
	client := &http.Client{
		Transport: transport,
		Timeout:   p.requestTimeout,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.traceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTraceBody))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// StopWait waits for all queued probes to get processed and then finally
// closes the verdict stream channel.
func (p *Prober) StopWait() {
	p.stopOnce.Do(func() {
		p.workers.StopWait()
		close(p.verdicts)
	})
}
