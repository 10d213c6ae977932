// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"time"

	"github.com/xodpool/cfedge/locations"
	"github.com/xodpool/cfedge/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
)

// traceBody is what a genuine edge's diagnostic endpoint answers with,
// sufficiently abridged.
const traceBody = "fl=999f99\nip=203.0.113.7\nts=1700000000.000\nvisit_scheme=https\nuag=Mozilla/5.0\ncolo=FRA\nhttp=http/1.1\n"

var testLocations = locations.Map{
	"FRA": {Iata: "FRA", City: "Frankfurt", Region: "Europe"},
}

// candidateOf turns an httptest server's listener address into the probe
// candidate pointing at it.
func candidateOf(srv *httptest.Server) types.Candidate {
	ap := netip.MustParseAddrPort(srv.Listener.Addr().String())
	return types.Candidate{Addr: ap.Addr(), Port: ap.Port()}
}

// verdictFor runs a single candidate through a fresh single-worker prober
// and returns its verdict.
func verdictFor(cand types.Candidate, options ...Option) types.Verdict {
	prober, verdicts := New(1, options...)
	prober.Probe(context.Background(), cand)
	prober.StopWait()
	verdict, ok := <-verdicts
	Expect(ok).To(BeTrue(), "prober swallowed the verdict")
	Expect(verdicts).To(BeClosed())
	return verdict
}

var _ = Describe("prober", func() {

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(3 * time.Second).WithPolling(250 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
	})

	It("handles multiple stops", func() {
		prober, _ := New(1)
		for i := 0; i < 2; i++ {
			By(fmt.Sprintf("%d round", i+1))
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				prober.StopWait()
				close(done)
			}()
			Eventually(done).WithTimeout(1 * time.Second).Should(BeClosed())
		}
	})

	It("accepts a genuine edge endpoint with location and latency", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, traceBody)
		}))
		defer srv.Close()

		verdict := verdictFor(candidateOf(srv),
			WithTraceURL(srv.URL), WithLocations(testLocations))
		Expect(verdict.Quality).To(Equal(types.Accepted))
		Expect(verdict.Colo).To(Equal("FRA"))
		Expect(verdict.City).To(Equal("Frankfurt"))
		Expect(verdict.Region).To(Equal("Europe"))
		Expect(verdict.Latency).To(BeNumerically(">", 0))
		Expect(verdict.LatencyText()).To(MatchRegexp(`^\d+\.\d{2} ms$`))
	})

	It("accepts unknown location codes with empty metadata", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "uag=Mozilla/5.0\ncolo=ZZZ\n")
		}))
		defer srv.Close()

		verdict := verdictFor(candidateOf(srv),
			WithTraceURL(srv.URL), WithLocations(testLocations))
		Expect(verdict.Quality).To(Equal(types.Accepted))
		Expect(verdict.Colo).To(Equal("ZZZ"))
		Expect(verdict.City).To(BeEmpty())
		Expect(verdict.Region).To(BeEmpty())
	})

	It("rejects responses lacking the client-signature marker", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "hello from a captive portal\ncolo=FRA\n")
		}))
		defer srv.Close()

		verdict := verdictFor(candidateOf(srv), WithTraceURL(srv.URL))
		Expect(verdict.Quality).To(Equal(types.Rejected))
		Expect(verdict.Err()).To(MatchError(ContainSubstring("client-signature")))
	})

	It("rejects signature matches without an extractable location code", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "uag=Mozilla/5.0\nnothing to see here\n")
		}))
		defer srv.Close()

		verdict := verdictFor(candidateOf(srv), WithTraceURL(srv.URL))
		Expect(verdict.Quality).To(Equal(types.Rejected))
		Expect(verdict.Err()).To(MatchError(ContainSubstring("location code")))
	})

	It("rejects candidates exceeding the round-trip ceiling, even with a valid body", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(250 * time.Millisecond)
			fmt.Fprint(w, traceBody)
		}))
		defer srv.Close()

		verdict := verdictFor(candidateOf(srv),
			WithTraceURL(srv.URL),
			WithMaxDuration(100*time.Millisecond),
			WithRequestTimeout(time.Second))
		Expect(verdict.Quality).To(Equal(types.Rejected))
		Expect(verdict.Err()).To(MatchError(ContainSubstring("ceiling")))
	})

	It("rejects candidates that never establish a connection", func() {
		// Grab a port that is guaranteed to be closed by binding and
		// immediately releasing it.
		lstn, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).To(Succeed())
		ap := netip.MustParseAddrPort(lstn.Addr().String())
		Expect(lstn.Close()).To(Succeed())

		verdict := verdictFor(types.Candidate{Addr: ap.Addr(), Port: ap.Port()},
			WithConnectTimeout(250*time.Millisecond))
		Expect(verdict.Quality).To(Equal(types.Rejected))
		Expect(verdict.Err()).To(HaveOccurred())
	})

	It("probes a stream of candidates, one verdict each", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, traceBody)
		}))
		defer srv.Close()

		const count = 20
		prober, verdicts := New(4,
			WithTraceURL(srv.URL), WithLocations(testLocations))
		in := make(chan types.Candidate)
		go func() {
			for i := 0; i < count; i++ {
				in <- candidateOf(srv)
			}
			close(in)
		}()
		go func() {
			prober.ProbeStream(context.Background(), in)
			prober.StopWait()
		}()
		total := 0
		for verdict := range verdicts {
			Expect(verdict.Quality.IsFinal()).To(BeTrue())
			total++
		}
		Expect(total).To(Equal(count))
	})

	It("never exceeds the pool-size concurrency limit", func() {
		var mu sync.Mutex
		inflight, maxInflight := 0, 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			mu.Lock()
			inflight++
			if inflight > maxInflight {
				maxInflight = inflight
			}
			mu.Unlock()
			time.Sleep(50 * time.Millisecond)
			mu.Lock()
			inflight--
			mu.Unlock()
			fmt.Fprint(w, traceBody)
		}))
		defer srv.Close()

		const limit = 3
		prober, verdicts := New(limit, WithTraceURL(srv.URL))
		go func() {
			for i := 0; i < 4*limit; i++ {
				prober.Probe(context.Background(), candidateOf(srv))
			}
			prober.StopWait()
		}()
		total := 0
		for range verdicts {
			total++
		}
		Expect(total).To(Equal(4 * limit))
		mu.Lock()
		defer mu.Unlock()
		Expect(maxInflight).To(BeNumerically("<=", limit))
	})

	It("stops probing when the context gets cancelled", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(100 * time.Millisecond)
			fmt.Fprint(w, traceBody)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		prober, verdicts := New(1, WithTraceURL(srv.URL))
		prober.Probe(ctx, candidateOf(srv))
		cancel()
		// a cancelled context must never wedge submission, even with the
		// backlog full.
		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			for i := 0; i < 10; i++ {
				prober.Probe(ctx, candidateOf(srv))
			}
			prober.StopWait()
			close(done)
		}()
		Eventually(done).WithTimeout(5 * time.Second).Should(BeClosed())
		Eventually(verdicts).WithTimeout(time.Second).Should(BeClosed())
	})

})
