/*
Package probe implements the concurrent CDN edge-endpoint (in)validator.

[Prober] objects support concurrent candidate probing jobs with maximum
goroutine limits. Individual probe verdicts are streamed as they are
decided (in completion order, not submission order) to a channel returned
when creating a new Prober object.

	                +---+
	Candidate------>| P +-->ch Verdict
	                +---+

A single probe is the full validation sequence: a
timed TCP connection attempt (whose duration becomes the candidate's
recorded latency), one timed HTTPS request to the well-known diagnostic
endpoint over that very connection, a total round-trip ceiling, a
client-signature marker check, and finally the extraction of the serving
data-center code. Whatever goes wrong (refused, timed out, handshake
failed, marker missing, code missing) the candidate is rejected and the
batch carries on.

If needed, a Prober can read the candidates it has to probe from an input
channel until this input channel is closed:

	             +---+
	ch Candidate>| P +-->ch Verdict
	             +---+

Submission applies backpressure: once twice the pool size of probes is
pending, [Prober.Probe] blocks the submitter. Feeding a lazily expanded
multi-million-host address block therefore needs memory proportional to the
pool size only.

# Acknowledgements

Under its hood, [Prober] leverages [gammazero/workerpool] as the limiting
goroutine pool and [golang.org/x/sync/semaphore] for submission
backpressure.

[gammazero/workerpool]: https://github.com/gammazero/workerpool
[golang.org/x/sync/semaphore]: https://pkg.go.dev/golang.org/x/sync/semaphore
*/
package probe
