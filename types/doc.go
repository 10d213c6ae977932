/*
Package types defines cfedge's information model. Which is rather simple and
mainly revolves around [Candidate] and [Verdict], as well as the probe
[Quality] of candidates. A [Verdict] is a [Candidate] with a final quality
and, for accepted candidates, the measured connect latency and the serving
location of the CDN edge that answered.

Candidates flow from the address-block expander through the prober, verdicts
flow back out over a channel. Both are small value types passed by copy:
there is no shared mutable state to guard, which keeps the inherently
concurrent probing free of locks and of the subtle bugs that come with them.

Rejections carry an optional error with the gory details, but only as a
getter for diagnosis: by construction there is no propagation path for
per-candidate failures, a rejected candidate is simply dropped from the
output (see [Reject]).
*/
package types
