/*
Package scan wires one operator's probing pipeline together and keeps the
score.

A [Scanner] puts the processing elements and their plumbing in place:

	blocks--expand-->Candidate--probe-->ch Verdict--consume-->CSV sink
	                                            `-->Tally-->live display

The feeding side lazily expands the operator's (deduplicated) address
blocks and submits candidates under the prober's backpressure, so memory
holds only in-flight probes, never a materialized candidate list and never
the full result set. The consuming side is the single logical writer over
the completion-ordered verdict stream: it updates the [Tally] for the live
display and appends accepted endpoints to the operator's CSV file, flushed
row by row.

[Scanner.Run] returns once every fed candidate has been drained through
both sides, at which point the operator's output file is complete.
*/
package scan
