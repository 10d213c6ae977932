/*
Package csvout writes the durable scan output: one CSV file per network
operator, a fixed header row followed by one row per accepted probe verdict
in completion order.

	ip,port,data_center,region,city,latency
	203.0.113.7,443,FRA,Europe,Frankfurt,12.34 ms

Every row is flushed as it is written. The scan holds only in-flight probes
in memory, so the sink must not be the place where results pile up either;
on a crash the file already contains everything reported so far.
*/
package csvout
