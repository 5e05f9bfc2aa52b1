/*
Package metrics defines the Prometheus collectors for Driftwatch.

Counters track checks, resolver failures, detected changes by type, and
notification outcomes (emitted, suppressed, failed); gauges and histograms
cover the monitoring set size and scan latencies. The collectors register
on the default registry in init and are served through promhttp by pkg/api.
*/
package metrics
