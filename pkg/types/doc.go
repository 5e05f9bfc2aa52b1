/*
Package types defines the core data structures used throughout Driftwatch.

This package contains the domain model shared by every other package: the
per-domain monitored state, resolver results, the analyzer's intermediate
verdicts (CDN, load balancer, temporal, coordination), and the notification
shape handed to transports.

All enums are typed string constants so stored values stay readable in the
database and in logs. IP sets are kept in canonical form (sorted ascending
lexicographically) everywhere; SortIPs is the one way to get there.
*/
package types
