/*
Package resolver queries a recursive DNS-over-HTTPS endpoint for A and SOA
records.

Each Resolve performs two independent DoH JSON queries (SOA, then A) against
the configured endpoint and combines the answers into a single ResolveResult.
Outbound queries share a token-bucket rate limiter and a 5-second deadline.

Error semantics follow the observer's needs: network failures, non-200 HTTP
responses, and malformed bodies surface as *TransportError; a DoH Status
other than 0 (NXDOMAIN, SERVFAIL, ...) is data, not an error. An authority
outage is signaled in-band through NoAuthority, detected by substring match
on the response comments.
*/
package resolver
