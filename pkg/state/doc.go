/*
Package state provides the typed repository over the key/value store for
per-domain monitoring state, notification tracking, and the cross-domain
change bucket.

# Keyspace

	dns:<fqdn>:state            "resolved" | "no_authority"
	dns:<fqdn>:ips              comma-separated sorted IPs
	dns:<fqdn>:serial           opaque SOA serial
	notify:<fqdn>:last          decimal milliseconds since epoch
	notify:<fqdn>:recent_ips    JSON [{"ips":[...],"timestamp":<ms>}], ≤10
	dynamic:domains             JSON array of FQDNs
	global:dns_changes:<slot>   JSON array of {"domain","ips","timestamp"}
	system:version_id           opaque deployment id
	bot:status                  JSON heartbeat record

notify: keys carry a 7-day TTL, global: buckets a 1-hour TTL; everything else
is durable until explicit delete. <slot> is floor(ms / 300000), giving
5-minute-wide buckets for coordinated-change correlation.

# Integrity

Corrupt stored values never fail a tick: they are logged at warn level and
read as absent, matching the recover-and-continue policy of the observer.
*/
package state
