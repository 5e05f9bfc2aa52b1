/*
Package scheduler drives the periodic scan over every monitored domain.

Each tick enumerates the union of static (boot-time) and dynamic
(user-added) domains and fans the checks out through a bounded worker pool.
Per-domain checks are independent, so the pool bound (default 16) is purely
a resource cap; two ticks never overlap because the next tick waits on the
ticker after the previous pass settles.

On startup the scheduler compares the host-provided deployment id with the
stored one and emits a single NewDeployment notification on change, before
any checks begin. After each completed pass over a non-empty domain set it
writes the bot-status heartbeat; each ticker-driven pass (not the immediate
first one) is followed by the store's expiry sweep.
*/
package scheduler
