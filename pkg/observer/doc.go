/*
Package observer runs the per-domain check that drives the whole system.

One Check is one tick for one domain:

 1. Resolve A and SOA over DoH.
 2. Transport error: emit an error notification, touch nothing, move on.
 3. Authority unreachable: notify once on the transition, record the state.
 4. First successful observation: baseline silently (no notification).
 5. IP set changed: persist the new observation (state, IPs, serial, in that
    order), run the analyzer pipeline, and emit iff the dampening
    calculator allows.
 6. Serial-only change: persist and emit a zone-update notification.

Ordering rules the rest of the system depends on: the notification
timestamp is advanced before the notifier is called (fail-open on notifier
errors, never tight-loop retries), and the cross-domain bucket append
happens before the coordination query so a change correlates with itself.

Checks are independent per domain and hold no shared mutable analyzer
state; the scheduler may run any number of them concurrently.
*/
package observer
