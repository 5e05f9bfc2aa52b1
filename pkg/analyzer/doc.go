/*
Package analyzer implements the intelligent change analyzer: the pipeline
that classifies each observed DNS change and decides whether it deserves a
notification.

# Pipeline

The analyzer is a one-way DAG evaluated per change:

	┌────────────┐  ┌─────────────┐
	│ DetectCDN  │  │AnalyzeTempo-│
	│ (range db) │  │ral (clock)  │
	└─────┬──────┘  └──────┬──────┘
	      │                │
	      │        ┌───────▼────────┐   ┌──────────────────┐
	      │        │ ClassifyChange │   │AnalyzeLoadBalancer│
	      │        │ (type+severity)│   │ (history window)  │
	      │        └───────┬────────┘   └────────┬─────────┘
	      │                │                     │
	      │        ┌───────▼─────────────────────▼──┐
	      └───────▶│            Decide               │◀── DetectCoordination
	               │ (dampening interval + verdict)  │    (global bucket)
	               └─────────────────────────────────┘

Every stage is a stateless function of its inputs; the only shared data is
the read-only CDN range table. There is no back-edge, so the stages can be
tested in isolation and the whole pipeline runs per-domain with no locking.

# Dampening

Decide starts from a TTL-derived base interval, applies one multiplicative
factor per matching signal (CDN confidence, load-balancer pattern, time
context, severity, recent change rate), and clamps the product to
[1 minute, 4 hours]. Two overrides sit on top:

  - Oscillation: an IP signature that already appeared in the last 24 hours
    replaces the computed interval with 2 hours (patterned churn) or 30
    minutes (plain flapping).
  - Auto-suppression: at or above the change-rate threshold (3 per hour when
    a load balancer is detected, 5 otherwise) the next emitted notification
    becomes an auto-suppression notice and opens a 4-hour quiet window.

The scoring is hand-tuned and deterministic so an operator can always
reconstruct why a change did or did not notify.
*/
package analyzer
