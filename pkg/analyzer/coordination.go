package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// DetectCoordination groups near-simultaneous changes under one registrable
// parent. entries is the cross-domain change log for the last 10 minutes,
// including the target's own current change.
func DetectCoordination(target string, targetIPs []string, entries []types.GlobalChangeEntry) types.CoordinationResult {
	parent := RegistrableParent(target)

	relatedSet := make(map[string]struct{})
	relatedIPs := make(map[string]struct{})
	for _, e := range entries {
		if e.Domain == target || RegistrableParent(e.Domain) != parent {
			continue
		}
		relatedSet[e.Domain] = struct{}{}
		for _, ip := range e.IPs {
			relatedIPs[ip] = struct{}{}
		}
	}

	related := make([]string, 0, len(relatedSet))
	for d := range relatedSet {
		related = append(related, d)
	}
	sort.Strings(related)

	if len(related) == 0 {
		return types.CoordinationResult{
			Analysis: fmt.Sprintf("no sibling changes under %s in the last 10 minutes", parent),
		}
	}

	intersection := 0
	for _, ip := range targetIPs {
		if _, ok := relatedIPs[ip]; ok {
			intersection++
		}
	}
	denom := len(relatedIPs)
	if len(targetIPs) > denom {
		denom = len(targetIPs)
	}
	overlap := 0.0
	if denom > 0 {
		overlap = float64(intersection) / float64(denom)
	}

	score := 0.3*float64(len(related)) + 0.7*overlap
	if score > 1 {
		score = 1
	}

	return types.CoordinationResult{
		IsCoordinated: len(related) >= 2 && score > 0.6,
		Score:         score,
		Analysis: fmt.Sprintf("%d sibling domains under %s changed within 10 minutes, IP overlap %.0f%%",
			len(related), parent, overlap*100),
		RelatedDomains: related,
	}
}

// RegistrableParent returns the last two dot-separated labels of a domain
func RegistrableParent(fqdn string) string {
	labels := strings.Split(fqdn, ".")
	if len(labels) <= 2 {
		return fqdn
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// SynthesizeLB builds the load-balancer result implied by a coordinated
// platform change when single-domain history was too thin to classify.
func SynthesizeLB(coord types.CoordinationResult) types.LBResult {
	return types.LBResult{
		IsLoadBalancer: true,
		Pattern:        types.LBRoundRobin,
		Confidence:     coord.Score,
		Analysis:       coord.Analysis,
	}
}
