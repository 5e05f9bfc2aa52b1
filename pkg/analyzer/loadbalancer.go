package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/driftwatch/driftwatch/pkg/types"
)

const lbWindow = time.Hour

// AnalyzeLoadBalancer inspects the recent observation history for rotation
// behavior. Only entries within the last hour qualify; fewer than 3 of them
// and the pattern is unknown.
func AnalyzeLoadBalancer(history []types.IPHistoryEntry, now time.Time) types.LBResult {
	cutoff := now.Add(-lbWindow)
	var recent []types.IPHistoryEntry
	for _, e := range history {
		if !e.At().Before(cutoff) {
			recent = append(recent, e)
		}
	}

	if len(recent) < 3 {
		return types.LBResult{
			Pattern:  types.LBUnknown,
			Analysis: fmt.Sprintf("insufficient history: %d observations in the last hour", len(recent)),
		}
	}

	n := len(recent)
	freq := make(map[string]int)
	for _, e := range recent {
		freq[signature(e.IPs)]++
	}
	u := len(freq)

	// round robin: frequent flips between a small set of signatures
	if n >= 5 && u >= 2 && u <= 3 {
		return types.LBResult{
			IsLoadBalancer: true,
			Pattern:        types.LBRoundRobin,
			Confidence:     0.8,
			Analysis:       fmt.Sprintf("round-robin rotation: %d observations cycling through %d IP sets", n, u),
		}
	}

	// weighted: one signature dominates the others. A single signature has
	// no second-place frequency to compare, so it stays unknown.
	if u >= 2 && u <= 4 {
		counts := make([]int, 0, u)
		for _, c := range freq {
			counts = append(counts, c)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(counts)))
		if float64(counts[0]) > 1.5*float64(counts[1]) {
			return types.LBResult{
				IsLoadBalancer: true,
				Pattern:        types.LBWeighted,
				Confidence:     0.7,
				Analysis:       fmt.Sprintf("weighted distribution: dominant IP set seen %d of %d times across %d sets", counts[0], n, u),
			}
		}
	}

	// failover: a long silence followed by a change between few signatures
	if u <= 2 {
		var gaps []time.Duration
		for i := 1; i < n; i++ {
			gaps = append(gaps, recent[i].At().Sub(recent[i-1].At()))
		}
		if len(gaps) > 0 {
			var total time.Duration
			for _, g := range gaps {
				total += g
			}
			mean := total / time.Duration(len(gaps))
			for _, g := range gaps {
				if mean > 0 && g > 3*mean {
					return types.LBResult{
						IsLoadBalancer: true,
						Pattern:        types.LBFailover,
						Confidence:     0.6,
						Analysis:       fmt.Sprintf("failover signature: gap of %s against a mean of %s across %d observations", g.Round(time.Second), mean.Round(time.Second), n),
					}
				}
			}
		}
	}

	return types.LBResult{
		Pattern:  types.LBUnknown,
		Analysis: fmt.Sprintf("no recognized pattern: %d observations, %d distinct IP sets", n, u),
	}
}

// signature is the canonical identity of an IP set
func signature(ips []string) string {
	sorted := append([]string(nil), ips...)
	types.SortIPs(sorted)
	return strings.Join(sorted, ",")
}
