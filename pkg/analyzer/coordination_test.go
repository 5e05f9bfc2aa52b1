package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/driftwatch/driftwatch/pkg/types"
)

func globalEntry(domain string, at time.Time, ips ...string) types.GlobalChangeEntry {
	return types.GlobalChangeEntry{Domain: domain, IPs: ips, Timestamp: at.UnixMilli()}
}

func TestRegistrableParent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"api.example.com", "example.com"},
		{"a.b.c.example.com", "example.com"},
		{"example.com", "example.com"},
		{"localhost", "localhost"},
	}
	for _, tt := range tests {
		if got := RegistrableParent(tt.in); got != tt.want {
			t.Errorf("RegistrableParent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Three siblings under one parent moving to overlapping IPs within the
// window must correlate
func TestDetectCoordinationPlatformChange(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)
	target := "www.example.com"
	targetIPs := []string{"10.0.0.1", "10.0.0.2"}

	entries := []types.GlobalChangeEntry{
		globalEntry(target, now, targetIPs...),
		globalEntry("api.example.com", now.Add(-3*time.Minute), "10.0.0.1", "10.0.0.2"),
		globalEntry("cdn.example.com", now.Add(-6*time.Minute), "10.0.0.1", "10.0.0.3"),
	}

	got := DetectCoordination(target, targetIPs, entries)
	assert.True(t, got.IsCoordinated)
	assert.Greater(t, got.Score, 0.6)
	assert.Equal(t, []string{"api.example.com", "cdn.example.com"}, got.RelatedDomains)
	assert.NotEmpty(t, got.Analysis)
}

// A single sibling is not enough, whatever the overlap
func TestDetectCoordinationSingleSibling(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)
	target := "www.example.com"
	targetIPs := []string{"10.0.0.1"}

	entries := []types.GlobalChangeEntry{
		globalEntry(target, now, targetIPs...),
		globalEntry("api.example.com", now, "10.0.0.1"),
	}

	got := DetectCoordination(target, targetIPs, entries)
	assert.False(t, got.IsCoordinated)
	assert.Equal(t, []string{"api.example.com"}, got.RelatedDomains)
}

// Unrelated parents and the target itself are both excluded
func TestDetectCoordinationFiltering(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)
	target := "www.example.com"
	targetIPs := []string{"10.0.0.1"}

	entries := []types.GlobalChangeEntry{
		globalEntry(target, now, targetIPs...),
		globalEntry("www.other.net", now, "10.0.0.1"),
		globalEntry("api.other.net", now, "10.0.0.1"),
	}

	got := DetectCoordination(target, targetIPs, entries)
	assert.False(t, got.IsCoordinated)
	assert.Empty(t, got.RelatedDomains)
	assert.Zero(t, got.Score)
}

// Two siblings with no IP overlap: 0.3*2 = 0.6 does not clear the bar
func TestDetectCoordinationNeedsOverlap(t *testing.T) {
	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)
	target := "www.example.com"
	targetIPs := []string{"10.0.0.1"}

	entries := []types.GlobalChangeEntry{
		globalEntry("api.example.com", now, "172.16.0.1"),
		globalEntry("cdn.example.com", now, "172.16.0.2"),
	}

	got := DetectCoordination(target, targetIPs, entries)
	assert.False(t, got.IsCoordinated)
	assert.InDelta(t, 0.6, got.Score, 1e-9)
}

func TestSynthesizeLB(t *testing.T) {
	coord := types.CoordinationResult{
		IsCoordinated: true,
		Score:         0.85,
		Analysis:      "3 sibling domains under example.com changed within 10 minutes, IP overlap 70%",
	}
	lb := SynthesizeLB(coord)
	assert.True(t, lb.IsLoadBalancer)
	assert.Equal(t, types.LBRoundRobin, lb.Pattern)
	assert.InDelta(t, 0.85, lb.Confidence, 1e-9)
	assert.Equal(t, coord.Analysis, lb.Analysis)
}
