package analyzer

import (
	"github.com/driftwatch/driftwatch/pkg/types"
)

// ipRange is one provider-owned IPv4 range, bounds inclusive
type ipRange struct {
	provider string
	start    uint32
	end      uint32
}

// cdnRanges is the curated provider range database. Read-only after init;
// shared freely across goroutines. The literals are public edge ranges that
// compatibility tests assert against.
var cdnRanges = []ipRange{
	// Cloudflare
	{"Cloudflare", mustIP("104.16.0.0"), mustIP("104.31.255.255")},
	{"Cloudflare", mustIP("172.64.0.0"), mustIP("172.71.255.255")},
	{"Cloudflare", mustIP("108.162.192.0"), mustIP("108.162.255.255")},
	{"Cloudflare", mustIP("190.93.240.0"), mustIP("190.93.255.255")},
	{"Cloudflare", mustIP("188.114.96.0"), mustIP("188.114.127.255")},
	// AWS CloudFront / ELB
	{"AWS", mustIP("13.32.0.0"), mustIP("13.35.255.255")},
	{"AWS", mustIP("13.224.0.0"), mustIP("13.227.255.255")},
	{"AWS", mustIP("13.249.0.0"), mustIP("13.249.255.255")},
	{"AWS", mustIP("52.84.0.0"), mustIP("52.85.255.255")},
	{"AWS", mustIP("54.230.0.0"), mustIP("54.239.255.255")},
	{"AWS", mustIP("204.246.164.0"), mustIP("204.246.191.255")},
	{"AWS", mustIP("205.251.192.0"), mustIP("205.251.255.255")},
	// Fastly
	{"Fastly", mustIP("23.235.32.0"), mustIP("23.235.63.255")},
	{"Fastly", mustIP("151.101.0.0"), mustIP("151.101.255.255")},
	{"Fastly", mustIP("199.232.0.0"), mustIP("199.232.255.255")},
	// Google
	{"Google", mustIP("35.186.0.0"), mustIP("35.191.255.255")},
	{"Google", mustIP("130.211.0.0"), mustIP("130.211.255.255")},
	{"Google", mustIP("35.244.0.0"), mustIP("35.247.255.255")},
	// Azure
	{"Azure", mustIP("40.90.0.0"), mustIP("40.91.255.255")},
	{"Azure", mustIP("13.107.42.0"), mustIP("13.107.43.255")},
	{"Azure", mustIP("204.79.197.0"), mustIP("204.79.197.255")},
	// KeyCDN
	{"KeyCDN", mustIP("119.81.0.0"), mustIP("119.81.255.255")},
	// StackPath
	{"StackPath", mustIP("94.31.0.0"), mustIP("94.31.255.255")},
	// Imperva
	{"Imperva", mustIP("149.126.72.0"), mustIP("149.126.79.255")},
	{"Imperva", mustIP("185.11.124.0"), mustIP("185.11.127.255")},
}

// DetectCDN classifies an IP set against the provider range database.
// Confidence is the fraction of input IPs inside any known range; the
// provider is named only when that fraction exceeds one half.
func DetectCDN(ips []string) types.CDNResult {
	if len(ips) == 0 {
		return types.CDNResult{}
	}

	matches := 0
	firstProvider := ""
	for _, ip := range ips {
		n, ok := parseIPv4(ip)
		if !ok {
			continue
		}
		for _, r := range cdnRanges {
			if n >= r.start && n <= r.end {
				matches++
				if firstProvider == "" {
					firstProvider = r.provider
				}
				break
			}
		}
	}

	confidence := float64(matches) / float64(len(ips))
	result := types.CDNResult{
		Confidence: confidence,
		IsAnyCDN:   confidence > 0,
	}
	if confidence > 0.5 {
		result.Provider = firstProvider
	}
	return result
}

// parseIPv4 converts a dotted-quad string to its 32-bit integer form
func parseIPv4(s string) (uint32, bool) {
	var n uint32
	octet := uint32(0)
	digits := 0
	dots := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			octet = octet*10 + uint32(c-'0')
			digits++
			if digits > 3 || octet > 255 {
				return 0, false
			}
		case c == '.':
			if digits == 0 {
				return 0, false
			}
			n = n<<8 | octet
			octet = 0
			digits = 0
			dots++
			if dots > 3 {
				return 0, false
			}
		default:
			return 0, false
		}
	}
	if dots != 3 || digits == 0 {
		return 0, false
	}
	return n<<8 | octet, true
}

func mustIP(s string) uint32 {
	n, ok := parseIPv4(s)
	if !ok {
		panic("bad range literal: " + s)
	}
	return n
}
