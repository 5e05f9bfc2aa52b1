package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/driftwatch/driftwatch/pkg/types"
)

const (
	// DefaultEndpoint is the Cloudflare DoH JSON endpoint
	DefaultEndpoint = "https://1.1.1.1/dns-query"

	defaultTimeout = 5 * time.Second
	userAgent      = "driftwatch/1.0"

	// DoH record type codes
	typeA   = 1
	typeSOA = 6

	noAuthorityMarker = "No Reachable Authority"
)

// TransportError wraps network-level resolution failures so callers can
// distinguish them from protocol-level status codes.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("dns transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Resolver queries a recursive DoH endpoint for A and SOA records
type Resolver struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// Option configures a Resolver
type Option func(*Resolver)

// WithEndpoint overrides the DoH endpoint
func WithEndpoint(endpoint string) Option {
	return func(r *Resolver) { r.endpoint = endpoint }
}

// WithClient overrides the HTTP client
func WithClient(client *http.Client) Option {
	return func(r *Resolver) { r.client = client }
}

// WithRateLimit caps outbound queries per second
func WithRateLimit(qps float64, burst int) Option {
	return func(r *Resolver) { r.limiter = rate.NewLimiter(rate.Limit(qps), burst) }
}

// New creates a resolver against the default Cloudflare endpoint
func New(opts ...Option) *Resolver {
	r := &Resolver{
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		limiter:  rate.NewLimiter(rate.Limit(50), 100),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// dohAnswer is one record in a DoH JSON response
type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

// dohResponse follows the standard DoH JSON contract
type dohResponse struct {
	Status    int         `json:"Status"`
	Answer    []dohAnswer `json:"Answer"`
	Authority []dohAnswer `json:"Authority"`
	Comment   comments    `json:"Comment"`
}

// comments absorbs both string and []string forms of the Comment field
type comments []string

func (c *comments) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*c = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*c = []string{one}
	return nil
}

// Resolve performs the SOA and A queries for fqdn and combines the answers.
// A transport failure on either query surfaces as *TransportError; a DoH
// Status != 0 does not — the caller interprets it.
func (r *Resolver) Resolve(ctx context.Context, fqdn string) (*types.ResolveResult, error) {
	soaResp, err := r.query(ctx, fqdn, "SOA")
	if err != nil {
		return nil, err
	}

	aResp, err := r.query(ctx, fqdn, "A")
	if err != nil {
		return nil, err
	}

	result := &types.ResolveResult{
		Status: aResp.Status,
	}

	for _, ans := range aResp.Answer {
		if ans.Type != typeA {
			continue
		}
		result.ARecords = append(result.ARecords, types.ARecord{IP: ans.Data, TTL: ans.TTL})
	}

	// The SOA may come back in the Answer section (direct query) or the
	// Authority section (referral)
	result.SOA = findSOA(soaResp.Answer)
	if result.SOA == nil {
		result.SOA = findSOA(soaResp.Authority)
	}

	for _, c := range append(soaResp.Comment, aResp.Comment...) {
		result.Comments = append(result.Comments, c)
		if strings.Contains(c, noAuthorityMarker) {
			result.NoAuthority = true
		}
	}

	return result, nil
}

func (r *Resolver) query(ctx context.Context, fqdn, recordType string) (*dohResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Err: err}
	}

	u := fmt.Sprintf("%s?name=%s&type=%s", r.endpoint, url.QueryEscape(fqdn), recordType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	req.Header.Set("Accept", "application/dns-json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Err: fmt.Errorf("doh endpoint returned HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var parsed dohResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("malformed doh response: %w", err)}
	}
	return &parsed, nil
}

// findSOA extracts the first SOA record from a record section.
// SOA data is whitespace-separated:
// "ns.example.com. admin.example.com. serial refresh retry expire minimum"
func findSOA(records []dohAnswer) *types.SOARecord {
	for _, rec := range records {
		if rec.Type != typeSOA {
			continue
		}
		parts := strings.Fields(rec.Data)
		if len(parts) < 7 {
			continue
		}
		soa := &types.SOARecord{
			PrimaryNS:  strings.TrimSuffix(parts[0], "."),
			AdminEmail: adminEmail(parts[1]),
			Serial:     parts[2],
		}
		soa.Refresh, _ = strconv.Atoi(parts[3])
		soa.Retry, _ = strconv.Atoi(parts[4])
		soa.Expire, _ = strconv.Atoi(parts[5])
		soa.MinTTL, _ = strconv.Atoi(parts[6])
		return soa
	}
	return nil
}

// adminEmail converts the SOA RNAME form to a mailbox:
// "admin.example.com." becomes "admin@example.com"
func adminEmail(rname string) string {
	return strings.Replace(strings.TrimSuffix(rname, "."), ".", "@", 1)
}
