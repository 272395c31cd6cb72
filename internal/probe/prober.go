package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"chainHTTP/internal/config"
	"chainHTTP/pkg/version"
)

// HopResult is the raw outcome of probing a single URL
type HopResult struct {
	URL        string
	StatusCode int
	// Headers has lowercase names; for repeated headers the last value wins
	Headers   map[string]string
	Body      string
	Truncated bool
	LatencyMs int64
	Protocol  string
	// IP is the remote address the hop connected to, when known
	IP string
	// Raw dumps are only filled when response storage is enabled
	RawRequest  string
	RawResponse string
}

// Prober issues single-hop probes
type Prober struct {
	client *Client
	config *config.Config
}

// NewProber creates a new Prober instance
func NewProber(cfg *config.Config) *Prober {
	return &Prober{
		client: NewClient(cfg),
		config: cfg,
	}
}

// Close cleans up all resources used by the prober
func (p *Prober) Close() error {
	return p.client.Close()
}

// Probe sends one request to target without following redirects. Any HTTP
// response, whatever its status, is a result; only transport failures
// (DNS, refused connections, TLS, timeouts) return an *Error.
func (p *Prober) Probe(ctx context.Context, target string) (*HopResult, error) {
	parsedURL, err := url.Parse(target)
	if err != nil {
		return nil, &Error{Kind: KindConnection, URL: target, Err: err}
	}

	if err := p.waitForLimiter(ctx, parsedURL.Hostname()); err != nil {
		return nil, &Error{Kind: KindTimeout, URL: target, Err: err}
	}

	hopCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hopCtx, p.config.Method, target, nil)
	if err != nil {
		return nil, &Error{Kind: KindConnection, URL: target, Err: err}
	}
	req.Header.Set("User-Agent", p.userAgent())
	req.Header.Set("Accept", "*/*")

	startTime := time.Now()
	resp, err := p.client.HTTPClient(parsedURL.Scheme).Do(req)
	if err != nil {
		elapsed := time.Since(startTime)
		if p.config.DebugLogger != nil {
			p.config.DebugLogger.Error("hop request failed",
				"url", target,
				"error", err,
				"duration", elapsed,
			)
		}
		return nil, newError(target, err)
	}
	defer resp.Body.Close()

	// Read one byte past the cap to detect truncation
	body, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxBodySize+1))
	elapsed := time.Since(startTime)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, newError(target, fmt.Errorf("reading body: %w", err))
	}

	result := &HopResult{
		URL:        target,
		StatusCode: resp.StatusCode,
		Headers:    normalizeHeaders(resp.Header),
		LatencyMs:  elapsed.Milliseconds(),
		Protocol:   resp.Proto,
		IP:         p.client.ipTracker.GetIP(dialAddr(parsedURL)),
	}
	if int64(len(body)) > p.config.MaxBodySize {
		body = body[:p.config.MaxBodySize]
		result.Truncated = true
		p.config.Logger.Warn("response body truncated",
			"url", target,
			"max_size", p.config.MaxBodySize,
		)
	}
	result.Body = string(body)

	if p.config.StoreResponse {
		result.RawRequest = formatRawRequest(req)
		result.RawResponse = formatRawResponse(resp)
	}

	if p.config.DebugLogger != nil {
		p.config.DebugLogger.Info("hop probed",
			"url", target,
			"method", req.Method,
			"status_code", resp.StatusCode,
			"protocol", resp.Proto,
			"location", result.Headers["location"],
			"duration", elapsed,
		)
	}

	return result, nil
}

// waitForLimiter blocks until host's limiter admits a request or
// RateLimitTimeout expires.
func (p *Prober) waitForLimiter(ctx context.Context, host string) error {
	limiter := p.client.GetLimiter(host)

	waitCtx, cancel := context.WithTimeout(ctx, p.config.RateLimitTimeout)
	defer cancel()

	if err := limiter.Wait(waitCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || waitCtx.Err() != nil {
			return fmt.Errorf("rate limit wait timeout after %s: %w", p.config.RateLimitTimeout, context.DeadlineExceeded)
		}
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// dialAddr is the host:port the transport dials for u
func dialAddr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "80"
		if strings.EqualFold(u.Scheme, "https") {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func (p *Prober) userAgent() string {
	if p.config.UserAgent != "" {
		return p.config.UserAgent
	}
	return version.UserAgent()
}

// normalizeHeaders lowercases header names and keeps the last value of
// repeated headers
func normalizeHeaders(headers http.Header) map[string]string {
	normalized := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) == 0 {
			continue
		}
		normalized[strings.ToLower(k)] = v[len(v)-1]
	}
	return normalized
}

// formatRawRequest formats an HTTP request as a raw string
func formatRawRequest(req *http.Request) string {
	var builder strings.Builder

	path := req.URL.RequestURI()
	fmt.Fprintf(&builder, "%s %s HTTP/1.1\n", req.Method, path)
	fmt.Fprintf(&builder, "Host: %s\n", req.URL.Host)

	writeSortedHeaders(&builder, req.Header)
	return builder.String()
}

// formatRawResponse formats HTTP response headers as a raw string
func formatRawResponse(resp *http.Response) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%s %s\n", resp.Proto, resp.Status)
	writeSortedHeaders(&builder, resp.Header)
	return builder.String()
}

func writeSortedHeaders(builder *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		if k != "Host" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(builder, "%s: %s\n", k, v)
		}
	}
}
