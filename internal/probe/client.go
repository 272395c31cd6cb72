package probe

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"chainHTTP/internal/config"
)

// Client wraps the HTTP clients used for probing together with per-host rate limiters
type Client struct {
	httpClient  *http.Client // HTTP/1.1 and HTTP/2
	h3Client    *http.Client // nil unless HTTP/3 is enabled
	transport   *http.Transport
	h3Transport *http3.Transport
	ipTracker   *IPTracker
	limiters    map[string]*rate.Limiter
	mu          sync.Mutex
	config      *config.Config
}

// NewClient creates the probing clients. Automatic redirect following is
// disabled on every client: the resolver decides which hop comes next.
func NewClient(cfg *config.Config) *Client {
	tlsConfig := buildTLSConfig(cfg)

	ipTracker := NewIPTracker()
	transport := &http.Transport{
		DialContext: ipTracker.DialContext(&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}),
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
	}
	if _, err := http2.ConfigureTransports(transport); err != nil {
		cfg.Logger.Warn("HTTP/2 unavailable, falling back to HTTP/1.1", "error", err)
	}

	c := &Client{
		httpClient: newHTTPClient(transport, cfg.Timeout),
		transport:  transport,
		ipTracker:  ipTracker,
		limiters:   make(map[string]*rate.Limiter),
		config:     cfg,
	}

	if cfg.HTTP3 {
		c.h3Transport = &http3.Transport{
			TLSClientConfig: tlsConfig.Clone(),
			QUICConfig: &quic.Config{
				HandshakeIdleTimeout: cfg.Timeout,
				MaxIdleTimeout:       30 * time.Second,
			},
		}
		c.h3Client = newHTTPClient(c.h3Transport, cfg.Timeout)
	}

	return c
}

func newHTTPClient(rt http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func buildTLSConfig(cfg *config.Config) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// HTTPClient returns the client for a hop with the given scheme.
// https hops use HTTP/3 when it is enabled.
func (c *Client) HTTPClient(scheme string) *http.Client {
	if c.h3Client != nil && strings.EqualFold(scheme, "https") {
		return c.h3Client
	}
	return c.httpClient
}

// GetLimiter returns the rate limiter for host, creating it on first use
func (c *Client) GetLimiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limiter, exists := c.limiters[host]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(c.config.RateLimit), 1)
	c.limiters[host] = limiter
	return limiter
}

// Close releases idle connections and the QUIC transport
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	if c.h3Transport != nil {
		if err := c.h3Transport.Close(); err != nil {
			return fmt.Errorf("closing HTTP/3 transport: %w", err)
		}
	}
	return nil
}
