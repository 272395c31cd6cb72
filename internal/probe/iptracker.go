package probe

import (
	"context"
	"net"
	"sync"
)

// IPTracker remembers the remote IP each dialed host:port connected to.
// Pooled connections keep the IP recorded when they were dialed.
type IPTracker struct {
	ips sync.Map // host:port -> IP string
}

// NewIPTracker creates a new IPTracker
func NewIPTracker() *IPTracker {
	return &IPTracker{}
}

// GetIP returns the IP recorded for addr (host:port), or "" if none was dialed
func (t *IPTracker) GetIP(addr string) string {
	if val, ok := t.ips.Load(addr); ok {
		return val.(string)
	}
	return ""
}

// DialContext wraps dialer so every successful connection records its remote IP
func (t *IPTracker) DialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		if remoteAddr := conn.RemoteAddr(); remoteAddr != nil {
			if ip, _, err := net.SplitHostPort(remoteAddr.String()); err == nil {
				t.ips.Store(addr, ip)
			}
		}
		return conn, nil
	}
}
