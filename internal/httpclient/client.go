// Package httpclient builds the tuned HTTP client shared by all API calls
// and uploads.
package httpclient

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"os"
	"time"

	"golang.org/x/net/http2"

	"github.com/shopstack/shopsync/internal/config"
)

const (
	dialTimeout         = 30 * time.Second
	dialKeepAlive       = 30 * time.Second
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 30 * time.Second
)

// headerRoundTripper injects the fixed tunnel header on every request.
// The tunneling proxy in front of the API rejects requests without it.
type headerRoundTripper struct {
	base  nethttp.RoundTripper
	name  string
	value string
}

func (h headerRoundTripper) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	if h.name != "" {
		// Clone before mutating; RoundTrippers must not modify the request.
		req = req.Clone(req.Context())
		req.Header.Set(h.name, h.value)
	}
	return h.base.RoundTrip(req)
}

// New creates an HTTP client configured for the sync workload: pooled
// connections, HTTP/2 where available, proxy-from-environment in "system"
// mode, and the tunnel header applied to every request.
//
// No overall client timeout is set; callers bound each operation with a
// context so a large CSV upload is never cut off mid-transfer.
func New(cfg *config.Config) (*nethttp.Client, error) {
	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	switch cfg.ProxyMode {
	case "no-proxy":
		transport.Proxy = nil
	default:
		transport.Proxy = nethttp.ProxyFromEnvironment
	}

	_ = http2.ConfigureTransport(transport)

	// HTTP/2 multiplexing misbehaves through some proxies; allow forcing
	// HTTP/1.1 the same way curl users would.
	if os.Getenv("DISABLE_HTTP2") == "true" {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	return &nethttp.Client{
		Transport: headerRoundTripper{
			base:  transport,
			name:  cfg.TunnelHeader,
			value: cfg.TunnelHeaderValue,
		},
	}, nil
}
