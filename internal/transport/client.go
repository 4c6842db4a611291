package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// maxRedirects is the number of redirects followed before the last response
// is returned as is.
const maxRedirects = 10

// dialTimeout bounds connection setup for direct connections when no overall
// request timeout is configured.
const dialTimeout = 30 * time.Second

// Options configures NewHTTPClient.
type Options struct {
	// ProxyAddress is a SOCKS5 proxy in "host:port" format. Empty means direct.
	ProxyAddress string

	// Timeout is the overall request timeout. 0 means no timeout.
	Timeout time.Duration

	// MaxConnsPerHost sizes the idle connection pool, usually the thread count.
	MaxConnsPerHost int

	// Insecure disables TLS certificate verification.
	Insecure bool

	// Cookie is a raw Cookie header value added to every request.
	Cookie string

	// UserAgent replaces Go's default User-Agent when set.
	UserAgent string

	// Headers are added to every request, replacing existing values.
	Headers map[string]string
}

// NewHTTPClient creates the client used for probing.
//
// Redirects are followed up to 10 hops. No cookie jar is attached: every
// probe is independent, and only the configured cookie is sent.
func NewHTTPClient(opts Options) (*http.Client, error) {
	base, err := newTransport(opts)
	if err != nil {
		return nil, err
	}

	var rt http.RoundTripper = base
	if opts.Cookie != "" || opts.UserAgent != "" || len(opts.Headers) > 0 {
		rt = &headerInjectingTransport{
			base:      base,
			cookie:    opts.Cookie,
			userAgent: opts.UserAgent,
			headers:   opts.Headers,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// newTransport builds the base transport, dialing directly or through SOCKS5.
func newTransport(opts Options) (*http.Transport, error) {
	maxConns := opts.MaxConnsPerHost
	if maxConns <= 0 {
		maxConns = 10
	}

	transport := &http.Transport{
		Proxy:               nil,
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.Insecure, //nolint:gosec // Opt-in via --insecure
		},
	}

	if opts.ProxyAddress == "" {
		transport.DialContext = (&net.Dialer{Timeout: dialTimeout}).DialContext
		return transport, nil
	}

	dialer, err := NewSOCKS5Dialer(opts.ProxyAddress)
	if err != nil {
		return nil, err
	}
	transport.DialContext = dialer.DialContext

	return transport, nil
}

// NewSOCKS5Dialer validates addr and returns a context-aware SOCKS5 dialer.
func NewSOCKS5Dialer(addr string) (proxy.ContextDialer, error) {
	if !IsValidProxyAddress(addr) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, addr)
	}

	// Tor and most local proxies accept unauthenticated clients.
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", addr)
	}
	return contextDialer, nil
}

// IsValidProxyAddress reports whether address is "host:port" with a port in 1..65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// headerInjectingTransport wraps an http.RoundTripper to inject the
// configured cookie, User-Agent and headers into every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	cookie    string
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
