// Package security validates outbound URLs before the gateway fetches them.
//
// The page-insights tool fetches arbitrary prospect pages on behalf of the
// model, which makes it an SSRF vector: a crafted URL could point the gateway
// at private networks or cloud metadata endpoints. The validator blocks those
// targets both statically and at dial time (against DNS rebinding).
package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// URL validates URLs for outbound fetches.
//
// Blocked targets:
//   - Private IP ranges (RFC 1918): 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16
//   - Loopback: 127.0.0.0/8, ::1
//   - Link-local: 169.254.0.0/16, fe80::/10 (covers cloud metadata 169.254.169.254)
//   - Known dangerous hostnames: localhost, metadata.google.internal
type URL struct {
	allowedSchemes map[string]struct{}
	blockedHosts   map[string]struct{}
}

// NewURL creates a URL validator with default settings.
func NewURL() *URL {
	return &URL{
		allowedSchemes: map[string]struct{}{
			"http":  {},
			"https": {},
		},
		blockedHosts: map[string]struct{}{
			"localhost":                {},
			"metadata.google.internal": {},
			"metadata.gce.internal":    {},
			"metadata.internal":        {},
		},
	}
}

// Validate checks if a URL is safe to fetch.
//
// This is static validation only; the resolved addresses are re-checked at
// dial time by SafeClient's transport.
func (v *URL) Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if _, ok := v.allowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("unsupported scheme: %s (allowed: http, https)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty hostname")
	}

	return v.validateHost(host)
}

func (v *URL) validateHost(host string) error {
	if _, blocked := v.blockedHosts[strings.ToLower(host)]; blocked {
		return fmt.Errorf("blocked host: %s", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		return v.checkIP(ip)
	}

	// Hostname (not IP) - DNS resolution check happens in the safe dialer.
	return nil
}

func (v *URL) checkIP(ip net.IP) error {
	// Normalize IPv6-mapped IPv4 addresses (::ffff:127.0.0.1 -> 127.0.0.1).
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("loopback address not allowed: %s", ip)
	case ip.IsPrivate():
		return fmt.Errorf("private IP not allowed: %s", ip)
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return fmt.Errorf("link-local address not allowed: %s", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified address not allowed: %s", ip)
	}

	return nil
}

// SafeClient returns an HTTP client whose transport re-validates every
// resolved IP before connecting, and whose redirect policy re-validates
// each hop (capped at 10 redirects).
func (v *URL) SafeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         v.safeDialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return v.Validate(req.URL.String())
		},
	}
}

// safeDialContext validates resolved IPs before connecting, preventing SSRF
// via DNS rebinding.
func (v *URL) safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		port = ""
	}

	if ip := net.ParseIP(host); ip != nil {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("SSRF blocked: %w", err)
		}
		return (&net.Dialer{}).DialContext(ctx, network, addr)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed: %w", err)
	}

	for _, ip := range ips {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("SSRF blocked (resolved %s -> %s): %w", host, ip, err)
		}
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses resolved for %s", host)
	}

	// Connect to the first checked IP rather than re-resolving, so the
	// address that was validated is the address that is dialed.
	targetAddr := ips[0].String()
	if port != "" {
		targetAddr = net.JoinHostPort(targetAddr, port)
	}
	return (&net.Dialer{}).DialContext(ctx, network, targetAddr)
}
