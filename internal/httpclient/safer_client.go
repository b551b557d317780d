// Package httpclient builds the HTTP client used to fetch remote blacklists.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/callsheet/errors"
)

const defaultMaxRedirects = 10

// Options controls the guard rails of New
type Options struct {
	Timeout        time.Duration
	MaxRedirects   int      // default 10
	AllowPrivate   bool     // permit loopback, link-local and RFC 1918 hosts
	AllowedSchemes []string // default http, https
}

// New returns an *http.Client that refuses private and loopback addresses,
// both by hostname and by resolved IP, and re-checks every redirect target.
// Sheet export links redirect several times, so redirects are followed.
func New(opts Options) *http.Client {
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if len(opts.AllowedSchemes) == 0 {
		opts.AllowedSchemes = []string{"http", "https"}
	}

	client := &http.Client{Timeout: opts.Timeout}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= opts.MaxRedirects {
			return errors.Newf("stopped after %d redirects", opts.MaxRedirects)
		}
		if err := ValidateURL(req.URL, opts); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	if opts.AllowPrivate {
		return client
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	client.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid address")
			}

			ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve host %q", host)
			}
			for _, ip := range ips {
				if IsPrivateIP(ip) {
					return nil, errors.Newf("private IP address blocked: %s", ip)
				}
			}

			return dialer.DialContext(ctx, network, addr)
		},
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return client
}

// ValidateURL checks scheme and host of u against opts before any request
func ValidateURL(u *url.URL, opts Options) error {
	schemes := opts.AllowedSchemes
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}

	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, s := range schemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Newf("scheme %q not allowed (allowed: %v)", scheme, schemes)
	}

	// http://evil.com@localhost/ style confusion
	if u.User != nil {
		return errors.New("URL must not carry credentials")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("URL missing hostname")
	}

	if !opts.AllowPrivate {
		if isLocalhost(hostname) {
			return errors.New("localhost access blocked")
		}
		if ip := net.ParseIP(hostname); ip != nil && IsPrivateIP(ip) {
			return errors.Newf("private IP address blocked: %s", hostname)
		}
	}
	return nil
}

var privateBlocks = []net.IPNet{
	{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},
	{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)},
	{IP: net.IPv4(127, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(169, 254, 0, 0), Mask: net.CIDRMask(16, 32)},
	{IP: net.IPv4(0, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(224, 0, 0, 0), Mask: net.CIDRMask(4, 32)},
	{IP: net.IPv4(240, 0, 0, 0), Mask: net.CIDRMask(4, 32)},
}

// IsPrivateIP reports whether ip is in a private or special-use range
func IsPrivateIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		for _, block := range privateBlocks {
			if block.Contains(ip4) {
				return true
			}
		}
		return false
	}

	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	// fc00::/7 unique local
	if len(ip) == net.IPv6len && ip[0]&0xfe == 0xfc {
		return true
	}
	return false
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}
