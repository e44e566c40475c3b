package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/net/proxy"
)

// ParseProxyURL validates a proxy URL.
// Supported schemes are socks5, socks5h, http and https. The host must
// carry an explicit port between 1 and 65535.
func ParseProxyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxyAddress, err)
	}

	switch u.Scheme {
	case "socks5", "socks5h", "http", "https":
	default:
		return nil, ErrInvalidProxyAddress
	}

	if !isValidProxyAddress(u.Host) {
		return nil, ErrInvalidProxyAddress
	}
	return u, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// isSOCKS reports whether the proxy is dialed through x/net/proxy rather
// than set as an HTTP proxy.
func isSOCKS(u *url.URL) bool {
	return u.Scheme == "socks5" || u.Scheme == "socks5h"
}

// socksTransport returns a transport that dials every connection through
// the SOCKS5 proxy.
func socksTransport(u *url.URL) (*http.Transport, error) {
	dialer, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}
