package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"h12.io/socks"

	"github.com/otoproxy/otoproxy/internal/model"
)

// BuildClient returns an http.Client whose requests are tunneled through
// the candidate, dispatching on its protocol hint.
func BuildClient(c model.Candidate, timeout time.Duration) (*http.Client, error) {
	switch c.Protocol {
	case model.ProtocolSOCKS5:
		return buildSOCKS5Client(c, timeout)
	case model.ProtocolSOCKS4:
		return buildSOCKS4Client(c, timeout)
	default:
		return buildHTTPClient(c, timeout)
	}
}

// buildHTTPClient builds a client that uses the candidate as a plain
// HTTP forward proxy.
func buildHTTPClient(c model.Candidate, timeout time.Duration) (*http.Client, error) {
	u := &url.URL{
		Scheme: "http",
		Host:   c.Key(),
	}

	transport := &http.Transport{
		Proxy: http.ProxyURL(u),
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// buildSOCKS5Client routes the probe request's TCP connection through a
// SOCKS5 proxy via the x/net dialer.
func buildSOCKS5Client(c model.Candidate, timeout time.Duration) (*http.Client, error) {
	dialer, err := proxy.SOCKS5("tcp", c.Key(), nil, &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	// proxy.SOCKS5 returns a context-aware dialer in practice; fall back
	// to the plain Dial if that ever stops holding.
	dialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return nil, errors.New("socks5 dialer is not context-aware")
	}

	transport := &http.Transport{
		DialContext:           dialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// buildSOCKS4Client routes through a SOCKS4 proxy. x/net/proxy has no
// SOCKS4 support, so this uses the h12.io dialer.
func buildSOCKS4Client(c model.Candidate, timeout time.Duration) (*http.Client, error) {
	dial := socks.Dial(fmt.Sprintf("socks4://%s?timeout=%s", c.Key(), timeout))

	transport := &http.Transport{
		Dial:                  dial,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
