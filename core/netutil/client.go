// Package netutil builds HTTP clients for outbound API calls.
package netutil

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultDialTimeout     = 5 * time.Second
	defaultTLSHandshake    = 5 * time.Second
	defaultIdleConnTimeout = 30 * time.Second
	defaultResponseTimeout = 5 * time.Second
	defaultClientTimeout   = 30 * time.Second
	defaultKeepAlive       = 30 * time.Second
)

// ClientOptions tune NewClient. Zero values select defaults; Retries of zero
// disables the retry transport.
type ClientOptions struct {
	Timeout         time.Duration
	ResponseTimeout time.Duration
	Retries         int
	Backoff         time.Duration
}

// NewTransport returns a pooled transport with conservative timeouts.
func NewTransport(responseTimeout time.Duration) *http.Transport {
	if responseTimeout <= 0 {
		responseTimeout = defaultResponseTimeout
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: responseTimeout,
		ExpectContinueTimeout: time.Second,
	}
}

// NewClient builds an http.Client with its own transport.
func NewClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	var rt http.RoundTripper = NewTransport(opts.ResponseTimeout)
	if opts.Retries > 0 {
		rt = &retryTransport{base: rt, maxRetries: opts.Retries, backoff: opts.Backoff}
	}
	return &http.Client{Timeout: timeout, Transport: rt}
}
