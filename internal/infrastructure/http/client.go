package http

import (
	"net/http"
	"time"
)

// ClientConfig holds configuration for HTTP clients.
type ClientConfig struct {
	Timeout         time.Duration
	MaxConnsPerHost int
	Transport       http.RoundTripper
}

// NewClient creates an HTTP client with a pooled transport. A nil config
// gives a 30s timeout and 50 connections per host.
func NewClient(config *ClientConfig) *http.Client {
	if config == nil {
		config = &ClientConfig{}
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := config.Transport
	if transport == nil {
		transport = pooledTransport(config.MaxConnsPerHost, timeout)
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func pooledTransport(maxConnsPerHost int, timeout time.Duration) *http.Transport {
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = 50
	}
	// Header timeout never shorter than the client timeout.
	headerTimeout := timeout
	if headerTimeout < 60*time.Second {
		headerTimeout = 60 * time.Second
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: time.Second,
	}
}
