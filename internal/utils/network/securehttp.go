package network

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewSecureHTTPClient returns an http.Client with a hardened TLS
// configuration. All remote calls (package search, group probe, mirror
// downloads) share one of these instead of re-defining transport settings.
func NewSecureHTTPClient(timeout time.Duration) *http.Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}

	transport := &http.Transport{
		TLSClientConfig:   tlsConfig,
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
