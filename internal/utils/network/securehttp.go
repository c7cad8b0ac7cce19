package network

import (
	"crypto/tls"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole catalog request. For artifact downloads it
// only bounds the TLS handshake and the wait for response headers.
var DefaultTimeout = 60 * time.Second

func secureTransport() *http.Transport {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,

		// CipherSuites applies only to TLS 1.0–1.2
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		},
	}

	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: DefaultTimeout,
		// Bodies are decoded explicitly by the fetcher.
		DisableCompression: true,
	}
}

// NewSecureHTTPClient returns an http.Client with a custom TLS configuration.
// Callers can reuse this instead of re-defining the TLS settings everywhere.
func NewSecureHTTPClient() *http.Client {
	return &http.Client{
		Transport: secureTransport(),
		Timeout:   DefaultTimeout,
	}
}

// NewDownloadHTTPClient returns a secure client for large transfers. It has
// no overall deadline; a stalled server is caught by the header timeout and
// the transfer is bounded by the request context.
func NewDownloadHTTPClient() *http.Client {
	transport := secureTransport()
	transport.ResponseHeaderTimeout = DefaultTimeout
	return &http.Client{Transport: transport}
}
