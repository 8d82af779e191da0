package network

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
)

// DefaultDialTimeout bounds connection setup; transfers themselves are not
// limited since archives can be large.
const DefaultDialTimeout = 30 * time.Second

// ConfigureTransport restricts tr to TLS 1.2+ and makes it honour the proxy
// environment variables. Root CAs already set on tr are kept.
func ConfigureTransport(tr *http.Transport) {
	prev := tr.TLSClientConfig
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
	if prev != nil {
		tlsConfig.RootCAs = prev.RootCAs
	}

	tr.Proxy = http.ProxyFromEnvironment
	tr.DialContext = (&net.Dialer{
		Timeout:   DefaultDialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	tr.TLSClientConfig = tlsConfig
	tr.TLSHandshakeTimeout = DefaultDialTimeout
	tr.ResponseHeaderTimeout = 5 * time.Minute
	tr.ForceAttemptHTTP2 = true
	tr.MaxIdleConns = 4
	tr.IdleConnTimeout = 90 * time.Second
}

// NewSecureHTTPClient returns an AWS buildable client whose transport is set
// up by ConfigureTransport. Later transport options, such as a custom CA
// bundle, are applied on top of it.
func NewSecureHTTPClient() *awshttp.BuildableClient {
	return awshttp.NewBuildableClient().WithTransportOptions(ConfigureTransport)
}
