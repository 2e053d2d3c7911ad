package security

import (
	"crypto/tls"
	"fmt"
)

// ServerTLSConfig builds the TLS configuration for the API listener. TLS 1.3
// only; older clients are not a concern for an internal service.
func ServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate and key: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}, nil
}
