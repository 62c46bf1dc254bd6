package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ServerOptions configures ServerConfig.
type ServerOptions struct {
	// CertFile and KeyFile name a PEM key pair. When both are empty a
	// self-signed certificate is generated.
	CertFile string
	KeyFile  string

	// ExportCertTo, if set, receives the generated certificate's PEM.
	ExportCertTo string

	// NextProtos is the ALPN list, e.g. "h2" or "h3".
	NextProtos []string

	Logger *slog.Logger
}

// ServerConfig returns a server-side TLS configuration.
func ServerConfig(opts ServerOptions) (*tls.Config, error) {
	var cert tls.Certificate

	switch {
	case opts.CertFile != "" && opts.KeyFile != "":
		c, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load key pair: %w", err)
		}
		cert = c
	case opts.CertFile != "" || opts.KeyFile != "":
		return nil, errors.New("both certificate and key files are required")
	default:
		gen, err := GenerateSelfSignedCert(nil)
		if err != nil {
			return nil, err
		}
		if opts.ExportCertTo != "" {
			if err := gen.WriteCertPEM(opts.ExportCertTo); err != nil {
				return nil, err
			}
		}
		if opts.Logger != nil {
			opts.Logger.Info("using self-signed certificate",
				"expires", gen.Certificate.NotAfter,
				"exported", opts.ExportCertTo)
		}
		c, err := gen.TLSCertificate()
		if err != nil {
			return nil, err
		}
		cert = c
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   opts.NextProtos,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientOptions configures ClientConfig.
type ClientOptions struct {
	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string

	// Insecure skips server certificate verification.
	Insecure bool

	ServerName string
	NextProtos []string
}

// ClientConfig returns a client-side TLS configuration.
func ClientConfig(opts ClientOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         opts.ServerName,
		NextProtos:         opts.NextProtos,
		InsecureSkipVerify: opts.Insecure, //nolint:gosec // explicit --insecure flag
		MinVersion:         tls.VersionTLS12,
	}

	if opts.CAFile != "" {
		pemData, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, fmt.Errorf("no certificates found in %s", opts.CAFile)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
