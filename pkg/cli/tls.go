package cli

import (
	"fmt"
	"log/slog"

	"github.com/punisher1/nt/pkg/cliconfig"
	"github.com/punisher1/nt/pkg/engine"
	"github.com/punisher1/nt/pkg/protocol"
	nttls "github.com/punisher1/nt/pkg/tls"
	"github.com/punisher1/nt/pkg/websocket"
	"github.com/spf13/cobra"
)

// tlsFlags are the TLS options of the WebSocket and HTTP commands.
type tlsFlags struct {
	enabled    bool
	cert       string
	key        string
	exportCert string
	ca         string
	insecure   bool
}

func (t *tlsFlags) addServerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&t.enabled, "tls", false, "Serve TLS (self-signed unless --cert and --key are given)")
	f.StringVar(&t.cert, "cert", "", "PEM certificate file")
	f.StringVar(&t.key, "key", "", "PEM private key file")
	f.StringVar(&t.exportCert, "export-cert", "", "Write the generated self-signed certificate to this file")
}

func (t *tlsFlags) addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&t.enabled, "tls", false, "Use TLS for a bare host:port remote")
	f.StringVar(&t.ca, "ca", "", "PEM CA bundle trusted in addition to the system roots")
	f.BoolVar(&t.insecure, "insecure", false, "Skip server certificate verification")
}

// apply fills spec's TLS configuration from the flags and the merged config.
// TCP and UDP carry no TLS; a nil receiver leaves spec alone too.
func (t *tlsFlags) apply(spec *engine.Spec, cfg *cliconfig.Config, log *slog.Logger) error {
	if t == nil || spec.Protocol == protocol.ProtocolTCP || spec.Protocol == protocol.ProtocolUDP {
		return nil
	}

	switch spec.Role {
	case protocol.RoleServer:
		if !t.serverEnabled(spec.Protocol, cfg) {
			return nil
		}
		conf, err := nttls.ServerConfig(nttls.ServerOptions{
			CertFile:     cfg.TLS.Cert,
			KeyFile:      cfg.TLS.Key,
			ExportCertTo: t.exportCert,
			Logger:       log,
		})
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		spec.ServerTLS = conf

	case protocol.RoleClient:
		if spec.Protocol == protocol.ProtocolWebSocket {
			// Fix the scheme here so configured CA or insecure settings
			// never turn a bare host:port into wss.
			target, err := websocket.NormalizeURL(spec.RemoteAddr, t.enabled)
			if err != nil {
				return err
			}
			spec.RemoteAddr = target
		}
		if !t.enabled && cfg.TLS.CA == "" && !cfg.TLS.Insecure {
			return nil
		}
		conf, err := nttls.ClientConfig(nttls.ClientOptions{
			CAFile:   cfg.TLS.CA,
			Insecure: cfg.TLS.Insecure,
		})
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		spec.ClientTLS = conf
	}
	return nil
}

// serverEnabled reports whether a server serves TLS. An explicit --cert
// implies --tls; HTTP/3 always runs TLS and picks up configured material.
func (t *tlsFlags) serverEnabled(p protocol.Protocol, cfg *cliconfig.Config) bool {
	if t.enabled || t.cert != "" {
		return true
	}
	return p == protocol.ProtocolHTTP3 && cfg.TLS.Cert != ""
}
