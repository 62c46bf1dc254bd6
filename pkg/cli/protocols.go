package cli

import (
	"errors"
	"strings"

	"github.com/punisher1/nt/internal/netaddr"
	"github.com/punisher1/nt/pkg/cli/internal/flags"
	"github.com/punisher1/nt/pkg/engine"
	"github.com/punisher1/nt/pkg/httpproto"
	"github.com/punisher1/nt/pkg/protocol"
	"github.com/spf13/cobra"
)

// protocolCommand describes one top-level protocol command.
type protocolCommand struct {
	protocol protocol.Protocol
	aliases  []string
	// tls registers the TLS flags on both roles.
	tls bool
}

var protocolCommands = []protocolCommand{
	{protocol: protocol.ProtocolTCP},
	{protocol: protocol.ProtocolUDP},
	{protocol: protocol.ProtocolWebSocket, aliases: []string{"ws"}, tls: true},
	{protocol: protocol.ProtocolHTTP, aliases: []string{"http1"}, tls: true},
	{protocol: protocol.ProtocolHTTP2, aliases: []string{"h2"}, tls: true},
	{protocol: protocol.ProtocolHTTP3, aliases: []string{"h3"}, tls: true},
}

func (pc protocolCommand) isHTTP() bool {
	switch pc.protocol {
	case protocol.ProtocolHTTP, protocol.ProtocolHTTP2, protocol.ProtocolHTTP3:
		return true
	}
	return false
}

func newProtocolCommand(root *rootOptions, pc protocolCommand) *cobra.Command {
	name := pc.protocol.DisplayName()
	cmd := &cobra.Command{
		Use:     pc.protocol.String(),
		Aliases: pc.aliases,
		Short:   "Run a " + name + " server or client",
	}

	cmd.AddCommand(newServerCommand(root, pc))
	if pc.isHTTP() {
		cmd.AddCommand(newHTTPClientCommand(root, pc))
	} else {
		cmd.AddCommand(newStreamClientCommand(root, pc))
	}
	return cmd
}

func newServerCommand(root *rootOptions, pc protocolCommand) *cobra.Command {
	var tf tlsFlags
	cmd := &cobra.Command{
		Use:     "server <addr>",
		Aliases: []string{"s"},
		Short:   "Run a " + pc.protocol.DisplayName() + " server",
		Long: `Listen on <addr>. A bare port listens on 127.0.0.1; use 0.0.0.0:<port>
to listen on every interface.`,
		Example: "  nt " + pc.protocol.String() + " server 8080\n" +
			"  nt " + pc.protocol.String() + " server 0.0.0.0:8080",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := netaddr.Parse(args[0])
			if err != nil {
				return err
			}
			spec := engine.Spec{
				Protocol:  pc.protocol,
				Role:      protocol.RoleServer,
				LocalAddr: addr,
			}
			return root.run(cmd, spec, &tf)
		},
	}
	if pc.tls {
		tf.addServerFlags(cmd)
	}
	return cmd
}

func newStreamClientCommand(root *rootOptions, pc protocolCommand) *cobra.Command {
	var tf tlsFlags
	cmd := &cobra.Command{
		Use:     "client [local] <remote>",
		Aliases: []string{"c"},
		Short:   "Run a " + pc.protocol.DisplayName() + " client",
		Example: "  nt " + pc.protocol.String() + " client 8080\n" +
			"  nt " + pc.protocol.String() + " client 127.0.0.1:9000 example.com:8080",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			local, remote, err := resolveStreamClient(pc.protocol, args)
			if err != nil {
				return err
			}
			spec := engine.Spec{
				Protocol:   pc.protocol,
				Role:       protocol.RoleClient,
				LocalAddr:  local,
				RemoteAddr: remote,
			}
			return root.run(cmd, spec, &tf)
		},
	}
	if pc.tls {
		tf.addClientFlags(cmd)
	}
	return cmd
}

// resolveStreamClient splits "[local] <remote>" and resolves both. A
// WebSocket remote may also be a full ws:// or wss:// URL.
func resolveStreamClient(p protocol.Protocol, args []string) (local, remote string, err error) {
	if len(args) == 0 {
		return "", "", errors.New("missing remote address")
	}
	if len(args) == 2 {
		if local, err = netaddr.Parse(args[0]); err != nil {
			return "", "", err
		}
	}

	target := args[len(args)-1]
	if p == protocol.ProtocolWebSocket && strings.Contains(target, "://") {
		return local, target, nil
	}
	if remote, err = netaddr.Parse(target); err != nil {
		return "", "", err
	}
	return local, remote, nil
}

// httpRequestFlags are the request options of the HTTP client commands.
type httpRequestFlags struct {
	body    string
	headers flags.StringSlice
}

func newHTTPClientCommand(root *rootOptions, pc protocolCommand) *cobra.Command {
	var (
		tf  tlsFlags
		req httpRequestFlags
	)
	cmd := &cobra.Command{
		Use:     "client [method] [url]",
		Aliases: []string{"c"},
		Short:   "Run a " + pc.protocol.DisplayName() + " client",
		Long: `Send <method> <url> on start and one more request, carrying the typed
body, for every message sent afterwards. Without a URL an interactive form
asks for the request.`,
		Example: "  nt " + pc.protocol.String() + " client GET http://localhost:8080/\n" +
			"  nt " + pc.protocol.String() + " client POST localhost:8080/items -b '{\"name\":\"a\"}' -H 'Content-Type: application/json'",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := requestInput{Body: req.body, Headers: strings.Join(req.headers, "\n")}
			in.Method, in.URL = splitRequestArgs(args)

			if in.URL == "" {
				if !isInteractive(cmd.InOrStdin()) {
					return errors.New("missing URL (usage: client <method> <url>)")
				}
				cfg, err := root.loadConfig(nil)
				if err != nil {
					return err
				}
				if err := promptRequest(&in, pc.protocol, localizerFor(cfg)); err != nil {
					return err
				}
			}

			spec, err := in.spec(pc.protocol)
			if err != nil {
				return err
			}
			return root.run(cmd, spec, &tf)
		},
	}
	cmd.Flags().StringVarP(&req.body, "body", "b", "", "Request body")
	cmd.Flags().VarP(&req.headers, "header", "H", "Request header 'Key: Value' (repeatable)")
	tf.addClientFlags(cmd)
	return cmd
}

// splitRequestArgs accepts "", "<url>" or "<method> <url>".
func splitRequestArgs(args []string) (method, rawURL string) {
	switch len(args) {
	case 0:
		return "", ""
	case 1:
		return "", args[0]
	default:
		return args[0], args[1]
	}
}

// requestInput is an HTTP client request as typed by the user.
type requestInput struct {
	Method  string
	URL     string
	Body    string
	Headers string
}

func (in requestInput) spec(p protocol.Protocol) (engine.Spec, error) {
	if _, err := httpproto.ParseURL(in.URL, p); err != nil {
		return engine.Spec{}, err
	}
	header, err := httpproto.ParseHeaders(strings.Split(in.Headers, "\n"))
	if err != nil {
		return engine.Spec{}, err
	}
	return engine.Spec{
		Protocol:   p,
		Role:       protocol.RoleClient,
		RemoteAddr: in.URL,
		Method:     strings.ToUpper(strings.TrimSpace(in.Method)),
		Body:       in.Body,
		Header:     header,
	}, nil
}
