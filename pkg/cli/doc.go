// Package cli implements the nt command tree.
//
// Every protocol gets a command with server and client subcommands:
//
//	nt tcp server 8080
//	nt ws client 127.0.0.1:8080
//	nt http2 client POST https://localhost:8443/echo -b '{"a":1}'
//
// A command resolves its arguments into an engine.Spec, loads the layered
// configuration, and runs one engine.Session in the terminal UI or, with
// --plain, in line mode.
package cli
