// Package tcp implements the TCP server and client handlers.
//
// The server is the reference transport engine: one accept loop, and for
// every accepted connection a read task and a write task. The write task owns
// a private bounded queue; Send only enqueues. Per-peer I/O errors end that
// peer's session and nothing else.
//
//	srv := tcp.NewServer(tcp.ServerConfig{Addr: "127.0.0.1:0", Sink: bridge})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Stop(context.Background())
//
//	_ = srv.Send(protocol.Text("hello"), peerID)
package tcp
