// Package testing provides helpers for exercising nt handlers in tests.
//
// Recorder is a protocol.Sink that keeps every emitted message so a test can
// wait for and assert on traffic:
//
//	rec := nttest.NewRecorder()
//	srv := tcp.NewServer(tcp.ServerConfig{Addr: "127.0.0.1:0", Sink: rec})
//	...
//	rec.WaitCount(t, protocol.KindConnected, "", 2)
//	nttest.AssertBracketed(t, rec.ForPeer(id))
package testing
