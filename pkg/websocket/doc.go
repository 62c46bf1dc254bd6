// Package websocket implements the WebSocket server and client handlers.
//
// The server accepts upgrades on any path using github.com/coder/websocket;
// the client dials with github.com/gorilla/websocket. Both run the same
// per-peer read and write tasks over a small frame adapter, so text frames
// surface as Text messages and binary frames as Binary ones.
//
// Content kinds map to frame types on send: Text becomes a text frame,
// Binary and Hex become binary frames.
package websocket
