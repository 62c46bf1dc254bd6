// Package httpproto implements the HTTP/1.1, HTTP/2 and HTTP/3 server and
// client handlers.
//
// Servers treat every request as a short-lived peer keyed by a UUID. The
// request is shown as a Received message and held open until the user
// answers it with Send(content, requestID) or ResponseTimeout passes and the
// default response goes out:
//
//	Connected -> Received (request) -> Sent (response) -> Disconnected
//
// All three versions share one request registry; only the listener differs.
// HTTP/1.1 and HTTP/2 listen on TCP (HTTP/2 as h2c without TLS), HTTP/3 on
// QUIC and always with TLS.
//
// Clients hold one peer, the server named by the URL host. The configured
// request is issued on Start and every Send issues another request carrying
// the content as its body. A single worker keeps requests in order.
package httpproto
