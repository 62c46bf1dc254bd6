// Package util provides the byte, hex and text conversions shared by nt
// handlers and the presentation layer.
//
//   - BytesToHex / HexToBytes: spaced upper-case hex rendering and strict parsing
//   - BytesToString: lossy UTF-8 decoding of received payloads
//   - FormatJSON: pretty-printing for JSON payloads
//   - TruncateBody: cap payloads for safe logging
package util
