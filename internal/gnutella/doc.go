// Package gnutella implements the per-peer Gnutella/0.6 ultrapeer
// handshake: dial, send the fixed CONNECT request, read the status
// line, accumulate headers, and emit exactly one report line per peer
// attempted.
package gnutella
