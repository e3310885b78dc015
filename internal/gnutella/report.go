package gnutella

import (
	"fmt"

	"github.com/dstutzbach/gnutella-crawler/internal/engine"
)

// reportError writes the single failure line for addr. The message is
// formatted ahead of the call and passed through %s rather than
// forwarding format/args straight to stdout.Printf, so that a message
// containing a literal '%' (an error string, a raw handshake line) is
// never reinterpreted as a format verb.
func reportError(stdout *engine.File, addr, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	stdout.Printf("R: %s(): %s\n", addr, msg)
}

// reportSuccess writes the single success line for a peer whose
// handshake completed: address, the accumulated User-Agent, the
// resolved peer type, and its advertised neighbors/leaves.
func reportSuccess(stdout *engine.File, addr, userAgent, peerType, neighbors, leafs string) {
	stdout.Printf("R: %s(|%s|): %s %s, %s\n", addr, userAgent, peerType, neighbors, leafs)
}
