// Package engine implements the reactor substrate the crawler runs
// on: a monotonic timer service, a poll(2)-based fd dispatcher, and a
// buffered non-blocking File built on top of it. Everything here runs
// on one goroutine; none of it is safe to call concurrently from more
// than one.
package engine
