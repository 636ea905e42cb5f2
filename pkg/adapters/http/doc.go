// Package http exposes a ViewModel over HTTP.
//
// Routes:
//
//	POST /inputs        decode an Input and queue it (?await=true waits for processing)
//	GET  /state         current State as JSON
//	GET  /states        Server-Sent Events stream of every State version
//	GET  /events        Server-Sent Events stream of emitted Events (see EventHooks)
//	GET  /health        liveness and lifecycle phase
//	GET  /info          build and ViewModel identity
package http
