// Package lifecycle provides the start/stop state machine used by the
// orderly server.
//
// States move Stopped → Starting → Running → Stopping → Stopped, with
// Crashed reachable from any active state. Background goroutines are
// registered with Go so Stop can wait for them with a timeout.
package lifecycle
