// Package session owns client session transport helpers.
//
// Ownership boundary:
// - connect/handshake/init timeouts
// - retry/backoff primitives
// - websocket TLS policy
// - pending invoke tracking
package session
