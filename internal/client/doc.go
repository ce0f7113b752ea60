// Package client connects to a NOODLES server over websocket and keeps the scene graph
// mirrored in delegates.
//
// One goroutine reads frames and dispatches them in arrival order. Reply callbacks and
// the on-connected hook are queued; the application drains them with ServeCallbacks or
// RunCallbacks on a goroutine of its choosing.
package client
