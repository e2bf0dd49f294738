// Package cg is the CodeGame client runtime: it owns the WebSocket session
// to a game server and dispatches inbound events to typed callbacks.
//
// The cg package implements:
//   - Server discovery and protocol version negotiation
//   - The connection lifecycle: join, reconnect, spectate, close
//   - A typed event-callback registry with one-shot support
//   - Outbound command encoding
//   - A per-connection username cache seeded from the player roster
//
// Connection Lifecycle:
//
// A Client moves through Unconnected -> Connecting -> Open -> Closed.
// Closed is terminal; create a new Client to connect again.
//
//  1. NewClient resolves the server address and checks protocol versions
//  2. Join creates a player and opens the socket; Spectate opens it read-only
//  3. Inbound frames are routed by event name to registered callbacks
//  4. Wait blocks until the connection closes, Close tears it down
//
// Events and Commands:
//
// Frames are JSON text messages shaped as {name, data} in both directions.
// Register callbacks with the generic On and Once functions; the payload
// type supplied at registration fixes how the event's data is decoded:
//
//	cg.On(client, "player_joined", func(p PlayerJoined) {
//		fmt.Println(p.Username)
//	})
//	client.Send("move", MoveCmd{Direction: "up"})
//
// Callbacks for an unknown event name are simply never invoked; the frame
// is ignored without decoding its payload.
//
// Concurrency:
//
// Callbacks run on the connection's read goroutine and must be treated as
// concurrent with the goroutines calling Send, Username, or Close. The
// registry and the username cache are safe for concurrent use. Wait may be
// called from any number of goroutines; all of them unblock when the
// connection closes.
//
// Sessions:
//
// A successful player connection is persisted through the session package
// so RestoreSession can reconnect as the same player later. Persistence is
// best-effort: a failed save is logged and the live connection stays up.
// Spectator connections are never persisted.
package cg
