// Package session persists connection credentials so a client can
// reconnect to a game as the same player across process restarts.
//
// A Session is a small value record: the server address, the username, and
// the three server-assigned credentials (game id, player id, player secret).
// Sessions are keyed by (server address, username) and stored one file per
// key under a per-server directory:
//
//	<user-config-dir>/codegame/games/<escaped address>/<escaped username>.json
//
// Both path components are URL-escaped so arbitrary server addresses and
// usernames can neither collide nor escape the storage directory. The file
// holds only the three server-assigned fields; address and username are
// encoded in the path.
//
// Spectator connections are never persisted.
package session
