// Package api talks to the CodeGame control plane over HTTP REST.
//
// The api package implements:
//   - Server address normalization and TLS capability probing
//   - Server info retrieval and protocol metadata decoding
//   - Game and player creation
//   - Player roster and username lookups
//
// Endpoints:
//
//   - GET  /api/info                            - Server name and protocol version
//   - POST /api/games                           - Create a new game
//   - POST /api/games/{id}/players              - Create a player in a game
//   - GET  /api/games/{id}/players              - Fetch the full player roster
//   - GET  /api/games/{id}/players/{playerId}   - Fetch a single username
//
// Request/Response Format:
//
// All endpoints accept and return JSON with snake_case field names.
// Server-side rejections carry a JSON body of the form:
//
//	{
//	  "error": "error message"
//	}
//
// Error Handling:
//
// Failures are classified so callers can react to each class separately:
// TransportError for network-level failures and unexplained non-2xx
// statuses, DomainError when the server explicitly rejected the request
// with a message, and DecodeError for malformed or incomplete JSON.
// Use errors.As to match a class.
package api
