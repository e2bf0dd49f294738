package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ServerInfo describes a CodeGame server: its game name, the CodeGame
// protocol version it speaks, and optional display metadata.
type ServerInfo struct {
	Name          string `json:"name"`
	CGVersion     string `json:"cg_version"`
	DisplayName   string `json:"display_name,omitempty"`
	Description   string `json:"description,omitempty"`
	Version       string `json:"version,omitempty"`
	RepositoryURL string `json:"repository_url,omitempty"`
}

// Client is a stateless request helper for the CodeGame control plane.
// The TLS capability of the server is probed once at construction and
// cached for the lifetime of the handle.
type Client struct {
	addr string
	tls  bool
	http *http.Client
}

// NewClient creates a control-plane client for the given server address.
// The address is normalized with TrimAddress and probed for TLS support.
func NewClient(address string) *Client {
	addr := TrimAddress(address)
	return &Client{
		addr: addr,
		tls:  IsTLS(addr),
		http: &http.Client{},
	}
}

// Addr returns the trimmed server address the client talks to.
func (c *Client) Addr() string {
	return c.addr
}

// TLS reports the cached TLS capability of the server.
func (c *Client) TLS() bool {
	return c.tls
}

// BaseURL composes a base URL for the given scheme ("http" or "ws")
// against this client's server.
func (c *Client) BaseURL(scheme string) string {
	return BaseURL(scheme, c.tls, c.addr)
}

// Info fetches name and protocol version from the server. It fails with a
// DecodeError if either required field is missing from the response.
func (c *Client) Info(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.get(ctx, "/api/info", &info); err != nil {
		return nil, err
	}

	if info.Name == "" || info.CGVersion == "" {
		return nil, &DecodeError{Err: errors.New("server info is missing name or cg_version")}
	}

	return &info, nil
}

// CreateGame creates a new game on the server. When protected is true the
// server issues a join secret that players must present to join. The config
// payload is passed through to the server unmodified and may be nil.
func (c *Client) CreateGame(ctx context.Context, public, protected bool, config any) (gameID, joinSecret string, err error) {
	req := struct {
		Public    bool `json:"public"`
		Protected bool `json:"protected"`
		Config    any  `json:"config,omitempty"`
	}{
		Public:    public,
		Protected: protected,
		Config:    config,
	}

	var resp struct {
		GameID     string `json:"game_id"`
		JoinSecret string `json:"join_secret,omitempty"`
	}
	if err := c.post(ctx, "/api/games", req, &resp); err != nil {
		return "", "", err
	}

	if resp.GameID == "" {
		return "", "", &DecodeError{Err: errors.New("server did not return a game_id")}
	}

	return resp.GameID, resp.JoinSecret, nil
}

// CreatePlayer creates a player with the given username in the game.
// joinSecret may be empty for unprotected games.
func (c *Client) CreatePlayer(ctx context.Context, gameID, username, joinSecret string) (playerID, playerSecret string, err error) {
	req := struct {
		Username   string `json:"username"`
		JoinSecret string `json:"join_secret,omitempty"`
	}{
		Username:   username,
		JoinSecret: joinSecret,
	}

	var resp struct {
		PlayerID     string `json:"player_id"`
		PlayerSecret string `json:"player_secret"`
	}
	if err := c.post(ctx, "/api/games/"+url.PathEscape(gameID)+"/players", req, &resp); err != nil {
		return "", "", err
	}

	if resp.PlayerID == "" || resp.PlayerSecret == "" {
		return "", "", &DecodeError{Err: errors.New("server did not return player credentials")}
	}

	return resp.PlayerID, resp.PlayerSecret, nil
}

// Players fetches the full roster of a game as a playerID -> username map.
func (c *Client) Players(ctx context.Context, gameID string) (map[string]string, error) {
	var players map[string]string
	if err := c.get(ctx, "/api/games/"+url.PathEscape(gameID)+"/players", &players); err != nil {
		return nil, err
	}
	return players, nil
}

// PlayerUsername fetches the username of a single player. A 404 from the
// server surfaces as a DomainError: the player does not exist in this game.
func (c *Client) PlayerUsername(ctx context.Context, gameID, playerID string) (string, error) {
	var resp struct {
		Username string `json:"username"`
	}
	err := c.get(ctx, "/api/games/"+url.PathEscape(gameID)+"/players/"+url.PathEscape(playerID), &resp)
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) && terr.Status == http.StatusNotFound {
			return "", &DomainError{Status: http.StatusNotFound, Message: fmt.Sprintf("player %s not found in game %s", playerID, gameID)}
		}
		return "", err
	}

	if resp.Username == "" {
		return "", &DecodeError{Err: errors.New("server did not return a username")}
	}

	return resp.Username, nil
}

// Request helpers

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL("http")+path, nil)
	if err != nil {
		return &TransportError{Err: err}
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &DecodeError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL("http")+path, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Err: err}
	}

	return nil
}

// responseError classifies a non-2xx response: a decodable error message
// becomes a DomainError, anything else a TransportError carrying the status.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var msg struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &msg); err == nil && msg.Error != "" {
		return &DomainError{Status: resp.StatusCode, Message: msg.Error}
	}

	return &TransportError{Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
}
