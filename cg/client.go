package cg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/code-game-project/go-client/api"
	"github.com/code-game-project/go-client/session"
)

// Time allowed to write the close handshake to the peer.
const writeWait = 10 * time.Second

var (
	ErrAlreadyConnected = errors.New("client is already connected to a game")
	ErrNotConnected     = errors.New("client is not connected to a game")
	ErrSpectator        = errors.New("spectators cannot send commands")
)

// Option configures a Client at construction time.
type Option func(c *Client)

// WithLogger installs a structured logger. The default discards all output.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithSessionStore overrides the default per-user session store.
func WithSessionStore(store *session.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// Client is one connection to a CodeGame server. It owns the live
// WebSocket, the event-callback registry, and the username cache; none of
// these are shared between clients, so multiple connections in one process
// do not interfere.
type Client struct {
	api   *api.Client
	store *session.Store
	log   zerolog.Logger
	info  *api.ServerInfo

	events    *eventRegistry
	usernames *cache.Cache
	fetch     singleflight.Group

	mu         sync.Mutex
	conn       *websocket.Conn
	started    bool
	session    session.Session
	spectating bool

	writeMu sync.Mutex

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
}

// NewClient resolves the server at address, fetches its info, and compares
// protocol versions. An incompatible version is reported as a warning
// through the logger, never as an error: the connection may still work and
// the caller decides whether to proceed.
func NewClient(ctx context.Context, address string, opts ...Option) (*Client, error) {
	c := &Client{
		api:       api.NewClient(address),
		log:       zerolog.Nop(),
		events:    newEventRegistry(),
		usernames: cache.New(cache.NoExpiration, cache.NoExpiration),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil {
		store, err := session.NewStore()
		if err != nil {
			return nil, fmt.Errorf("failed to create session store: %w", err)
		}
		c.store = store
	}

	info, err := c.api.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch server info: %w", err)
	}
	c.info = info

	if !AreVersionsCompatible(CGVersion, info.CGVersion) {
		c.log.Warn().
			Str("client_version", CGVersion).
			Str("server_version", info.CGVersion).
			Msg("client and server CodeGame versions are not compatible")
	}

	return c, nil
}

// Info returns the server info fetched at construction time.
func (c *Client) Info() api.ServerInfo {
	return *c.info
}

// API returns the underlying control-plane client.
func (c *Client) API() *api.Client {
	return c.api
}

// Connected reports whether the client currently holds a connection,
// as player or spectator.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.GameURL != ""
}

// Session returns a copy of the current session record. It is the zero
// value while unconnected.
func (c *Client) Session() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Join creates a player with the given username in the game and connects
// as that player. joinSecret may be empty for unprotected games.
func (c *Client) Join(ctx context.Context, gameID, username, joinSecret string) error {
	if c.Connected() {
		return ErrAlreadyConnected
	}

	playerID, playerSecret, err := c.api.CreatePlayer(ctx, gameID, username, joinSecret)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	return c.Connect(ctx, gameID, playerID, playerSecret)
}

// RestoreSession loads the session stored for this server and username and
// reconnects with its credentials. When the reconnect fails for any reason
// the stored session is treated as stale and removed, and the original
// error is returned.
func (c *Client) RestoreSession(ctx context.Context, username string) error {
	sess, err := c.store.Load(c.api.Addr(), username)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := c.Connect(ctx, sess.GameID, sess.PlayerID, sess.PlayerSecret); err != nil {
		if removeErr := c.store.Remove(sess); removeErr != nil {
			c.log.Warn().Err(removeErr).Str("username", username).Msg("failed to remove stale session")
		}
		return err
	}

	return nil
}

// Connect opens the WebSocket session as the given player. After the
// socket is up it seeds the username cache from the full roster, resolves
// this player's own username, and persists the session. A failed persist
// is logged and does not fail the connect; the live connection already
// exists at that point.
func (c *Client) Connect(ctx context.Context, gameID, playerID, playerSecret string) error {
	query := url.Values{}
	query.Set("player_id", playerID)
	query.Set("player_secret", playerSecret)
	endpoint := c.api.BaseURL("ws") + "/api/games/" + url.PathEscape(gameID) + "/connect?" + query.Encode()

	conn, err := c.dial(ctx, endpoint, false)
	if err != nil {
		return err
	}

	players, err := c.seedUsernames(ctx, gameID)
	if err != nil {
		c.abortConnect(conn)
		return err
	}

	username, ok := players[playerID]
	if !ok {
		c.abortConnect(conn)
		return fmt.Errorf("player %s is not part of game %s", playerID, gameID)
	}

	sess := session.NewSession(c.api.Addr(), username, gameID, playerID, playerSecret)
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	if err := c.store.Save(sess); err != nil {
		c.log.Warn().Err(err).Str("username", username).Msg("failed to persist session")
	}

	go c.listen(conn)
	return nil
}

// Spectate opens a read-only WebSocket session on the spectate endpoint.
// The username cache is seeded like a player connection, but no credentials
// exist and nothing is persisted: spectator sessions are not restorable.
func (c *Client) Spectate(ctx context.Context, gameID string) error {
	endpoint := c.api.BaseURL("ws") + "/api/games/" + url.PathEscape(gameID) + "/spectate"

	conn, err := c.dial(ctx, endpoint, true)
	if err != nil {
		return err
	}

	if _, err := c.seedUsernames(ctx, gameID); err != nil {
		c.abortConnect(conn)
		return err
	}

	c.mu.Lock()
	c.session.GameID = gameID
	c.mu.Unlock()

	go c.listen(conn)
	return nil
}

// dial claims the connecting state and opens the socket. The claim is
// rolled back if the handshake fails.
func (c *Client) dial(ctx context.Context, endpoint string, spectating bool) (*websocket.Conn, error) {
	c.mu.Lock()
	if c.session.GameURL != "" {
		c.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	c.session = session.Session{GameURL: c.api.Addr()}
	c.spectating = spectating
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		c.rollback()
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.started = true
	c.mu.Unlock()

	return conn, nil
}

// seedUsernames fetches the full roster and populates the username cache.
func (c *Client) seedUsernames(ctx context.Context, gameID string) (map[string]string, error) {
	players, err := c.api.Players(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch player roster: %w", err)
	}

	for id, username := range players {
		c.usernames.Set(id, username, cache.NoExpiration)
	}

	return players, nil
}

// abortConnect undoes a half-finished connect before the read loop exists.
// The done gate stays open so the client remains usable.
func (c *Client) abortConnect(conn *websocket.Conn) {
	conn.Close()
	c.rollback()
}

func (c *Client) rollback() {
	c.mu.Lock()
	c.session = session.Session{}
	c.spectating = false
	c.conn = nil
	c.started = false
	c.mu.Unlock()
}

// listen is the read loop. It runs until the transport disconnects for any
// reason and then signals the terminal closed state, waking every Wait
// caller. Non-text frames are ignored; a frame that cannot be routed or
// decoded is logged and dropped, never fatal.
func (c *Client) listen(conn *websocket.Conn) {
	defer c.shutdown()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		var frame struct {
			Name EventName       `json:"name"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &frame); err != nil || frame.Name == "" {
			c.log.Warn().Err(err).Msg("dropping frame without a routable event name")
			continue
		}

		if err := c.events.dispatch(frame.Name, frame.Data); err != nil {
			c.log.Warn().Err(err).Str("event", string(frame.Name)).Msg("dropping undecodable event")
		}
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// Wait blocks until the connection has reached its terminal closed state.
// It returns immediately if the client is already closed and supports any
// number of concurrent waiters.
func (c *Client) Wait() {
	<-c.done
}

// Close requests a normal-closure handshake and releases the transport.
// It is idempotent, and a true no-op on a client that never connected:
// the terminal closed state is only reachable once a connection existed,
// so closing early does not spend the teardown of a later connection.
func (c *Client) Close() error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil
	}

	var errs error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			deadline := time.Now().Add(writeWait)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				errs = multierror.Append(errs, fmt.Errorf("failed to send close message: %w", err))
			}
			if err := conn.Close(); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("failed to close websocket: %w", err))
			}
		}

		c.doneOnce.Do(func() {
			close(c.done)
		})
	})

	return errs
}

// commandFrame is the outbound wire shape, symmetric to inbound events.
type commandFrame struct {
	Name EventName `json:"name"`
	Data any       `json:"data,omitempty"`
}

// Send encodes {name, data} and writes it as one text frame. Only player
// connections can send: spectators and unconnected clients fail with a
// state error before anything is written.
func (c *Client) Send(command EventName, data any) error {
	c.mu.Lock()
	conn := c.conn
	spectating := c.spectating
	connected := c.session.GameURL != ""
	c.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}
	if spectating {
		return ErrSpectator
	}

	frame, err := json.Marshal(commandFrame{Name: command, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode %q command: %w", command, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to send %q command: %w", command, err)
	}

	return nil
}

// Username resolves a player id to its username. Cache hits return without
// network traffic; on a miss the username is fetched through the control
// plane exactly once even under concurrent callers, then cached.
func (c *Client) Username(ctx context.Context, playerID string) (string, error) {
	c.mu.Lock()
	gameID := c.session.GameID
	c.mu.Unlock()

	if gameID == "" {
		return "", ErrNotConnected
	}

	if cached, ok := c.usernames.Get(playerID); ok {
		return cached.(string), nil
	}

	username, err, _ := c.fetch.Do(playerID, func() (any, error) {
		name, err := c.api.PlayerUsername(ctx, gameID, playerID)
		if err != nil {
			return "", err
		}
		c.usernames.Set(playerID, name, cache.NoExpiration)
		return name, nil
	})
	if err != nil {
		return "", err
	}

	return username.(string), nil
}

// RemoveCallback unregisters a callback by the id On or Once returned.
// Unknown event names and unknown ids are safe no-ops.
func (c *Client) RemoveCallback(event EventName, id CallbackID) {
	c.events.remove(event, id)
}
