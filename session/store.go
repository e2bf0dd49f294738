package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrIncompleteSession = errors.New("session has empty fields")
	ErrCorruptSession    = errors.New("session file is missing required fields")
)

// Session is the credential record of one player connection. Identity key
// is (GameURL, Username); the remaining fields are assigned by the server.
type Session struct {
	GameURL      string `json:"-"`
	Username     string `json:"-"`
	GameID       string `json:"game_id"`
	PlayerID     string `json:"player_id"`
	PlayerSecret string `json:"player_secret"`
}

// NewSession creates a session record from its five components.
func NewSession(gameURL, username, gameID, playerID, playerSecret string) Session {
	return Session{
		GameURL:      gameURL,
		Username:     username,
		GameID:       gameID,
		PlayerID:     playerID,
		PlayerSecret: playerSecret,
	}
}

// Store reads and writes session files in a per-user data directory.
type Store struct {
	gamesDir string
}

// NewStore creates a store rooted at the default per-user location.
func NewStore() (*Store, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return NewStoreAt(filepath.Join(configDir, "codegame", "games")), nil
}

// NewStoreAt creates a store rooted at an explicit directory.
func NewStoreAt(gamesDir string) *Store {
	return &Store{gamesDir: gamesDir}
}

// Save writes the server-assigned fields of the session to its
// deterministic path, overwriting any previous file for the same
// (address, username) pair. It refuses to persist an incomplete session:
// any empty field fails with ErrIncompleteSession before anything is
// written.
func (s *Store) Save(session Session) error {
	if session.GameURL == "" || session.Username == "" || session.GameID == "" ||
		session.PlayerID == "" || session.PlayerSecret == "" {
		return ErrIncompleteSession
	}

	dir := s.gameDir(session.GameURL)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(s.filePath(session.GameURL, session.Username), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load reads the session stored for (gameURL, username). A missing or
// unreadable file is an I/O error; a readable file lacking any of the three
// required keys fails with ErrCorruptSession.
func (s *Store) Load(gameURL, username string) (Session, error) {
	data, err := os.ReadFile(s.filePath(gameURL, username))
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal session file: %w", err)
	}

	gameID, playerID, playerSecret := fields["game_id"], fields["player_id"], fields["player_secret"]
	if gameID == "" || playerID == "" || playerSecret == "" {
		return Session{}, ErrCorruptSession
	}

	return NewSession(gameURL, username, gameID, playerID, playerSecret), nil
}

// Remove deletes the session file and, when it was the last one for its
// server, the containing directory. A session with an empty GameURL is a
// no-op.
func (s *Store) Remove(session Session) error {
	if session.GameURL == "" {
		return nil
	}

	if err := os.Remove(s.filePath(session.GameURL, session.Username)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	dir := s.gameDir(session.GameURL)
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("failed to remove empty session directory: %w", err)
		}
	}

	return nil
}

// Exists reports whether a session is stored for (gameURL, username).
func (s *Store) Exists(gameURL, username string) bool {
	_, err := os.Stat(s.filePath(gameURL, username))
	return err == nil
}

// List returns the usernames with a stored session for the given server
// address. A server with no stored sessions yields an empty list.
func (s *Store) List(gameURL string) ([]string, error) {
	entries, err := os.ReadDir(s.gameDir(gameURL))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var usernames []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		username, err := url.PathUnescape(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		usernames = append(usernames, username)
	}

	return usernames, nil
}

func (s *Store) gameDir(gameURL string) string {
	return filepath.Join(s.gamesDir, url.PathEscape(gameURL))
}

func (s *Store) filePath(gameURL, username string) string {
	return filepath.Join(s.gameDir(gameURL), url.PathEscape(username)+".json")
}
