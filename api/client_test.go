package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, router *mux.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func TestClient_Info(t *testing.T) {
	t.Run("complete info", func(t *testing.T) {
		router := mux.NewRouter()
		router.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"name":         "tictactoe",
				"cg_version":   "0.7",
				"display_name": "Tic Tac Toe",
			})
		}).Methods("GET")

		client := newTestClient(t, router)
		info, err := client.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tictactoe", info.Name)
		assert.Equal(t, "0.7", info.CGVersion)
		assert.Equal(t, "Tic Tac Toe", info.DisplayName)
	})

	t.Run("missing cg_version is a decode error", func(t *testing.T) {
		router := mux.NewRouter()
		router.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"name": "tictactoe"})
		}).Methods("GET")

		client := newTestClient(t, router)
		_, err := client.Info(context.Background())
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("malformed body is a decode error", func(t *testing.T) {
		router := mux.NewRouter()
		router.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}).Methods("GET")

		client := newTestClient(t, router)
		_, err := client.Info(context.Background())
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})
}

func TestClient_CreateGame(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/games", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Public    bool `json:"public"`
			Protected bool `json:"protected"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := map[string]string{"game_id": "game-1"}
		if req.Protected {
			resp["join_secret"] = "sesame"
		}
		writeJSON(w, http.StatusCreated, resp)
	}).Methods("POST")

	client := newTestClient(t, router)

	t.Run("unprotected game has no join secret", func(t *testing.T) {
		gameID, joinSecret, err := client.CreateGame(context.Background(), true, false, nil)
		require.NoError(t, err)
		assert.Equal(t, "game-1", gameID)
		assert.Empty(t, joinSecret)
	})

	t.Run("protected game returns join secret", func(t *testing.T) {
		gameID, joinSecret, err := client.CreateGame(context.Background(), false, true, nil)
		require.NoError(t, err)
		assert.Equal(t, "game-1", gameID)
		assert.Equal(t, "sesame", joinSecret)
	})
}

func TestClient_CreatePlayer(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/games/{id}/players", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username   string `json:"username"`
			JoinSecret string `json:"join_secret"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Username == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username must not be empty"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{
			"player_id":     "player-1",
			"player_secret": "secret-1",
		})
	}).Methods("POST")

	client := newTestClient(t, router)

	t.Run("success", func(t *testing.T) {
		playerID, playerSecret, err := client.CreatePlayer(context.Background(), "game-1", "alice", "")
		require.NoError(t, err)
		assert.Equal(t, "player-1", playerID)
		assert.Equal(t, "secret-1", playerSecret)
	})

	t.Run("server rejection is a domain error", func(t *testing.T) {
		_, _, err := client.CreatePlayer(context.Background(), "game-1", "", "")
		var domainErr *DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "username must not be empty", domainErr.Message)
		assert.Equal(t, http.StatusBadRequest, domainErr.Status)
	})
}

func TestClient_Players(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/games/{id}/players", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"player-1": "alice",
			"player-2": "bob",
		})
	}).Methods("GET")

	client := newTestClient(t, router)
	players, err := client.Players(context.Background(), "game-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"player-1": "alice", "player-2": "bob"}, players)
}

func TestClient_PlayerUsername(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/games/{id}/players/{playerId}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["playerId"] != "player-1" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"username": "alice"})
	}).Methods("GET")

	client := newTestClient(t, router)

	t.Run("existing player", func(t *testing.T) {
		username, err := client.PlayerUsername(context.Background(), "game-1", "player-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", username)
	})

	t.Run("absent player is a domain error", func(t *testing.T) {
		_, err := client.PlayerUsername(context.Background(), "game-1", "ghost")
		var domainErr *DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, http.StatusNotFound, domainErr.Status)
	})
}

func TestClient_ErrorClassification(t *testing.T) {
	t.Run("non-2xx without message is a transport error", func(t *testing.T) {
		router := mux.NewRouter()
		router.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}).Methods("GET")

		client := newTestClient(t, router)
		_, err := client.Info(context.Background())
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, http.StatusServiceUnavailable, transportErr.Status)
	})

	t.Run("unreachable server is a transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		client := NewClient(addr)
		_, err := client.Info(context.Background())
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Zero(t, transportErr.Status)
	})
}
