package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrimAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare host", "games.example.com", "games.example.com"},
		{"host with port", "games.example.com:8080", "games.example.com:8080"},
		{"http scheme", "http://games.example.com", "games.example.com"},
		{"wss scheme with path", "wss://host/path", "host/path"},
		{"trailing slash", "games.example.com/", "games.example.com"},
		{"leading slash", "/games.example.com", "games.example.com"},
		{"scheme and both slashes", "https://games.example.com/", "games.example.com"},
		{"double scheme marker strips one", "https://host/a://b", "host/a://b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimAddress(tt.input))
		})
	}
}

func TestTrimAddress_Idempotent(t *testing.T) {
	inputs := []string{
		"wss://host/path",
		"https://games.example.com:8080/",
		"host/a://b",
		"games.example.com",
	}

	for _, input := range inputs {
		once := TrimAddress(input)
		assert.Equal(t, once, TrimAddress(once), "input %q", input)
	}
}

func TestIsTLS(t *testing.T) {
	orig := probeClient
	t.Cleanup(func() { probeClient = orig })

	// serveTLS stands up a TLS server answering with the given status and
	// points the probe at a client trusting its certificate.
	serveTLS := func(t *testing.T, status int) string {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		t.Cleanup(srv.Close)
		probeClient = srv.Client()
		return TrimAddress(srv.URL)
	}

	t.Run("success status means reachable over tls", func(t *testing.T) {
		assert.True(t, IsTLS(serveTLS(t, http.StatusOK)))
	})

	t.Run("404 still means reachable over tls", func(t *testing.T) {
		assert.True(t, IsTLS(serveTLS(t, http.StatusNotFound)))
	})

	t.Run("other error statuses do not", func(t *testing.T) {
		assert.False(t, IsTLS(serveTLS(t, http.StatusInternalServerError)))
	})

	t.Run("plain http server fails the handshake", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)
		probeClient = &http.Client{Timeout: time.Second}
		assert.False(t, IsTLS(TrimAddress(srv.URL)))
	})

	t.Run("unreachable server is not tls", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.NotFoundHandler())
		addr := TrimAddress(srv.URL)
		probeClient = srv.Client()
		srv.Close()
		assert.False(t, IsTLS(addr))
	})
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://host:8080", BaseURL("http", false, "host:8080"))
	assert.Equal(t, "https://host:8080", BaseURL("http", true, "host:8080"))
	assert.Equal(t, "ws://host", BaseURL("ws", false, "host"))
	assert.Equal(t, "wss://host/path", BaseURL("ws", true, "host/path"))
}
