package api

import (
	"net/http"
	"strings"
	"time"
)

// probeClient is used only for the one-shot TLS capability probe.
var probeClient = &http.Client{Timeout: 10 * time.Second}

// TrimAddress normalizes a user-supplied server address into the canonical
// host[:port][/path] form: one layer of leading/trailing slashes is removed
// and a scheme prefix (http://, wss://, ...) is stripped. The result never
// contains "://", and TrimAddress is idempotent.
func TrimAddress(address string) string {
	address = strings.TrimPrefix(address, "/")
	address = strings.TrimSuffix(address, "/")

	// Split on the first scheme marker only, so an address that legitimately
	// contains "://" further in (already-stripped input) survives another pass.
	parts := strings.Split(address, "://")
	if len(parts) > 1 {
		address = strings.Join(parts[1:], "://")
	}

	return address
}

// BaseURL composes a request base from a scheme ("http" or "ws"), the TLS
// capability of the server, and a trimmed address.
func BaseURL(scheme string, tls bool, trimmedAddress string) string {
	if tls {
		return scheme + "s://" + trimmedAddress
	}
	return scheme + "://" + trimmedAddress
}

// IsTLS probes whether the server at the trimmed address is reachable over
// HTTPS. Any success status or a plain 404 counts as reachable; transport
// failures (DNS, TCP, TLS handshake) do not. The probe is a heuristic, not
// certificate validation, and is issued exactly once without retries.
func IsTLS(trimmedAddress string) bool {
	resp, err := probeClient.Get("https://" + trimmedAddress)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return (resp.StatusCode >= 200 && resp.StatusCode < 300) || resp.StatusCode == http.StatusNotFound
}
