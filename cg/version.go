package cg

import (
	"strconv"
	"strings"
)

// CGVersion is the CodeGame protocol version this client library speaks.
const CGVersion = "0.7"

// AreVersionsCompatible reports whether a client speaking clientVersion can
// talk to a server speaking serverVersion. Versions are MAJOR[.MINOR]
// strings with a missing minor defaulting to "0". Majors must match
// exactly. Pre-1.0 versions carry no backward-compatibility promise, so a
// "0" major additionally requires an exact minor match; otherwise the
// server's minor may be newer than the client's, but never older.
func AreVersionsCompatible(clientVersion, serverVersion string) bool {
	clientMajor, clientMinor := splitVersion(clientVersion)
	serverMajor, serverMinor := splitVersion(serverVersion)

	if clientMajor != serverMajor {
		return false
	}

	if clientMajor == "0" {
		return clientMinor == serverMinor
	}

	client, err := strconv.Atoi(clientMinor)
	if err != nil {
		return clientMinor == serverMinor
	}
	server, err := strconv.Atoi(serverMinor)
	if err != nil {
		return clientMinor == serverMinor
	}

	return client <= server
}

func splitVersion(version string) (major, minor string) {
	major, minor, found := strings.Cut(version, ".")
	if !found {
		minor = "0"
	}
	return major, minor
}
