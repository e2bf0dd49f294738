package cg

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreVersionsCompatible(t *testing.T) {
	tests := []struct {
		client string
		server string
		want   bool
	}{
		{"0.7", "0.7", true},
		{"0.7", "0.8", false}, // pre-1.0: minors must match exactly
		{"0.8", "0.7", false},
		{"1.2", "1.9", true}, // server may be newer
		{"1.9", "1.2", false},
		{"1.2", "1.2", true},
		{"1.2", "2.2", false}, // major mismatch
		{"2.0", "1.9", false},
		{"1", "1.0", true}, // missing minor defaults to 0
		{"1.0", "1", true},
		{"0", "0.0", true},
		{"0", "0.1", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("client %s server %s", tt.client, tt.server), func(t *testing.T) {
			assert.Equal(t, tt.want, AreVersionsCompatible(tt.client, tt.server))
		})
	}
}
