package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKeepsValidToken(t *testing.T) {
	var m Manager
	assert.Equal(t, ID("deadbeef00112233"), m.Resolve("deadbeef00112233"))
}

func TestResolveMintsOnMalformedToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"too short", "deadbeef0011223"},
		{"too long", "deadbeef001122334"},
		{"uppercase", "DEADBEEF00112233"},
		{"non hex", "deadbeef0011223z"},
		{"path segment", "../deadbeef00112"},
	}

	var m Manager
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := m.Resolve(tt.token)
			assert.NotEqual(t, ID(tt.token), id)
			assert.Regexp(t, TokenPattern, string(id))
		})
	}
}

func TestMintFormatAndUniqueness(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := Mint()
		require.Regexp(t, TokenPattern, string(id))
		require.False(t, seen[id], "minted duplicate id %s", id)
		seen[id] = true
	}
}
