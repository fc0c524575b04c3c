package session

import (
	"crypto/rand"
	"encoding/hex"
)

// Manager resolves supplied session tokens and mints new identifiers.
// Resolution never fails: a malformed token is treated the same as no
// token at all, so routing stays permissive.
type Manager struct{}

// Resolve returns the supplied token as a session ID when it matches
// the strict format, otherwise a freshly minted one. Registration in
// the registry happens lazily on first write, not here.
func (Manager) Resolve(token string) ID {
	if TokenPattern.MatchString(token) {
		return ID(token)
	}
	return Mint()
}

// Mint generates a new random session ID.
func Mint() ID {
	b := make([]byte, 8)
	// crypto/rand.Read does not fail on supported platforms.
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return ID(hex.EncodeToString(b))
}
