// Package session holds the in-process session registry: the single
// source of truth for which uploads exist and when they expire.
package session

import (
	"regexp"
	"time"
)

// ID is an opaque session token: 16 lowercase hex characters minted
// from 8 random bytes. The same value is used as a URL path segment
// and as the registry key, so anything arriving from the outside must
// match TokenPattern before it is trusted as a lookup key.
type ID string

// TokenPattern is the strict format a supplied session token must
// match. Anything else is treated as "no token supplied".
var TokenPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// MediaKind classifies a stored item for presentation.
type MediaKind string

const (
	KindImage    MediaKind = "image"
	KindVideo    MediaKind = "video"
	KindDocument MediaKind = "document"
	KindOther    MediaKind = "other"
)

// Item is one stored upload. ID and Locator are assigned by the blob
// store; DisplayName is the client-supplied file name and is not
// trusted for anything beyond display. CreatedAt is stamped once, when
// the backend confirms the write, and drives TTL bookkeeping.
type Item struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Locator     string    `json:"locator"`
	MediaKind   MediaKind `json:"media_kind"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
