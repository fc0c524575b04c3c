// Package blobstore abstracts the byte-storage backend holding raw
// upload payloads. Backends have no opinion about expiry; the session
// registry decides what lives and what gets deleted.
package blobstore

import (
	"context"
	"errors"
	"io"

	"dropzone/internal/session"
)

// ErrNotFound is returned by Open when no blob exists at the locator.
var ErrNotFound = errors.New("blob not found")

// PutResult describes one persisted blob.
type PutResult struct {
	ID        string
	Locator   string
	SizeBytes int64
	MediaKind session.MediaKind
}

// Store persists and serves named byte payloads keyed by a locator the
// backend chooses itself; session identity is never derived from a
// storage path. Delete is best-effort: sweep callers log failures and
// move on.
type Store interface {
	Put(ctx context.Context, sid session.ID, name, contentType string, r io.Reader, size int64) (PutResult, error)
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
}
