package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dropzone/internal/session"
)

// Local stores blobs on the local filesystem under a base directory.
// Object keys have the shape "sessions/<sid>/<uuid>"; writes go to a
// temp file first and are renamed into place so a crashed upload never
// leaves a half-written blob at a published locator.
type Local struct {
	basePath string
}

// NewLocal creates a local store rooted at basePath, creating the
// directory if needed.
func NewLocal(basePath string) (*Local, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, fmt.Errorf("local storage path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	log.Info().Str("path", abs).Msg("local storage initialized")
	return &Local{basePath: abs}, nil
}

func (l *Local) Put(ctx context.Context, sid session.ID, name, contentType string, r io.Reader, size int64) (PutResult, error) {
	var zero PutResult
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	id := uuid.New().String()
	locator := "sessions/" + string(sid) + "/" + id
	dst := filepath.Join(l.basePath, filepath.FromSlash(locator))

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return zero, fmt.Errorf("create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Join(l.basePath, "tmp"), "put-*")
	if err != nil {
		return zero, fmt.Errorf("create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return zero, fmt.Errorf("write content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, fmt.Errorf("sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return zero, fmt.Errorf("move file into place: %w", err)
	}

	log.Debug().
		Str("locator", locator).
		Str("content_type", contentType).
		Int64("bytes_written", n).
		Msg("blob stored")

	return PutResult{
		ID:        id,
		Locator:   locator,
		SizeBytes: n,
		MediaKind: KindFor(contentType, name),
	}, nil
}

func (l *Local) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := l.resolve(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	// Drop the session directory once its last blob is gone. Failure
	// here just means the directory is not empty yet.
	_ = os.Remove(filepath.Dir(full))
	return nil
}

// resolve maps a locator to an absolute path and rejects anything that
// escapes the base directory.
func (l *Local) resolve(locator string) (string, error) {
	full := filepath.Join(l.basePath, filepath.FromSlash(locator))
	if full != l.basePath && !strings.HasPrefix(full, l.basePath+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid locator: %s", locator)
	}
	return full, nil
}
