// Package upload drives incoming file batches through the blob store
// and publishes the resulting metadata into the session registry.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"dropzone/internal/blobstore"
	"dropzone/internal/session"
)

var (
	// ErrNoFiles rejects an empty batch outright.
	ErrNoFiles = errors.New("no files supplied")
	// ErrPayloadTooLarge marks a file over the configured byte ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")
)

var (
	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropzone_uploads_total",
		Help: "Files successfully stored and recorded.",
	})
	uploadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropzone_upload_failures_total",
		Help: "Files rejected or failed by the storage backend.",
	})
)

// IncomingFile is one file lifted out of a client request.
type IncomingFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileError reports one failed file in a batch.
type FileError struct {
	Name string
	Err  error
}

// Result splits a batch into stored items and per-file failures.
// A backend failure on one file never rolls back its siblings.
type Result struct {
	Succeeded []session.Item
	Failed    []FileError
}

// Coordinator uploads file batches for a session. Blob writes happen
// outside the registry lock; an item is appended only after the
// backend confirms the write, so a client disconnect mid-upload never
// leaves a phantom registry entry.
type Coordinator struct {
	registry *session.Registry
	blobs    blobstore.Store
	maxBytes int64
	now      func() time.Time
}

// NewCoordinator wires a coordinator. maxBytes is the per-file ceiling;
// zero means unlimited.
func NewCoordinator(registry *session.Registry, blobs blobstore.Store, maxBytes int64) *Coordinator {
	return &Coordinator{
		registry: registry,
		blobs:    blobs,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// WithClock overrides the coordinator's time source for tests.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Store uploads every file in the batch independently and in parallel.
// An oversized file fails before any backend call; a backend failure
// is reported per file. The only hard error is an empty batch.
func (c *Coordinator) Store(ctx context.Context, sid session.ID, files []IncomingFile) (Result, error) {
	if len(files) == 0 {
		return Result{}, ErrNoFiles
	}

	var (
		mu  sync.Mutex
		res Result
	)

	var g errgroup.Group
	for _, f := range files {
		g.Go(func() error {
			if c.maxBytes > 0 && int64(len(f.Data)) > c.maxBytes {
				uploadFailuresTotal.Inc()
				mu.Lock()
				res.Failed = append(res.Failed, FileError{Name: f.Name, Err: ErrPayloadTooLarge})
				mu.Unlock()
				return nil
			}

			put, err := c.blobs.Put(ctx, sid, f.Name, f.ContentType, bytes.NewReader(f.Data), int64(len(f.Data)))
			if err != nil {
				uploadFailuresTotal.Inc()
				log.Warn().Err(err).
					Str("session", string(sid)).
					Str("name", f.Name).
					Msg("blob store failed")
				mu.Lock()
				res.Failed = append(res.Failed, FileError{Name: f.Name, Err: fmt.Errorf("store: %w", err)})
				mu.Unlock()
				return nil
			}

			it := session.Item{
				ID:          put.ID,
				DisplayName: f.Name,
				Locator:     put.Locator,
				MediaKind:   put.MediaKind,
				SizeBytes:   put.SizeBytes,
				CreatedAt:   c.now(),
			}
			c.registry.AppendItem(sid, it)
			uploadsTotal.Inc()

			mu.Lock()
			res.Succeeded = append(res.Succeeded, it)
			mu.Unlock()
			return nil
		})
	}
	// Per-file failures land in res.Failed, never as goroutine errors.
	_ = g.Wait()

	return res, nil
}
