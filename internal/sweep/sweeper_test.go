package sweep

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropzone/internal/blobstore"
	"dropzone/internal/session"
)

type fakeStore struct {
	mu        sync.Mutex
	deleted   []string
	deleteErr error
}

func (f *fakeStore) Put(ctx context.Context, sid session.ID, name, contentType string, r io.Reader, size int64) (blobstore.PutResult, error) {
	return blobstore.PutResult{}, errors.New("not implemented")
}

func (f *fakeStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	return nil, blobstore.ErrNotFound
}

func (f *fakeStore) Delete(ctx context.Context, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, locator)
	return nil
}

func (f *fakeStore) deletedLocators() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

const sid = session.ID("aaaaaaaaaaaaaaaa")

func TestSweepOnceRemovesExpired(t *testing.T) {
	ttl := 300 * time.Second
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	reg := session.NewRegistry()
	reg.AppendItem(sid, session.Item{ID: "A", Locator: "sessions/aaaaaaaaaaaaaaaa/A", CreatedAt: t0})

	store := &fakeStore{}
	s := New(reg, store, ttl, 0)

	removed := s.SweepOnce(context.Background(), t0.Add(301*time.Second))
	require.Len(t, removed, 1)
	assert.Equal(t, "A", removed[0].ID)
	assert.Equal(t, []string{"sessions/aaaaaaaaaaaaaaaa/A"}, store.deletedLocators())

	// A was the only item, so the session itself is gone.
	_, err := reg.ListItems(sid)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSweepOnceLeavesFreshItems(t *testing.T) {
	ttl := 600 * time.Second
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	reg := session.NewRegistry()
	reg.AppendItem(sid, session.Item{ID: "A", CreatedAt: t0})

	s := New(reg, &fakeStore{}, ttl, 0)
	removed := s.SweepOnce(context.Background(), t0.Add(ttl))
	assert.Empty(t, removed)

	items, err := reg.ListItems(sid)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSweepDeleteFailureStaysDeleted(t *testing.T) {
	ttl := 300 * time.Second
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	reg := session.NewRegistry()
	reg.AppendItem(sid, session.Item{ID: "A", Locator: "sessions/aaaaaaaaaaaaaaaa/A", CreatedAt: t0})

	store := &fakeStore{deleteErr: errors.New("backend down")}
	s := New(reg, store, ttl, 0)

	now := t0.Add(301 * time.Second)
	removed := s.SweepOnce(context.Background(), now)
	require.Len(t, removed, 1)

	// The item stays logically deleted even though the physical delete
	// failed: it never reappears and is not retried within a tick.
	_, err := reg.ListItems(sid)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Empty(t, s.SweepOnce(context.Background(), now.Add(time.Second)))
}

func TestSweepOnceEmptyRegistry(t *testing.T) {
	s := New(session.NewRegistry(), &fakeStore{}, time.Minute, 0)
	assert.Empty(t, s.SweepOnce(context.Background(), time.Now()))
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(session.NewRegistry(), &fakeStore{}, time.Minute, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
