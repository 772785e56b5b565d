package search

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubBackend struct {
	mu        sync.Mutex
	docs      map[int64]Document
	ranked    []int64
	upsertErr error
	deleteErr error
	searchErr error
	delay     time.Duration
	lastLimit int
}

func newStubBackend() *stubBackend {
	return &stubBackend{docs: map[int64]Document{}}
}

func (s *stubBackend) Upsert(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.docs[doc.ID] = doc
	return nil
}

func (s *stubBackend) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *stubBackend) Search(ctx context.Context, text string, limit int) ([]int64, error) {
	s.mu.Lock()
	s.lastLimit = limit
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if len(s.ranked) > limit {
		return s.ranked[:limit], nil
	}
	return s.ranked, nil
}

func newTestAdapter(t *testing.T, b Backend) *Adapter {
	return NewAdapter(b, Options{Timeout: 200 * time.Millisecond, MaxWindow: 1000}, zaptest.NewLogger(t).Sugar())
}

func TestIndex_SwallowsErrors(t *testing.T) {
	backend := newStubBackend()
	backend.upsertErr = errors.New("connection refused")
	a := newTestAdapter(t, backend)

	assert.NotPanics(t, func() {
		a.Index(context.Background(), Document{ID: 1, Username: "anna", PublicID: "anna_1"})
	})
	assert.Empty(t, backend.docs)
}

func TestIndex_Upserts(t *testing.T) {
	backend := newStubBackend()
	a := newTestAdapter(t, backend)

	a.Index(context.Background(), Document{ID: 1, Username: "anna", PublicID: "anna_1"})
	a.Index(context.Background(), Document{ID: 1, Username: "anna", PublicID: "anna"})

	require.Len(t, backend.docs, 1)
	assert.Equal(t, "anna", backend.docs[1].PublicID)
}

func TestRemove_NotFoundIsNotAnError(t *testing.T) {
	backend := newStubBackend()
	a := newTestAdapter(t, backend)

	assert.NotPanics(t, func() { a.Remove(context.Background(), 404) })

	backend.deleteErr = errors.New("503 service unavailable")
	assert.NotPanics(t, func() { a.Remove(context.Background(), 1) })
}

func TestQuery_Pagination(t *testing.T) {
	backend := newStubBackend()
	backend.ranked = []int64{5, 3, 9, 1, 7}
	a := newTestAdapter(t, backend)
	ctx := context.Background()

	ids, total, err := a.Query(ctx, "an", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 3}, ids)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, backend.lastLimit)

	ids, total, err = a.Query(ctx, "an", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids)
	assert.Equal(t, 5, total)
	assert.Equal(t, 7, backend.lastLimit)

	ids, total, err = a.Query(ctx, "an", 4, 2)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 5, total)
}

func TestQuery_LimitCappedByWindow(t *testing.T) {
	backend := newStubBackend()
	backend.ranked = []int64{5, 3, 9, 1, 7}
	a := NewAdapter(backend, Options{Timeout: 200 * time.Millisecond, MaxWindow: 4}, zaptest.NewLogger(t).Sugar())

	ids, total, err := a.Query(context.Background(), "an", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 1}, ids)
	assert.Equal(t, 4, total)
	assert.Equal(t, 4, backend.lastLimit)
}

func TestQuery_HugePage(t *testing.T) {
	backend := newStubBackend()
	backend.ranked = []int64{5, 3, 9}
	a := newTestAdapter(t, backend)

	var ids []int64
	var err error
	require.NotPanics(t, func() {
		ids, _, err = a.Query(context.Background(), "an", math.MaxInt/2+1, 3)
	})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 1000, backend.lastLimit)
}

func TestQuery_PropagatesErrors(t *testing.T) {
	backend := newStubBackend()
	backend.searchErr = errors.New("malformed response")
	a := newTestAdapter(t, backend)

	_, _, err := a.Query(context.Background(), "an", 1, 10)
	assert.ErrorIs(t, err, backend.searchErr)
}

func TestQuery_TimeoutIsAnError(t *testing.T) {
	backend := newStubBackend()
	backend.ranked = []int64{1}
	backend.delay = time.Second
	a := NewAdapter(backend, Options{Timeout: 20 * time.Millisecond}, zaptest.NewLogger(t).Sugar())

	_, _, err := a.Query(context.Background(), "an", 1, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQuery_InvalidPage(t *testing.T) {
	a := newTestAdapter(t, newStubBackend())

	_, _, err := a.Query(context.Background(), "an", 0, 10)
	assert.Error(t, err)
}

func TestNilAdapter(t *testing.T) {
	var a *Adapter

	assert.False(t, a.Enabled())
	assert.NotPanics(t, func() {
		a.Index(context.Background(), Document{ID: 1})
		a.Remove(context.Background(), 1)
	})

	_, _, err := a.Query(context.Background(), "an", 1, 10)
	assert.ErrorIs(t, err, ErrUnavailable)
}
