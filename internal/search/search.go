package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by a Backend deleting a document it does not hold.
	ErrNotFound = errors.New("search document not found")
	// ErrUnavailable is returned by Query when no backend is configured.
	ErrUnavailable = errors.New("search index unavailable")
)

// Document is the searchable projection of a user, keyed by numeric id.
type Document struct {
	ID       int64
	Username string
	PublicID string
}

// Backend is an external text index. Search returns up to limit ids ordered
// by relevance, username weighted above public id.
type Backend interface {
	Upsert(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, text string, limit int) ([]int64, error)
}

type Options struct {
	Timeout   time.Duration
	MaxWindow int
}

// Adapter applies the index contract over a Backend: Index and Remove never
// fail the caller, Query always reports failure so the caller can fall back.
// A nil *Adapter is valid and behaves as an absent index.
type Adapter struct {
	backend Backend
	timeout time.Duration
	window  int
	logger  *zap.SugaredLogger
}

func NewAdapter(backend Backend, opts Options, logger *zap.SugaredLogger) *Adapter {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.MaxWindow <= 0 {
		opts.MaxWindow = 1000
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Adapter{
		backend: backend,
		timeout: opts.Timeout,
		window:  opts.MaxWindow,
		logger:  logger,
	}
}

func (a *Adapter) Enabled() bool {
	return a != nil && a.backend != nil
}

// MaxWindow is the largest number of ranked ids Query can see.
func (a *Adapter) MaxWindow() int {
	if a == nil {
		return 0
	}
	return a.window
}

// Index upserts doc. Failures are logged and dropped.
func (a *Adapter) Index(ctx context.Context, doc Document) {
	if !a.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.backend.Upsert(ctx, doc); err != nil {
		indexErrors.WithLabelValues("index").Inc()
		a.logger.Warnw("search index upsert failed", "user_id", doc.ID, "error", err)
	}
}

// Remove deletes the document for id. A missing document is not an error;
// other failures are logged and dropped.
func (a *Adapter) Remove(ctx context.Context, id int64) {
	if !a.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := a.backend.Delete(ctx, id)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
	default:
		indexErrors.WithLabelValues("remove").Inc()
		a.logger.Warnw("search index delete failed", "user_id", id, "error", err)
	}
}

// Query returns the ids on the requested page in relevance order and the
// number of ranked hits fetched. The backend is asked for at most one hit past
// the page, capped by the window, so total > page*pageSize means another page
// exists. Any failure, including the timeout expiring, is returned.
func (a *Adapter) Query(ctx context.Context, text string, page, pageSize int) ([]int64, int, error) {
	if !a.Enabled() {
		return nil, 0, ErrUnavailable
	}
	if page < 1 || pageSize < 1 {
		return nil, 0, fmt.Errorf("invalid page %d/%d", page, pageSize)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	limit := a.window
	if page <= a.window/pageSize {
		limit = min(page*pageSize+1, a.window)
	}

	ids, err := a.backend.Search(ctx, text, limit)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		indexErrors.WithLabelValues("query").Inc()
		return nil, 0, fmt.Errorf("search query %q: %w", text, err)
	}

	total := len(ids)
	if total == 0 || page-1 > (total-1)/pageSize {
		return []int64{}, total, nil
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	return ids[start:end], total, nil
}
