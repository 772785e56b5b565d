package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"noxchatAPI/internal/search"
)

// SearchBackend is an in-memory search.Backend. It ranks documents whose
// username contains the query above those matching only on public id.
type SearchBackend struct {
	mu   sync.Mutex
	docs map[int64]search.Document
	err  error

	Searches int
}

func NewSearchBackend() *SearchBackend {
	return &SearchBackend{docs: map[int64]search.Document{}}
}

// Break makes every later call fail with err. A nil err repairs it.
func (b *SearchBackend) Break(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *SearchBackend) Doc(id int64) (search.Document, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[id]
	return d, ok
}

func (b *SearchBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.docs)
}

func (b *SearchBackend) Upsert(ctx context.Context, doc search.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.docs[doc.ID] = doc
	return nil
}

func (b *SearchBackend) Delete(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if _, ok := b.docs[id]; !ok {
		return search.ErrNotFound
	}
	delete(b.docs, id)
	return nil
}

func (b *SearchBackend) Search(ctx context.Context, text string, limit int) ([]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Searches++
	if b.err != nil {
		return nil, b.err
	}

	type scored struct {
		id    int64
		score int
	}
	text = strings.ToLower(text)
	var hits []scored
	for _, d := range b.docs {
		score := 0
		if strings.Contains(strings.ToLower(d.Username), text) {
			score += 2
		}
		if strings.Contains(strings.ToLower(d.PublicID), text) {
			score++
		}
		if score > 0 {
			hits = append(hits, scored{d.ID, score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id > hits[j].id
	})

	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		if len(ids) == limit {
			break
		}
		ids = append(ids, h.id)
	}
	return ids, nil
}
