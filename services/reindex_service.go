package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"noxchatAPI/internal/search"
	"noxchatAPI/internal/user"
)

// Reindexer rebuilds the search index from the relational store.
type Reindexer struct {
	repo    user.Repository
	index   *search.Adapter
	limiter *rate.Limiter
	batch   int
	logger  *zap.SugaredLogger
}

func NewReindexer(repo user.Repository, index *search.Adapter, perSecond float64, batch int, logger *zap.SugaredLogger) *Reindexer {
	burst := max(int(perSecond), 1)
	return &Reindexer{
		repo:    repo,
		index:   index,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		batch:   batch,
		logger:  logger,
	}
}

// Run walks every user in id order and upserts it. It returns how many
// documents were sent to the index.
func (r *Reindexer) Run(ctx context.Context) (int, error) {
	if !r.index.Enabled() {
		return 0, errors.New("search index is not configured")
	}

	var (
		afterID int64
		sent    int
	)
	for {
		users, err := r.repo.ListAfter(ctx, afterID, r.batch)
		if err != nil {
			return sent, fmt.Errorf("failed to list users after %d: %w", afterID, err)
		}
		if len(users) == 0 {
			break
		}

		for _, u := range users {
			if err := r.limiter.Wait(ctx); err != nil {
				return sent, err
			}
			r.index.Index(ctx, documentFor(u))
			sent++
			afterID = u.ID
		}
		r.logger.Infow("reindex progress", "indexed", sent, "last_id", afterID)
	}

	return sent, nil
}
