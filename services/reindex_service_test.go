package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"noxchatAPI/internal/search"
	"noxchatAPI/internal/testutil"
)

func TestReindexer_Run(t *testing.T) {
	// Setup
	logger := zaptest.NewLogger(t).Sugar()
	repo := testutil.NewMemStore()
	backend := testutil.NewSearchBackend()
	index := search.NewAdapter(backend, search.Options{Timeout: time.Second}, logger)
	for i := 0; i < 7; i++ {
		repo.AddUser(fmt.Sprintf("user%d", i))
	}

	// Execute
	sent, err := NewReindexer(repo, index, 1000, 3, logger).Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 7, sent)
	assert.Equal(t, 7, backend.Len())

	doc, ok := backend.Doc(1)
	require.True(t, ok)
	assert.Equal(t, "user0_1", doc.PublicID)
}

func TestReindexer_RequiresIndex(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	_, err := NewReindexer(testutil.NewMemStore(), nil, 10, 3, logger).Run(context.Background())

	assert.Error(t, err)
}

func TestReindexer_StopsOnCancel(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	repo := testutil.NewMemStore()
	repo.AddUser("anna")
	index := search.NewAdapter(testutil.NewSearchBackend(), search.Options{}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, err := NewReindexer(repo, index, 10, 3, logger).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sent)
}
