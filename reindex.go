package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noxchatAPI/services"
)

func newReindexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			res, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			if res.weaviate != nil {
				if err := res.weaviate.EnsureSchema(ctx); err != nil {
					return err
				}
			}

			start := time.Now()
			reindexer := services.NewReindexer(res.store, res.index,
				a.cfg.ReindexRatePerSec, a.cfg.ReindexBatchSize, a.logger.Sugar().Named("reindex"))

			sent, err := reindexer.Run(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("reindex complete", zap.Int("documents", sent), zap.Duration("took", time.Since(start)))
			return nil
		},
	}
}
