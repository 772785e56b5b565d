package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and search class",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			res, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			if err := res.store.Migrate(ctx); err != nil {
				return err
			}
			a.logger.Info("database schema up to date")

			if res.weaviate != nil {
				if err := res.weaviate.EnsureSchema(ctx); err != nil {
					return err
				}
				a.logger.Info("search class ready", zap.String("class", a.cfg.SearchClass))
			}
			return nil
		},
	}
}
