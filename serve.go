package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"noxchatAPI/handlers"
	"noxchatAPI/internal/search"
	"noxchatAPI/middleware"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(middleware.Collectors()...)
	reg.MustRegister(search.Collectors()...)
	return reg
}

func (a *app) serve(ctx context.Context) error {
	res, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer res.Close()

	svc := a.buildServices(res)
	log := a.logger.Sugar()

	// a typed nil would make the health check call into a nil backend
	var readiness handlers.ReadinessChecker
	if res.weaviate != nil {
		readiness = res.weaviate
	}

	reg := newMetricsRegistry()
	router := newRouter(routeHandlers{
		auth:       handlers.NewAuthHandler(svc.users, svc.tokens, log.Named("auth")),
		users:      handlers.NewUserHandler(svc.users, svc.friendship, svc.search, a.cfg.PageSize, log.Named("http")),
		friendship: handlers.NewFriendshipHandler(svc.users, svc.friendship, svc.search, a.cfg.PageSize, log.Named("http")),
		health:     handlers.NewHealthHandler(res.store, readiness),
		metrics: middleware.BasicAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword)(
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		),
	}, svc.tokens, svc.users, a.logger)

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(a.cfg.CORSOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", middleware.RequestIDHeader}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", middleware.RequestIDHeader}),
		gorillaHandlers.AllowCredentials(),
	)

	server := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      corsHandler(router),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting server", zap.String("addr", server.Addr), zap.String("env", a.cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server shutdown complete")
	return nil
}
