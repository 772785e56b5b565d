package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"noxchatAPI/internal/auth"
	"noxchatAPI/internal/cache"
	"noxchatAPI/internal/search"
	"noxchatAPI/internal/store"
	"noxchatAPI/services"
)

// resources are the external connections shared by every command.
type resources struct {
	pool     *pgxpool.Pool
	store    *store.Store
	weaviate *search.WeaviateBackend
	index    *search.Adapter
	redis    *redis.Client
}

func (a *app) connect(ctx context.Context) (*resources, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := store.Connect(connectCtx, a.cfg.DatabaseURL, store.PoolOptions{
		MaxConns: a.cfg.DBMaxConns,
		MinConns: a.cfg.DBMinConns,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("database connection pool established",
		zap.Int32("max_conns", a.cfg.DBMaxConns))

	res := &resources{pool: pool, store: store.New(pool)}

	if a.cfg.SearchEnabled() {
		backend, err := search.NewWeaviateBackend(a.cfg.WeaviateURL, a.cfg.WeaviateAPIKey, a.cfg.SearchClass)
		if err != nil {
			pool.Close()
			return nil, err
		}
		res.weaviate = backend
		res.index = search.NewAdapter(backend, search.Options{
			Timeout:   a.cfg.SearchTimeout,
			MaxWindow: a.cfg.SearchMaxWindow,
		}, a.logger.Sugar().Named("search"))
		a.logger.Info("search index configured", zap.String("class", a.cfg.SearchClass))
	} else {
		a.logger.Warn("WEAVIATE_URL not set, search will use the database")
	}

	if a.cfg.CacheEnabled() {
		client, err := cache.Connect(connectCtx, a.cfg.RedisURL)
		if err != nil {
			a.logger.Warn("profile cache disabled", zap.Error(err))
		} else {
			res.redis = client
		}
	}

	return res, nil
}

func (r *resources) Close() {
	if r.redis != nil {
		_ = r.redis.Close()
	}
	r.pool.Close()
}

type appServices struct {
	users      *services.UserService
	friendship *services.FriendshipService
	search     *services.SearchService
	tokens     *auth.TokenManager
}

func (a *app) buildServices(res *resources) *appServices {
	log := a.logger.Sugar()

	users := services.NewUserService(res.store, res.index, auth.BcryptHasher{}, log.Named("users"))
	if res.redis != nil {
		users.SetCache(cache.NewProfileCache(res.redis, a.cfg.CacheTTL))
	}

	return &appServices{
		users:      users,
		friendship: services.NewFriendshipService(res.store, log.Named("friendship")),
		search:     services.NewSearchService(res.store, res.store, res.index, log.Named("search")),
		tokens:     auth.NewTokenManager(a.cfg.JWTSecret, a.cfg.JWTTTL),
	}
}
