package main

import (
	"context"
	"log"

	"github.com/jedmesilva/mobistory-backend/internal/config"
	httpapi "github.com/jedmesilva/mobistory-backend/internal/http"
	"github.com/jedmesilva/mobistory-backend/internal/infra/permcache"
	"github.com/jedmesilva/mobistory-backend/internal/repo/postgres"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	store, err := postgres.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer store.Close()

	if err := postgres.Migrate(context.Background(), store.DB); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	var cache usecase.PermissionCache
	if cfg.RedisAddr != "" {
		redisCache, err := permcache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("failed to init redis cache: %v", err)
		}
		cache = redisCache
	} else {
		cache = permcache.NewMemory()
	}

	srv := httpapi.NewServer(cfg, store, cache)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
