package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PermissionCacheTTLSeconds bounds how long a permission verdict may be
	// served from cache. Zero uses the service default.
	PermissionCacheTTLSeconds int

	AuthMode string
	LogLevel string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                  addr,
		PostgresDSN:               os.Getenv("POSTGRES_DSN"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   envIntDefault("REDIS_DB", 0),
		PermissionCacheTTLSeconds: envIntDefault("PERMISSION_CACHE_TTL_SECONDS", 0),
		AuthMode:                  os.Getenv("AUTH_MODE"),
		LogLevel:                  envDefault("LOG_LEVEL", "info"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
