package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"assetmap/internal/cache"
	"assetmap/internal/db"
	"assetmap/internal/httpapi"
	"assetmap/internal/logging"
	"assetmap/internal/metrics"
)

func main() {
	addr := envOr("HTTP_ADDR", ":8080")
	logLevel := envOr("LOG_LEVEL", "info")
	databaseURL := envOr("DATABASE_URL", "")
	redisAddr := envOr("REDIS_ADDR", "")

	logger := logging.NewServer(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *db.Pool
	if databaseURL != "" {
		p, err := db.Open(ctx, databaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		if err := p.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
		pool = p
	} else {
		logger.Warn().Msg("DATABASE_URL not set; asset routes will return 503")
	}

	opts := httpapi.Options{
		Metrics:         metrics.New(),
		ImportRateLimit: envInt(logger, "IMPORT_RATE_LIMIT", 10),
	}

	if redisAddr != "" {
		c := cache.New(redisAddr, os.Getenv("REDIS_PASSWORD"), envInt(logger, "REDIS_DB", 0), envDuration(logger, "CACHE_TTL", 5*time.Minute))
		defer c.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := c.Ping(pingCtx); err != nil {
			logger.Warn().Err(err).Str("addr", redisAddr).Msg("redis not reachable; cache lookups will fall through")
		}
		cancel()
		opts.Cache = c
	}

	h := httpapi.NewHandler(logger, pool, opts)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("assetmap listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(logger zerolog.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid integer; using default")
		return fallback
	}
	return n
}

func envDuration(logger zerolog.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid duration; using default")
		return fallback
	}
	return d
}
