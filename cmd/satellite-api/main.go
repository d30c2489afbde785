package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/sat-catalog-client/internal/catalog"
	"github.com/Sternrassler/sat-catalog-client/internal/config"
	"github.com/Sternrassler/sat-catalog-client/internal/server"
	"github.com/Sternrassler/sat-catalog-client/internal/upstream"
	"github.com/Sternrassler/sat-catalog-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", os.Getenv("SATCAT_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.LoggingOptions("satellite-api"))

	if err := cfg.ValidateServer(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg.Server.RedisURL)
	if err != nil {
		return err
	}
	defer store.Close()

	feed, err := upstream.NewFetcher(cfg.UpstreamOptions())
	if err != nil {
		return fmt.Errorf("create feed fetcher: %w", err)
	}

	origin := server.New(store, feed, server.Config{DefaultGroup: cfg.Server.DefaultGroup})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           origin.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("default_group", cfg.Server.DefaultGroup).
			Str("feed", cfg.Server.CelestrakURL).
			Msg("Starting satellite catalog origin")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore returns a Redis-backed store when redisURL is set and an
// in-memory store otherwise.
func openStore(ctx context.Context, redisURL string) (catalog.Store, error) {
	if redisURL == "" {
		log.Info().Msg("REDIS_URL not set, using in-memory catalog store")
		return catalog.NewMemoryStore(), nil
	}

	opts, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")

	return catalog.NewRedisStore(redisClient), nil
}

// redisOptions accepts either a redis:// URL or a bare host:port.
func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}
