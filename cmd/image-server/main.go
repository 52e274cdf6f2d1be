package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	imageserver "github.com/Skryldev/image-server"
	cacheadapter "github.com/Skryldev/image-server/adapters/cache"
	"github.com/Skryldev/image-server/adapters/codec"
	"github.com/Skryldev/image-server/adapters/cropper"
	"github.com/Skryldev/image-server/config"
	"github.com/Skryldev/image-server/core"
	"github.com/Skryldev/image-server/hooks"
	"github.com/Skryldev/image-server/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	log.Info().Msg("starting image-server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}

	zerolog.SetGlobalLevel(logLevel(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	vips := codec.NewVips(codec.VipsConfig{
		MaxCacheSize: cfg.Vips.MaxCacheSize,
		MaxWorkers:   cfg.Vips.MaxWorkers,
		ReportLeaks:  cfg.Vips.ReportLeaks,
	})
	defer vips.Shutdown()

	cache, err := buildCache(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize cache backend")
	}

	srv := imageserver.New(cfg, vips, cropper.NewSmartCrop(), cache)

	logger := hooks.NewZerologLogger(log.Logger)
	srv.SetLogger(logger)
	srv.AddHook(hooks.NewLoggingHook(logger))

	metrics := hooks.NewPromMetrics(prometheus.DefaultRegisterer)
	srv.SetMetrics(metrics)
	srv.AddHook(hooks.NewMetricsHook(metrics))

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.New(srv).Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

func buildCache(cfg config.CacheConfig) (core.KeyValueCache, error) {
	switch cfg.Backend {
	case config.CacheDisk:
		return cacheadapter.NewDisk(cfg.Dir, 0)
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return cacheadapter.NewRedis(client), nil
	case config.CacheS3:
		// The s3 adapter takes an injected ObjectClient; wire it up
		// programmatically via imageserver.New instead.
		return nil, errors.New("s3 cache backend is not available from the binary")
	default:
		return cacheadapter.NewMemory(), nil
	}
}

func logLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}
