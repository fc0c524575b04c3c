package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dropzone/internal/blobstore"
	"dropzone/internal/config"
	"dropzone/internal/server"
	"dropzone/internal/session"
	"dropzone/internal/sweep"
	"dropzone/internal/upload"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	// Safety: refuse to start on a broken configuration.
	if errs := cfg.Validate(); len(errs) > 0 {
		log.Error().Msg(config.ErrorString(errs))
		os.Exit(1)
	}

	blobs, err := newBlobStore(cfg)
	if err != nil {
		log.Error().Err(err).Msg("storage init failed")
		os.Exit(1)
	}

	registry := session.NewRegistry()
	coordinator := upload.NewCoordinator(registry, blobs, cfg.MaxUploadBytes)
	sweeper := sweep.New(registry, blobs, cfg.TTL, cfg.SweepInterval)

	srv := server.New(server.Config{
		Addr:           cfg.Addr,
		Registry:       registry,
		Manager:        session.Manager{},
		Coordinator:    coordinator,
		Blobs:          blobs,
		Sweeper:        sweeper,
		TTL:            cfg.TTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	// The sweeper runs for the life of the process and stops when the
	// shutdown context is cancelled.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Str("storage", cfg.Storage).
			Dur("ttl", cfg.TTL).
			Msg("starting")
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		stopSweeper()
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
			os.Exit(1)
		}
		log.Info().Msg("shutdown complete")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func newBlobStore(cfg config.Config) (blobstore.Store, error) {
	switch cfg.Storage {
	case config.StorageMinio:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return blobstore.NewMinio(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
		})
	default:
		return blobstore.NewLocal(cfg.LocalPath)
	}
}
