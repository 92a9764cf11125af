package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentipulse/sentipulse/config"
	"github.com/sentipulse/sentipulse/internal/clients"
	"github.com/sentipulse/sentipulse/internal/logging"
	"github.com/sentipulse/sentipulse/internal/pipeline"
	"github.com/sentipulse/sentipulse/internal/store"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schema := store.Schema{
		Table:   config.GetEnv("POSTS_TABLE", store.DefaultSchema().Table),
		Version: store.DefaultSchema().Version,
	}
	batchSize := config.GetEnvInt("BATCH_SIZE", store.DEFAULT_BATCH_SIZE)

	// Storage must be reachable before anything is extracted.
	postStore, err := store.NewPostgresStore(ctx, os.Getenv("DB_DSN"), schema, batchSize)
	if err != nil {
		log.Fatalf("%v", fmt.Errorf("%w: %v", pipeline.ErrStorageInit, err))
	}
	defer postStore.Close()

	var cache pipeline.SeenCache
	if os.Getenv("VALKEY_INIT_ADDRESS") != "" {
		valkeyClient, err := clients.InitValkey()
		if err != nil {
			slog.Warn("Valkey unavailable, continuing without seen-post cache",
				slog.String("error", err.Error()))
		} else {
			cache = valkeyClient
			defer clients.CloseValkey()
		}
	}

	p := pipeline.New(clients.GetRedditClient(), postStore, cache, pipeline.Config{
		Subreddit: config.GetEnv("SUBREDDIT", "python"),
		Keyword:   config.GetEnv("KEYWORD", "data engineering"),
		Limit:     config.GetEnvInt("FETCH_LIMIT", 50),
		Timeout:   time.Duration(config.GetEnvInt("RUN_TIMEOUT", 300)) * time.Second,
	})

	intervalSecs := config.GetEnvInt("RUN_INTERVAL", 0)
	if intervalSecs <= 0 {
		if _, err := p.Run(ctx); err != nil {
			postStore.Close()
			os.Exit(1)
		}
		return
	}

	runTicker := time.NewTicker(time.Duration(intervalSecs) * time.Second)
	defer runTicker.Stop()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	// Run immediately, then on every tick. The loop is sequential so runs
	// never overlap; the store's run lock backstops that.
	if _, err := p.Run(ctx); err != nil {
		slog.Error("Run failed, waiting for next tick", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-runTicker.C:
			if _, err := p.Run(ctx); err != nil {
				slog.Error("Run failed, waiting for next tick", slog.String("error", err.Error()))
			}
		case <-stopChan:
			slog.Info("Shutting down pipeline gracefully...")
			cancel()
			return
		}
	}
}
