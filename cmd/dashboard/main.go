package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/sentipulse/sentipulse/config"
	"github.com/sentipulse/sentipulse/internal/dashboard"
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

	ctx := context.Background()

	// Same schema value as the pipeline writer, so reader and writer can
	// never disagree on the table definition.
	schema := store.Schema{
		Table:   config.GetEnv("POSTS_TABLE", store.DefaultSchema().Table),
		Version: store.DefaultSchema().Version,
	}

	postStore, err := store.NewPostgresStore(ctx, os.Getenv("DB_DSN"), schema, 0)
	if err != nil {
		log.Fatalf("%v", fmt.Errorf("%w: %v", pipeline.ErrStorageInit, err))
	}
	defer postStore.Close()

	router := dashboard.NewRouter(dashboard.NewHandler(postStore))

	addr := config.GetEnv("DASHBOARD_ADDR", ":8080")
	slog.Info("[Dashboard] Listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		log.Fatalf("dashboard server failed: %v", err)
	}
}
