package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/config"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RENTAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(utilities.ConfigFrom(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	if cfg.Database.URL == "" {
		sugar.Fatal("RENTAL_DATABASE_URL is not set")
	}

	sqlDB, err := database.Connect(database.ConfigFrom(cfg))
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Info("applying migrations")
	if err := database.Migrate(ctx, sqlDB); err != nil {
		sugar.Fatalf("migrate: %v", err)
	}
	sugar.Info("migrations applied")
}
